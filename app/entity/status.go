package entity

// Contribution status ids as assigned by the CRM option group. Callers that
// only know the human-readable label resolve it through ContributionStatusID.
const (
	ContributionStatusCompleted  int32 = 1
	ContributionStatusPending    int32 = 2
	ContributionStatusCancelled  int32 = 3
	ContributionStatusFailed     int32 = 4
	ContributionStatusInProgress int32 = 5
	ContributionStatusRefunded   int32 = 7
)

var contributionStatusByLabel = map[string]int32{
	"Completed":   ContributionStatusCompleted,
	"Pending":     ContributionStatusPending,
	"Cancelled":   ContributionStatusCancelled,
	"Failed":      ContributionStatusFailed,
	"In Progress": ContributionStatusInProgress,
	"Refunded":    ContributionStatusRefunded,
}

var contributionLabelByStatus = func() map[int32]string {
	labels := make(map[int32]string, len(contributionStatusByLabel))
	for label, id := range contributionStatusByLabel {
		labels[id] = label
	}
	return labels
}()

// ContributionStatusID resolves a status label to its numeric id.
func ContributionStatusID(label string) (int32, bool) {
	id, ok := contributionStatusByLabel[label]
	return id, ok
}

// ContributionStatusLabel resolves a numeric status id to its label.
// Unknown ids return an empty string.
func ContributionStatusLabel(id int32) string {
	return contributionLabelByStatus[id]
}
