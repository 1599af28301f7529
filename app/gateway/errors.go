package gateway

import (
	"fmt"
	"strings"
)

const resultCodeOK = "Ok"

// currencyErrorCode is the vendor code for an unsupported or mismatched
// currency. Its message alone does not name the currency, so callers append
// it.
const currencyErrorCode = "39"

type apiMessage struct {
	Code string `json:"code"`
	Text string `json:"text"`
}

type apiMessages struct {
	ResultCode string       `json:"resultCode"`
	Message    []apiMessage `json:"message"`
}

func (m apiMessages) ok() bool {
	return m.ResultCode == resultCodeOK
}

// APIError is a non-Ok result from the vendor. The message concatenates
// every reported code/text pair.
type APIError struct {
	Messages []apiMessage
	Currency string
}

func (e *APIError) Error() string {
	if len(e.Messages) == 0 {
		return "authnet request rejected"
	}

	parts := make([]string, 0, len(e.Messages))
	for _, m := range e.Messages {
		text := m.Code + ": " + m.Text
		if m.Code == currencyErrorCode && e.Currency != "" {
			text = fmt.Sprintf("%s (currency: %s)", text, e.Currency)
		}
		parts = append(parts, text)
	}
	return strings.Join(parts, "; ")
}

// HasCode reports whether the vendor returned the given message code.
func (e *APIError) HasCode(code string) bool {
	for _, m := range e.Messages {
		if m.Code == code {
			return true
		}
	}
	return false
}

func newAPIError(messages apiMessages, currency string) *APIError {
	return &APIError{Messages: messages.Message, Currency: currency}
}
