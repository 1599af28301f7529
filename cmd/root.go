package cmd

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/civipay/authnet-gateway/config"
)

var rootCmd = &cobra.Command{
	Use:   "authnet-gateway",
	Short: "Authorize.Net contribution gateway",
	Long:  "A CRM-facing gateway for Authorize.Net card and eCheck payments, ARB subscriptions, and webhook reconciliation.",
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func configureLogging(cfg *config.Config) error {
	logrus.SetFormatter(&logrus.JSONFormatter{})

	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	logrus.SetLevel(level)
	return nil
}
