package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/interfaces/cli/migrate"
	"github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/interfaces/cli/server"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "autowatering",
		Short: "Autowatering backend service",
		Long:  `Backend for the autowatering irrigation controller: device provisioning, user profiles, and subscription state.`,
	}

	rootCmd.AddCommand(
		server.NewCommand(),
		migrate.NewCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
