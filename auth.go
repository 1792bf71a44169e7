package main

import (
	"context"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/breadoorr/SmartPlan/pkg/auth"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Authenticate with Google Calendar",
	Long: `Run the Google OAuth flow and cache the token.

Place the desktop client credentials.json in ~/.config/smartplan/ first.
Any cached token is removed so the flow always runs.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		tokenFile, err := auth.TokenPath()
		if err != nil {
			log.Fatalf("could not find path to token file: %v", err)
		}

		if _, err := os.Stat(tokenFile); err == nil {
			log.Printf("Removing existing token file at '%s'", tokenFile)
			if err := os.Remove(tokenFile); err != nil {
				log.Fatalf("could not delete token file '%s', error %v. Please delete it manually", tokenFile, err)
			}
		} else if !os.IsNotExist(err) {
			log.Printf("could not check token file '%s', error %v", tokenFile, err)
		}

		if _, err := auth.GetCalendarService(context.Background()); err != nil {
			log.Fatalf("Authentication failed: %v", err)
		}
		log.Printf("Authentication successful! Token saved to %s", tokenFile)
	},
}

func init() {
	rootCmd.AddCommand(authCmd)
}
