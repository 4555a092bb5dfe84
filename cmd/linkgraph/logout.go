package main

import (
	"fmt"

	"github.com/amai-lab/linkgraph/internal/config"
	"github.com/spf13/cobra"
)

var logoutLLMKey bool

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the stored LinkedIn access token",
	Long: `Logout deletes the LinkedIn access token from the OS keychain and the
credentials file. --llm-key also removes the stored LLM API key.`,
	RunE: runLogout,
}

func init() {
	logoutCmd.Flags().BoolVar(&logoutLLMKey, "llm-key", false, "also remove the stored LLM API key")
	rootCmd.AddCommand(logoutCmd)
}

func runLogout(cmd *cobra.Command, args []string) error {
	manager := config.NewCredentialManager()

	if !manager.HasAccessToken() {
		fmt.Println("Not logged in.")
	} else if err := manager.DeleteAccessToken(); err != nil {
		return fmt.Errorf("delete access token: %w", err)
	} else {
		fmt.Println("✓ Access token removed")
	}

	if logoutLLMKey {
		keyring := config.NewKeyringManager()
		if keyring.IsAvailable() {
			if err := keyring.DeleteLLMKey(); err != nil {
				fmt.Printf("⚠️  Could not remove LLM key: %v\n", err)
			} else {
				fmt.Println("✓ LLM API key removed")
			}
		}
	}

	fmt.Println("\n✅ Logged out")
	return nil
}
