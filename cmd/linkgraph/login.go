package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/amai-lab/linkgraph/internal/config"
	"github.com/pkg/browser"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const developerPortalURL = "https://www.linkedin.com/developers/"

var (
	loginToken   string
	loginLLMKey  bool
	loginBrowser bool
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store the LinkedIn access token in the OS keychain",
	Long: `Login stores your LinkedIn Member Data Portability access token securely
in the OS keychain (falling back to a config file with restrictive
permissions when no keychain is available).

Create a token in the LinkedIn developer portal with the Member Data
Portability API product enabled; --browser opens the portal for you.

Examples:
  linkgraph login
  linkgraph login --browser
  linkgraph login --llm-key`,
	RunE: runLogin,
}

func init() {
	loginCmd.Flags().StringVar(&loginToken, "token", "", "access token (omit for a hidden prompt)")
	loginCmd.Flags().BoolVar(&loginLLMKey, "llm-key", false, "also prompt for and store the LLM API key")
	loginCmd.Flags().BoolVar(&loginBrowser, "browser", false, "open the LinkedIn developer portal first")
	rootCmd.AddCommand(loginCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	if loginBrowser {
		fmt.Printf("🌐 Opening %s\n", developerPortalURL)
		if err := browser.OpenURL(developerPortalURL); err != nil {
			fmt.Printf("⚠️  Could not open the browser: %v\n", err)
			fmt.Printf("   Visit %s manually\n", developerPortalURL)
		}
	}

	token := strings.TrimSpace(loginToken)
	if token == "" {
		var err error
		token, err = promptSecret("Enter LinkedIn access token: ")
		if err != nil {
			return err
		}
	}
	if token == "" {
		return fmt.Errorf("access token is required")
	}

	creds := config.Credentials{LinkedInAccessToken: token}

	if loginLLMKey {
		key, err := promptSecret("Enter LLM API key (empty to skip): ")
		if err != nil {
			return err
		}
		creds.LLMAPIKey = key
	}

	manager := config.NewCredentialManager()
	if err := manager.SaveCredentials(creds); err != nil {
		return fmt.Errorf("save credentials: %w", err)
	}

	fmt.Printf("\n✅ Logged in\n")
	fmt.Printf("🔐 Access token: %s\n", config.MaskKey(token))
	if creds.LLMAPIKey != "" {
		fmt.Printf("🔐 LLM API key:  %s\n", config.MaskKey(creds.LLMAPIKey))
	}
	fmt.Printf("\n🚀 Next steps:\n")
	fmt.Printf("   • Fetch your changelog: linkgraph fetch\n")

	return nil
}

// promptSecret reads a secret without echoing when stdin is a terminal
func promptSecret(prompt string) (string, error) {
	fmt.Print(prompt)

	if term.IsTerminal(int(syscall.Stdin)) {
		bytes, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(bytes)), nil
	}

	// Piped input
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
