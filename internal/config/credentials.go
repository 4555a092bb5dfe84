package config

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/amai-lab/linkgraph/internal/errors"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"
)

// CredentialManager handles credential retrieval with priority chain
// Priority: Environment Variables → Keychain → Config File → Interactive Prompt
type CredentialManager struct {
	mode       DeploymentMode
	keyring    *KeyringManager
	configPath string
}

// Credentials holds all user credentials
type Credentials struct {
	LinkedInAccessToken string `yaml:"linkedin_access_token"`
	LLMAPIKey           string `yaml:"llm_api_key"`
}

// NewCredentialManager creates a new credential manager
func NewCredentialManager() *CredentialManager {
	mode := DetectMode()
	homeDir, _ := os.UserHomeDir()
	configPath := filepath.Join(homeDir, ".config", "linkgraph", "credentials.yaml")

	return &CredentialManager{
		mode:       mode,
		keyring:    NewKeyringManager(),
		configPath: configPath,
	}
}

// GetAccessToken retrieves the LinkedIn access token using priority chain
func (cm *CredentialManager) GetAccessToken() (string, error) {
	// 1. Environment variable (highest priority)
	if token := os.Getenv("LINKEDIN_ACCESS_TOKEN"); token != "" {
		return token, nil
	}

	// 2. Keychain (macOS/Linux)
	if cm.keyring.IsAvailable() {
		if token, err := cm.keyring.GetAccessToken(); err == nil && token != "" {
			return token, nil
		}
	}

	// 3. Config file (~/.config/linkgraph/credentials.yaml)
	if creds, err := cm.loadConfigFile(); err == nil && creds.LinkedInAccessToken != "" {
		return creds.LinkedInAccessToken, nil
	}

	// 4. Interactive prompt (only in packaged mode, not in CI)
	if cm.mode.AllowsInteractivePrompts() && isInteractive() {
		fmt.Println("\n⚠️  LinkedIn access token not found.")
		fmt.Println("   Create one at: https://www.linkedin.com/developers/ (Member Data Portability API)")
		fmt.Println()
		return cm.promptForAccessToken()
	}

	// Not found anywhere
	return "", errors.ConfigErrorf(
		"LINKEDIN_ACCESS_TOKEN not found. Set it via:\n"+
			"  1. Environment variable: export LINKEDIN_ACCESS_TOKEN=...\n"+
			"  2. Run: linkgraph login (to set up keychain)\n"+
			"  3. Config file: %s", cm.configPath)
}

// GetLLMAPIKey retrieves the LLM API key using priority chain.
// An empty result is not an error: callers fall back to a local
// ollama provider when no key is configured anywhere.
func (cm *CredentialManager) GetLLMAPIKey() (string, error) {
	// 1. Dedicated environment variable (highest priority)
	if key := os.Getenv("LLM_API_KEY"); key != "" {
		return key, nil
	}

	// 2. Keychain (macOS/Linux)
	if cm.keyring.IsAvailable() {
		if key, err := cm.keyring.GetLLMKey(); err == nil && key != "" {
			return key, nil
		}
	}

	// 3. Generic OpenAI environment variable
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		return key, nil
	}

	// 4. Config file
	if creds, err := cm.loadConfigFile(); err == nil && creds.LLMAPIKey != "" {
		return creds.LLMAPIKey, nil
	}

	return "", nil
}

// SaveCredentials saves credentials to keychain (preferred) or config file (fallback)
func (cm *CredentialManager) SaveCredentials(creds Credentials) error {
	// Try keychain first (macOS/Linux)
	if cm.keyring.IsAvailable() {
		if creds.LinkedInAccessToken != "" {
			if err := cm.keyring.SaveAccessToken(creds.LinkedInAccessToken); err != nil {
				return errors.Wrap(err, errors.ErrorTypeConfig, errors.SeverityHigh,
					"failed to save access token to keychain")
			}
		}
		if creds.LLMAPIKey != "" {
			if err := cm.keyring.SaveLLMKey(creds.LLMAPIKey); err != nil {
				return errors.Wrap(err, errors.ErrorTypeConfig, errors.SeverityHigh,
					"failed to save LLM key to keychain")
			}
		}
		return nil
	}

	// Fallback: Save to config file
	return cm.saveConfigFile(creds)
}

// DeleteAccessToken removes the stored LinkedIn access token everywhere
func (cm *CredentialManager) DeleteAccessToken() error {
	if cm.keyring.IsAvailable() {
		if err := cm.keyring.DeleteAccessToken(); err != nil {
			return err
		}
	}

	// Also clear from config file if present
	creds, err := cm.loadConfigFile()
	if err != nil {
		return nil
	}
	if creds.LinkedInAccessToken == "" {
		return nil
	}
	creds.LinkedInAccessToken = ""
	return cm.saveConfigFile(*creds)
}

// loadConfigFile loads credentials from config file
func (cm *CredentialManager) loadConfigFile() (*Credentials, error) {
	data, err := os.ReadFile(cm.configPath)
	if err != nil {
		return nil, err
	}

	var creds Credentials
	if err := yaml.Unmarshal(data, &creds); err != nil {
		return nil, err
	}

	return &creds, nil
}

// saveConfigFile saves credentials to config file
func (cm *CredentialManager) saveConfigFile(creds Credentials) error {
	// Ensure directory exists
	dir := filepath.Dir(cm.configPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	// Marshal to YAML
	data, err := yaml.Marshal(creds)
	if err != nil {
		return err
	}

	// Write file with restrictive permissions (user-only read/write)
	if err := os.WriteFile(cm.configPath, data, 0600); err != nil {
		return err
	}

	return nil
}

// promptForAccessToken prompts user for the LinkedIn access token
func (cm *CredentialManager) promptForAccessToken() (string, error) {
	fmt.Print("Enter LinkedIn access token: ")
	token, err := cm.readSecurely()
	if err != nil {
		return "", err
	}

	if token == "" {
		return "", errors.ConfigError("LinkedIn access token is required")
	}

	// Save to keychain if available
	if cm.keyring.IsAvailable() {
		if err := cm.keyring.SaveAccessToken(token); err == nil {
			fmt.Println("✓ Saved to keychain")
		}
	} else {
		// Save to config file as fallback
		creds := Credentials{LinkedInAccessToken: token}
		if err := cm.saveConfigFile(creds); err == nil {
			fmt.Printf("✓ Saved to %s\n", cm.configPath)
		}
	}

	return token, nil
}

// readSecurely reads a password/token from stdin without echoing
func (cm *CredentialManager) readSecurely() (string, error) {
	// Try to read from terminal (supports password masking)
	if term.IsTerminal(int(syscall.Stdin)) {
		bytes, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println() // New line after password input
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(bytes)), nil
	}

	// Fallback: Read from stdin (piped input)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// isInteractive returns true if stdin is a terminal (not piped)
func isInteractive() bool {
	return term.IsTerminal(int(syscall.Stdin))
}

// GetMode returns the current deployment mode
func (cm *CredentialManager) GetMode() DeploymentMode {
	return cm.mode
}

// GetConfigPath returns the path to the config file
func (cm *CredentialManager) GetConfigPath() string {
	return cm.configPath
}

// HasAccessToken checks if a LinkedIn access token is configured
func (cm *CredentialManager) HasAccessToken() bool {
	// Check environment
	if os.Getenv("LINKEDIN_ACCESS_TOKEN") != "" {
		return true
	}

	// Check keychain
	if cm.keyring.IsAvailable() {
		if token, err := cm.keyring.GetAccessToken(); err == nil && token != "" {
			return true
		}
	}

	// Check config file
	if creds, err := cm.loadConfigFile(); err == nil && creds.LinkedInAccessToken != "" {
		return true
	}

	return false
}
