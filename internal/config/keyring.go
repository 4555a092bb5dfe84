package config

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/zalando/go-keyring"
)

const (
	// KeyringTokenService is the keychain service name for the LinkedIn access token
	KeyringTokenService = "LINKEDIN_ACCESS_TOKEN"

	// KeyringLLMService is the keychain service name for the LLM API key
	KeyringLLMService = "LLM_API_KEY"

	// KeyringDefaultAccount is used when no LinkedIn account is configured
	KeyringDefaultAccount = "default"
)

// KeyringManager handles secure credential storage in OS keychain
type KeyringManager struct {
	account string
	logger  *slog.Logger
}

// NewKeyringManager creates a keyring manager for the account named by
// LINKEDIN_ACCOUNT, falling back to the default account
func NewKeyringManager() *KeyringManager {
	account := os.Getenv("LINKEDIN_ACCOUNT")
	if account == "" {
		account = KeyringDefaultAccount
	}
	return NewKeyringManagerFor(account)
}

// NewKeyringManagerFor creates a keyring manager for a specific account
func NewKeyringManagerFor(account string) *KeyringManager {
	if account == "" {
		account = KeyringDefaultAccount
	}
	return &KeyringManager{
		account: account,
		logger:  slog.Default().With("component", "keyring"),
	}
}

// Account returns the keychain account this manager reads and writes
func (km *KeyringManager) Account() string {
	return km.account
}

// SaveAccessToken stores the LinkedIn access token in the OS keychain
// This uses OS-level encryption:
// - macOS: Keychain Access.app → "LINKEDIN_ACCESS_TOKEN" → account
// - Windows: Credential Manager
// - Linux: Secret Service (requires libsecret)
func (km *KeyringManager) SaveAccessToken(token string) error {
	if token == "" {
		return fmt.Errorf("access token cannot be empty")
	}

	err := keyring.Set(KeyringTokenService, km.account, token)
	if err != nil {
		km.logger.Error("failed to save access token to keychain", "error", err)
		return fmt.Errorf("failed to save to OS keychain: %w", err)
	}

	km.logger.Info("access token saved to keychain", "account", km.account)
	return nil
}

// GetAccessToken retrieves the LinkedIn access token from the OS keychain
func (km *KeyringManager) GetAccessToken() (string, error) {
	token, err := keyring.Get(KeyringTokenService, km.account)
	if err == keyring.ErrNotFound {
		// Not an error - just not set yet
		return "", nil
	}
	if err != nil {
		km.logger.Error("failed to get access token from keychain", "error", err)
		return "", fmt.Errorf("failed to read from OS keychain: %w", err)
	}

	km.logger.Debug("access token retrieved from keychain")
	return token, nil
}

// DeleteAccessToken removes the LinkedIn access token from the OS keychain
func (km *KeyringManager) DeleteAccessToken() error {
	err := keyring.Delete(KeyringTokenService, km.account)
	if err == keyring.ErrNotFound {
		// Already deleted, not an error
		return nil
	}
	if err != nil {
		km.logger.Error("failed to delete access token from keychain", "error", err)
		return fmt.Errorf("failed to delete from OS keychain: %w", err)
	}

	km.logger.Info("access token deleted from keychain")
	return nil
}

// SaveLLMKey stores the LLM API key in the OS keychain
func (km *KeyringManager) SaveLLMKey(apiKey string) error {
	if apiKey == "" {
		return fmt.Errorf("api key cannot be empty")
	}

	err := keyring.Set(KeyringLLMService, km.account, apiKey)
	if err != nil {
		km.logger.Error("failed to save LLM key to keychain", "error", err)
		return fmt.Errorf("failed to save to OS keychain: %w", err)
	}

	km.logger.Info("llm key saved to keychain", "account", km.account)
	return nil
}

// GetLLMKey retrieves the LLM API key from the OS keychain
func (km *KeyringManager) GetLLMKey() (string, error) {
	apiKey, err := keyring.Get(KeyringLLMService, km.account)
	if err == keyring.ErrNotFound {
		// Not an error - just not set yet
		return "", nil
	}
	if err != nil {
		km.logger.Error("failed to get LLM key from keychain", "error", err)
		return "", fmt.Errorf("failed to read from OS keychain: %w", err)
	}

	km.logger.Debug("llm key retrieved from keychain")
	return apiKey, nil
}

// DeleteLLMKey removes the LLM API key from the OS keychain
func (km *KeyringManager) DeleteLLMKey() error {
	err := keyring.Delete(KeyringLLMService, km.account)
	if err == keyring.ErrNotFound {
		// Already deleted, not an error
		return nil
	}
	if err != nil {
		km.logger.Error("failed to delete LLM key from keychain", "error", err)
		return fmt.Errorf("failed to delete from OS keychain: %w", err)
	}

	km.logger.Info("llm key deleted from keychain")
	return nil
}

// IsAvailable checks if OS keychain is available
// Returns false on headless systems (CI/CD) where keychain isn't available
func (km *KeyringManager) IsAvailable() bool {
	// Try to access keyring with a test operation
	_, err := keyring.Get(KeyringTokenService, "test-availability")

	// If error is "not found", keychain is available
	// If error is something else, keychain may not be available
	if err == keyring.ErrNotFound {
		return true
	}
	if err != nil {
		km.logger.Debug("keychain not available", "error", err)
		return false
	}

	return true
}

// KeySourceInfo returns information about where a credential is stored
type KeySourceInfo struct {
	Source      string // "keychain", "config", "env", "env_file", "none"
	Secure      bool   // true if stored securely (keychain or env var in CI/CD)
	Recommended string // recommendation if not optimal
}

// GetTokenSource determines where the LinkedIn access token is coming from
func (km *KeyringManager) GetTokenSource() KeySourceInfo {
	// Check environment variable first (highest precedence)
	if os.Getenv("LINKEDIN_ACCESS_TOKEN") != "" {
		return KeySourceInfo{
			Source:      "env",
			Secure:      true, // Acceptable for CI/CD
			Recommended: "Using environment variable (good for CI/CD)",
		}
	}

	// Check keychain
	keychainToken, _ := km.GetAccessToken()
	if keychainToken != "" {
		return KeySourceInfo{
			Source:      "keychain",
			Secure:      true,
			Recommended: "Stored securely in OS keychain ✅",
		}
	}

	// Check .env file
	if _, err := os.Stat(".env"); err == nil {
		return KeySourceInfo{
			Source:      "env_file",
			Secure:      false,
			Recommended: "Using .env file (OK for CI/CD, consider keychain for local dev)",
		}
	}

	return KeySourceInfo{
		Source:      "none",
		Secure:      false,
		Recommended: "No access token configured. Run: linkgraph login",
	}
}

// GetLLMKeySource determines where the LLM API key is coming from
func (km *KeyringManager) GetLLMKeySource(cfg *Config) KeySourceInfo {
	if os.Getenv("LLM_API_KEY") != "" || os.Getenv("OPENAI_API_KEY") != "" {
		return KeySourceInfo{
			Source:      "env",
			Secure:      true,
			Recommended: "Using environment variable (good for CI/CD)",
		}
	}

	keychainKey, _ := km.GetLLMKey()
	if keychainKey != "" {
		return KeySourceInfo{
			Source:      "keychain",
			Secure:      true,
			Recommended: "Stored securely in OS keychain ✅",
		}
	}

	if cfg != nil && cfg.LLM.APIKey != "" {
		return KeySourceInfo{
			Source:      "config",
			Secure:      false,
			Recommended: "⚠️  Plaintext storage detected. Run: linkgraph config set llm.api_key --keychain",
		}
	}

	if _, err := os.Stat(".env"); err == nil {
		return KeySourceInfo{
			Source:      "env_file",
			Secure:      false,
			Recommended: "Using .env file (OK for CI/CD, consider keychain for local dev)",
		}
	}

	return KeySourceInfo{
		Source:      "none",
		Secure:      false,
		Recommended: "No API key configured (ollama fallback will be used)",
	}
}

// MaskKey masks a credential for display
// Shows first 7 chars and last 4 chars: "sk-proj...abc123"
func MaskKey(key string) string {
	if key == "" {
		return "(not set)"
	}
	if len(key) < 12 {
		return "***"
	}
	return fmt.Sprintf("%s...%s", key[:7], key[len(key)-4:])
}
