package config

import (
	"testing"
)

func TestKeyringManager_SaveAndGetAccessToken(t *testing.T) {
	km := NewKeyringManagerFor("linkgraph-test")

	// Check if keychain is available (skip test on CI without keychain)
	if !km.IsAvailable() {
		t.Skip("Keychain not available, skipping test")
	}

	// Clean up before test
	defer km.DeleteAccessToken()

	testToken := "AQVtest123456789"

	err := km.SaveAccessToken(testToken)
	if err != nil {
		t.Fatalf("Failed to save access token: %v", err)
	}

	retrieved, err := km.GetAccessToken()
	if err != nil {
		t.Fatalf("Failed to get access token: %v", err)
	}

	if retrieved != testToken {
		t.Errorf("Expected token %s, got %s", testToken, retrieved)
	}
}

func TestKeyringManager_DeleteAccessToken(t *testing.T) {
	km := NewKeyringManagerFor("linkgraph-test")

	if !km.IsAvailable() {
		t.Skip("Keychain not available, skipping test")
	}

	testToken := "AQVtest-delete-123"

	err := km.SaveAccessToken(testToken)
	if err != nil {
		t.Fatalf("Failed to save access token: %v", err)
	}

	err = km.DeleteAccessToken()
	if err != nil {
		t.Fatalf("Failed to delete access token: %v", err)
	}

	// Verify it's deleted
	retrieved, err := km.GetAccessToken()
	if err != nil {
		t.Fatalf("Error getting access token after deletion: %v", err)
	}
	if retrieved != "" {
		t.Errorf("Expected empty token after deletion, got %s", retrieved)
	}
}

func TestKeyringManager_GetAccessToken_NotFound(t *testing.T) {
	km := NewKeyringManagerFor("linkgraph-test")

	if !km.IsAvailable() {
		t.Skip("Keychain not available, skipping test")
	}

	km.DeleteAccessToken()

	retrieved, err := km.GetAccessToken()
	if err != nil {
		t.Fatalf("Expected no error for missing token, got %v", err)
	}
	if retrieved != "" {
		t.Errorf("Expected empty token, got %s", retrieved)
	}
}

func TestKeyringManager_SaveAndGetLLMKey(t *testing.T) {
	km := NewKeyringManagerFor("linkgraph-test")

	if !km.IsAvailable() {
		t.Skip("Keychain not available, skipping test")
	}

	defer km.DeleteLLMKey()

	testKey := "sk-test123456789"

	err := km.SaveLLMKey(testKey)
	if err != nil {
		t.Fatalf("Failed to save LLM key: %v", err)
	}

	retrieved, err := km.GetLLMKey()
	if err != nil {
		t.Fatalf("Failed to get LLM key: %v", err)
	}

	if retrieved != testKey {
		t.Errorf("Expected key %s, got %s", testKey, retrieved)
	}
}

func TestKeyringManager_SaveEmptyToken(t *testing.T) {
	km := NewKeyringManagerFor("linkgraph-test")

	err := km.SaveAccessToken("")
	if err == nil {
		t.Error("Expected error when saving empty token")
	}
}

func TestMaskKey(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		expected string
	}{
		{"empty", "", "(not set)"},
		{"short", "sk-123", "***"},
		{"normal", "sk-proj-abcdefghij1234", "sk-proj...1234"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MaskKey(tt.key)
			if got != tt.expected {
				t.Errorf("MaskKey(%q) = %q, want %q", tt.key, got, tt.expected)
			}
		})
	}
}
