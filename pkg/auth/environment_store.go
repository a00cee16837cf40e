package auth

import (
	"os"
	"time"
)

// EnvironmentStore implements CredentialStore using environment variables.
// It serves one session at a time and is mainly useful in CI and containers.
type EnvironmentStore struct{}

// NewEnvironmentStore creates a new environment-based credential store
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

// Store is not supported for environment variables
func (e *EnvironmentStore) Store(account *Account) error {
	return ErrStoreUnavailable
}

// Retrieve gets the session from environment variables
func (e *EnvironmentStore) Retrieve(platform string) (*Account, error) {
	cookies := os.Getenv("MEDIACRAWL_COOKIES")
	userAgent := os.Getenv("MEDIACRAWL_USER_AGENT")

	if cookies == "" {
		return nil, ErrCredentialsNotFound
	}

	// The environment holds a single session; if a platform is pinned via
	// MEDIACRAWL_PLATFORM it must match the requested one
	envPlatform := os.Getenv("MEDIACRAWL_PLATFORM")
	if envPlatform != "" && platform != "" && envPlatform != platform {
		return nil, ErrCredentialsNotFound
	}
	if platform == "" {
		platform = envPlatform
	}

	return &Account{
		Platform:     platform,
		Cookies:      cookies,
		UserAgent:    userAgent,
		LastModified: time.Now(),
	}, nil
}

// List returns a single session if environment variables are set
func (e *EnvironmentStore) List() ([]*Account, error) {
	account, err := e.Retrieve("")
	if err != nil {
		return []*Account{}, nil
	}
	return []*Account{account}, nil
}

// Delete is not supported for environment variables
func (e *EnvironmentStore) Delete(platform string) error {
	return ErrStoreUnavailable
}

// Exists checks if environment credentials exist
func (e *EnvironmentStore) Exists(platform string) bool {
	return os.Getenv("MEDIACRAWL_COOKIES") != ""
}
