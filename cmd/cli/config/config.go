package config

import (
	"os"
	"path/filepath"
)

const (
	defaultAPIURL = "http://localhost:8080"
	tokenFileName = ".userdir_token"
)

// APIURL returns the base URL for the user directory API.
// It can be overridden with the USERDIR_API_URL environment variable.
func APIURL() string {
	if v := os.Getenv("USERDIR_API_URL"); v != "" {
		return v
	}
	return defaultAPIURL
}

// TokenPath returns the path of the locally stored JWT token.
func TokenPath() string {
	dir, _ := os.UserHomeDir()
	return filepath.Join(dir, tokenFileName)
}

// SaveToken stores the JWT token in the user's home directory, readable
// only by the owner.
func SaveToken(token string) error {
	return os.WriteFile(TokenPath(), []byte(token), 0600)
}

// ReadToken returns the locally stored JWT token.
func ReadToken() (string, error) {
	data, err := os.ReadFile(TokenPath())
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ClearToken removes the locally stored JWT token.
func ClearToken() error {
	return os.Remove(TokenPath())
}
