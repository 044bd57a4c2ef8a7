package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// ServerConfig holds configuration for the HTTP server
type ServerConfig struct {
	Port        int    `yaml:"port"`
	Enabled     bool   `yaml:"enabled"` // require the bearer token
	BearerToken string `yaml:"bearerToken,omitempty"`
	CORS        CORS   `yaml:"cors"`
	// MaxBodyBytes bounds request bodies; extract payloads carry whole LLM responses
	MaxBodyBytes int64 `yaml:"maxBodyBytes,omitempty"`
}

// CORS holds Cross-Origin Resource Sharing settings
type CORS struct {
	Enabled        bool     `yaml:"enabled"`
	AllowedOrigins []string `yaml:"allowedOrigins"`
	AllowedMethods []string `yaml:"allowedMethods"`
	AllowedHeaders []string `yaml:"allowedHeaders"`
	MaxAge         int      `yaml:"maxAge"`
}

// DefaultServerConfig returns the settings used when none are configured
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Port:         8080,
		MaxBodyBytes: 1 << 20,
		CORS: CORS{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Authorization", "Content-Type"},
			MaxAge:         3600,
		},
	}
}

// GenerateBearerToken returns a random 64 character hex token
func GenerateBearerToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("error generating random bytes: %w", err)
	}
	return hex.EncodeToString(b), nil
}
