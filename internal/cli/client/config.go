package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/mpedge/internal/cli"
)

const (
	envAPIKey = "MPEDGE_API_KEY"
	envAPIURL = "MPEDGE_API_URL"

	defaultAPIURL = "http://localhost:8080"
)

// GlobalConfig is the saved login in <user config dir>/mpedge/config.json
type GlobalConfig struct {
	APIKey string `json:"api_key,omitempty"`
	APIURL string `json:"api_url,omitempty"`
}

var getConfigPathFunc = defaultGetConfigPath

func defaultGetConfigPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	return filepath.Join(dir, "mpedge", "config.json"), nil
}

// GetConfigPath returns the full path to the global config file
func GetConfigPath() (string, error) {
	return getConfigPathFunc()
}

// LoadGlobalConfig returns nil without error when no config has been saved.
func LoadGlobalConfig() (*GlobalConfig, error) {
	path, err := GetConfigPath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg GlobalConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return &cfg, nil
}

// SaveGlobalConfig writes the config with 0600 permissions
func SaveGlobalConfig(cfg *GlobalConfig) error {
	if cfg == nil {
		return fmt.Errorf("config cannot be nil")
	}

	path, err := GetConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// DeleteGlobalConfig removes the saved login. Missing files are not an error.
func DeleteGlobalConfig() error {
	path, err := GetConfigPath()
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete config file: %w", err)
	}
	return nil
}

// CredentialSource names where the API key was found
type CredentialSource string

const (
	SourceFlag         CredentialSource = "flag"
	SourceEnv          CredentialSource = "env"
	SourceGlobalConfig CredentialSource = "global_config"
	SourceNone         CredentialSource = "none"
)

// Credentials is the resolved server location and key.
type Credentials struct {
	Source CredentialSource
	APIKey string
	APIURL string
}

// ResolveCredentials resolves key and URL independently: flag, then
// environment, then global config. The URL falls back to localhost.
func ResolveCredentials(flagKey, flagURL string) (Credentials, error) {
	creds := Credentials{Source: SourceNone, APIKey: flagKey, APIURL: flagURL}
	if flagKey != "" {
		creds.Source = SourceFlag
	}

	if creds.APIKey == "" {
		if key := os.Getenv(envAPIKey); key != "" {
			creds.APIKey, creds.Source = key, SourceEnv
		}
	}
	if creds.APIURL == "" {
		creds.APIURL = os.Getenv(envAPIURL)
	}

	if creds.APIKey == "" || creds.APIURL == "" {
		global, err := LoadGlobalConfig()
		if err != nil {
			return Credentials{}, err
		}
		if global != nil {
			if creds.APIKey == "" && global.APIKey != "" {
				creds.APIKey, creds.Source = global.APIKey, SourceGlobalConfig
			}
			if creds.APIURL == "" {
				creds.APIURL = global.APIURL
			}
		}
	}

	if creds.APIURL == "" {
		creds.APIURL = defaultAPIURL
	}
	return creds, nil
}

// AddGlobalFlags defines the persistent flags every client command reads.
func AddGlobalFlags(root *cobra.Command) {
	flags := root.PersistentFlags()
	flags.Bool("output", false, "Output as JSON")
	flags.String("api-key", "", "API key (overrides env and config)")
	flags.String("api-url", "", "API base URL (overrides env and config)")
	cli.BindFlagEnv(flags, "api-key", envAPIKey)
	cli.BindFlagEnv(flags, "api-url", envAPIURL)
}
