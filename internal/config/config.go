// Package config loads workdash configuration from the environment and an
// optional YAML config file.
//
// Every setting can come from an environment variable with the WORKDASH_
// prefix (WORKDASH_PAT, WORKDASH_ORGANIZATION_URL, ...) or from a
// workdash.yaml file in the working directory or ~/.config/workdash.
// Environment variables win.
//
// The personal access token is only ever read from those sources. It is
// never embedded in code and never written back out.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all workdash settings.
type Config struct {
	// OrganizationURL is the Azure DevOps organization base URL,
	// e.g. https://dev.azure.com/my-org
	OrganizationURL string `mapstructure:"organization_url"`

	// Project is the team project to query.
	Project string `mapstructure:"project"`

	// PAT is the personal access token used for API auth.
	PAT string `mapstructure:"pat"`

	// WorkItemTypes filters the remote listing query.
	WorkItemTypes []string `mapstructure:"work_item_types"`

	// AssignedTo filters the remote listing query by assignee display name.
	AssignedTo string `mapstructure:"assigned_to"`

	// CachePath is the SQLite cache file location.
	CachePath string `mapstructure:"cache_path"`

	// Port is the dashboard server listen port.
	Port int `mapstructure:"port"`
}

// Load reads configuration from the environment and, when present, a
// config file. If path is non-empty it names an explicit config file and
// failing to read it is an error; otherwise workdash.yaml is searched for
// in the working directory and ~/.config/workdash, and its absence is
// fine.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Every key needs a default so Unmarshal sees env-only values.
	v.SetDefault("organization_url", "")
	v.SetDefault("project", "")
	v.SetDefault("pat", "")
	v.SetDefault("assigned_to", "")
	v.SetDefault("cache_path", "work_items.db")
	v.SetDefault("port", 8080)
	v.SetDefault("work_item_types", []string{"Product Backlog Item"})

	v.SetEnvPrefix("WORKDASH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	} else {
		v.SetConfigName("workdash")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "workdash"))
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// ValidateRemote checks that everything needed to reach Azure DevOps is
// present. Commands that only read the local cache don't need this.
func (c *Config) ValidateRemote() error {
	if c.OrganizationURL == "" {
		return fmt.Errorf("organization URL is not set (WORKDASH_ORGANIZATION_URL or organization_url in config)")
	}
	if c.Project == "" {
		return fmt.Errorf("project is not set (WORKDASH_PROJECT or project in config)")
	}
	if c.PAT == "" {
		return fmt.Errorf("personal access token is not set (WORKDASH_PAT or pat in config)")
	}
	return nil
}
