package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaults(t *testing.T) {
	t.Chdir(t.TempDir()) // no workdash.yaml in reach

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.CachePath != "work_items.db" {
		t.Errorf("unexpected default cache path %q", cfg.CachePath)
	}
	if cfg.Port != 8080 {
		t.Errorf("unexpected default port %d", cfg.Port)
	}
	if len(cfg.WorkItemTypes) != 1 || cfg.WorkItemTypes[0] != "Product Backlog Item" {
		t.Errorf("unexpected default work item types %v", cfg.WorkItemTypes)
	}
	if cfg.PAT != "" {
		t.Errorf("expected empty PAT by default, got one")
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("WORKDASH_PAT", "env-token")
	t.Setenv("WORKDASH_ORGANIZATION_URL", "https://dev.azure.com/acme")
	t.Setenv("WORKDASH_PROJECT", "Platform")
	t.Setenv("WORKDASH_CACHE_PATH", "/tmp/custom.db")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.PAT != "env-token" {
		t.Errorf("expected PAT from environment, got %q", cfg.PAT)
	}
	if cfg.OrganizationURL != "https://dev.azure.com/acme" {
		t.Errorf("unexpected organization URL %q", cfg.OrganizationURL)
	}
	if cfg.Project != "Platform" {
		t.Errorf("unexpected project %q", cfg.Project)
	}
	if cfg.CachePath != "/tmp/custom.db" {
		t.Errorf("unexpected cache path %q", cfg.CachePath)
	}

	if err := cfg.ValidateRemote(); err != nil {
		t.Errorf("expected remote config to validate, got %v", err)
	}
}

func TestConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "workdash.yaml")
	content := `organization_url: https://dev.azure.com/acme
project: Platform
assigned_to: Jamie Doe
work_item_types:
  - Bug
  - Product Backlog Item
port: 9000
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Project != "Platform" {
		t.Errorf("unexpected project %q", cfg.Project)
	}
	if cfg.AssignedTo != "Jamie Doe" {
		t.Errorf("unexpected assignee %q", cfg.AssignedTo)
	}
	if len(cfg.WorkItemTypes) != 2 {
		t.Errorf("unexpected work item types %v", cfg.WorkItemTypes)
	}
	if cfg.Port != 9000 {
		t.Errorf("unexpected port %d", cfg.Port)
	}
}

func TestExplicitConfigFileMustExist(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected an error for a missing explicit config file")
	}
}

func TestValidateRemote(t *testing.T) {
	cfg := &Config{}
	if err := cfg.ValidateRemote(); err == nil {
		t.Error("expected error for empty remote config")
	}

	cfg.OrganizationURL = "https://dev.azure.com/acme"
	cfg.Project = "Platform"
	if err := cfg.ValidateRemote(); err == nil {
		t.Error("expected error when PAT is missing")
	}

	cfg.PAT = "token"
	if err := cfg.ValidateRemote(); err != nil {
		t.Errorf("expected valid remote config, got %v", err)
	}
}
