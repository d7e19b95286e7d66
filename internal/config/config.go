// Package config manages workspace configuration.
//
// Configuration lives in .taskforge/config.yaml at the workspace root and
// is read through viper. Environment variables with the TF_ prefix override
// file values (TF_ACTOR, TF_STORAGE_BACKEND, ...). All getters are nil-safe:
// before Initialize they return zero values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config keys
const (
	KeyStorageBackend = "storage.backend"
	KeyStoragePath    = "storage.path"
	KeyStorageDSN     = "storage.dsn"
	KeyActor          = "actor"
	KeyReviewers      = "reviewers"
	KeyIDPrefix       = "id.prefix"
	KeyWebhookURL     = "notify.webhook-url"
)

// WorkspaceDir is the per-project directory holding config and state.
const WorkspaceDir = ".taskforge"

var v *viper.Viper

// Initialize loads configuration for the workspace rooted at dir. Missing
// config files are not an error; defaults and environment apply.
func Initialize(dir string) error {
	nv := viper.New()
	nv.SetConfigName("config")
	nv.SetConfigType("yaml")
	nv.AddConfigPath(filepath.Join(dir, WorkspaceDir))

	nv.SetEnvPrefix("TF")
	nv.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	nv.AutomaticEnv()

	registerDefaults(nv, dir)

	if err := nv.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	v = nv
	return nil
}

func registerDefaults(nv *viper.Viper, dir string) {
	nv.SetDefault(KeyStorageBackend, "sqlite")
	nv.SetDefault(KeyStoragePath, filepath.Join(dir, WorkspaceDir, "taskforge.db"))
	nv.SetDefault(KeyStorageDSN, "")
	nv.SetDefault(KeyActor, "")
	nv.SetDefault(KeyReviewers, []string{})
	nv.SetDefault(KeyIDPrefix, "tf")
	nv.SetDefault(KeyWebhookURL, "")
}

// Watch registers a callback invoked when the config file changes on disk.
func Watch(onChange func()) {
	if v == nil {
		return
	}
	v.OnConfigChange(func(_ fsnotify.Event) {
		onChange()
	})
	v.WatchConfig()
}

// GetString returns a string config value.
func GetString(key string) string {
	if v == nil {
		return ""
	}
	return v.GetString(key)
}

// GetStringSlice returns a string-slice config value.
func GetStringSlice(key string) []string {
	if v == nil {
		return nil
	}
	return v.GetStringSlice(key)
}

// GetBool returns a boolean config value.
func GetBool(key string) bool {
	if v == nil {
		return false
	}
	return v.GetBool(key)
}

// Actor returns the configured actor, falling back to the OS user.
func Actor() string {
	if actor := GetString(KeyActor); actor != "" {
		return actor
	}
	return os.Getenv("USER")
}

// FindWorkspaceRoot walks up from the working directory looking for a
// .taskforge directory.
func FindWorkspaceRoot() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get working directory: %w", err)
	}
	for dir := cwd; ; dir = filepath.Dir(dir) {
		if info, err := os.Stat(filepath.Join(dir, WorkspaceDir)); err == nil && info.IsDir() {
			return dir, nil
		}
		if dir == filepath.Dir(dir) {
			return "", fmt.Errorf("no %s directory found (run 'tf init' first)", WorkspaceDir)
		}
	}
}

// defaultFile is the structure written by WriteDefaultConfig.
type defaultFile struct {
	Storage struct {
		Backend string `yaml:"backend"`
		Path    string `yaml:"path,omitempty"`
		DSN     string `yaml:"dsn,omitempty"`
	} `yaml:"storage"`
	Actor     string   `yaml:"actor,omitempty"`
	Reviewers []string `yaml:"reviewers,omitempty"`
	ID        struct {
		Prefix string `yaml:"prefix"`
	} `yaml:"id"`
	Notify struct {
		WebhookURL string `yaml:"webhook-url,omitempty"`
	} `yaml:"notify"`
}

// WriteDefaultConfig creates .taskforge/config.yaml under dir with default
// values. Existing files are left untouched.
func WriteDefaultConfig(dir string) (string, error) {
	wsDir := filepath.Join(dir, WorkspaceDir)
	if err := os.MkdirAll(wsDir, 0o750); err != nil {
		return "", fmt.Errorf("failed to create workspace directory: %w", err)
	}
	path := filepath.Join(wsDir, "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}

	var cfg defaultFile
	cfg.Storage.Backend = "sqlite"
	cfg.Storage.Path = filepath.Join(wsDir, "taskforge.db")
	cfg.ID.Prefix = "tf"

	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return "", fmt.Errorf("failed to encode default config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("failed to write config.yaml: %w", err)
	}
	return path, nil
}

// Set writes a key into the workspace config.yaml and updates the loaded
// configuration.
func Set(dir, key, value string) error {
	if v == nil {
		if err := Initialize(dir); err != nil {
			return err
		}
	}
	v.Set(key, value)
	path := filepath.Join(dir, WorkspaceDir, "config.yaml")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if _, err := WriteDefaultConfig(dir); err != nil {
			return err
		}
	}
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Reset clears the loaded configuration. Test helper.
func Reset() { v = nil }
