// Package config provides configuration management for swarm.
// It loads settings from the user config, a project .swarmrc file and
// SWARM_* environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/dante-alpha-assistant/swarm-code/pkg/models"
)

// ProjectConfigNames are the project config file names, in lookup order.
var ProjectConfigNames = []string{".swarmrc.yaml", ".swarmrc.yml", ".swarmrc.json"}

// EnvPrefix is the prefix of environment overrides (SWARM_MAX_CONCURRENT, ...).
const EnvPrefix = "SWARM"

// Config is the complete swarm configuration.
type Config struct {
	// Agent selects the coding agent: claude, codex or custom.
	Agent string `mapstructure:"agent"`
	// Model is passed to the agent when set.
	Model string `mapstructure:"model"`
	// Branch is the target branch work is merged into.
	Branch string `mapstructure:"branch"`
	// MaxConcurrent bounds simultaneous agent attempts.
	MaxConcurrent int `mapstructure:"max_concurrent"`
	// CustomCommand is the template run by the custom agent.
	CustomCommand string `mapstructure:"custom_command"`
	// AgentTimeout bounds one agent attempt.
	AgentTimeout time.Duration `mapstructure:"agent_timeout"`
	// MaxRetries is the number of retries after a failed first attempt.
	MaxRetries int `mapstructure:"max_retries"`
	// WorktreeBase is where worktrees are created.
	WorktreeBase string `mapstructure:"worktree_base"`
	// LogLevel is DEBUG, INFO, WARN or ERROR.
	LogLevel string `mapstructure:"log_level"`
	// AgentEnv is added to every agent's environment. Values may reference
	// environment variables as $VAR or ${VAR}.
	AgentEnv map[string]string `mapstructure:"agent_env"`
	// Events configures the optional event publisher.
	Events EventsConfig `mapstructure:"events"`
}

// EventsConfig configures progress event publishing.
type EventsConfig struct {
	// NATSURL enables publishing to a NATS server when set.
	NATSURL string `mapstructure:"nats_url"`
	// SubjectPrefix is prepended to the per-run subject.
	SubjectPrefix string `mapstructure:"subject_prefix"`
}

// Load reads configuration starting the project config search at dir.
func Load(dir string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(getUserConfigDir())
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	if projectConfig := FindProjectConfig(dir); projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading project config %s: %w", projectConfig, err)
		}
		if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
			return nil, fmt.Errorf("merging project config: %w", err)
		}
	}

	bindEnv(v)
	return unmarshal(v)
}

// LoadFromPath reads configuration from a single file plus defaults and
// environment overrides.
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	bindEnv(v)
	return unmarshal(v)
}

func bindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

func unmarshal(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	cfg.Events.NATSURL = os.ExpandEnv(cfg.Events.NATSURL)
	return cfg, nil
}

// SaveProject writes cfg to .swarmrc.yaml in dir and returns the path.
func SaveProject(cfg *Config, dir string) (string, error) {
	path := filepath.Join(dir, ProjectConfigNames[0])

	v := viper.New()
	for key, value := range cfg.settings() {
		v.Set(key, value)
	}
	if err := v.WriteConfigAs(path); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, nil
}

// SetProjectValue sets one key in the project config of dir, creating the
// file if needed. It returns the file written.
func SetProjectValue(dir, key, value string) (string, error) {
	if !IsKnownKey(key) {
		return "", fmt.Errorf("unknown config key %q (known: %s)", key, strings.Join(Keys(), ", "))
	}

	path := FindProjectConfig(dir)
	if path == "" {
		path = filepath.Join(dir, ProjectConfigNames[0])
	}

	v := viper.New()
	v.SetConfigFile(path)
	if _, err := os.Stat(path); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return "", fmt.Errorf("reading %s: %w", path, err)
		}
	}
	v.Set(key, value)

	// Decode the result to reject values of the wrong type before writing.
	check := viper.New()
	setDefaults(check)
	if err := check.MergeConfigMap(v.AllSettings()); err != nil {
		return "", err
	}
	cfg, err := unmarshal(check)
	if err != nil {
		return "", err
	}
	if err := cfg.Validate(); err != nil {
		return "", err
	}

	if err := v.WriteConfigAs(path); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, nil
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "swarm-code")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "swarm-code")
	}
	return filepath.Join(home, ".config", "swarm-code")
}

// FindProjectConfig searches dir and its parents for a project config file.
func FindProjectConfig(dir string) string {
	if dir == "" {
		var err error
		if dir, err = os.Getwd(); err != nil {
			return ""
		}
	}
	dir, err := filepath.Abs(dir)
	if err != nil {
		return ""
	}

	for {
		for _, name := range ProjectConfigNames {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

var defaults = map[string]any{
	"agent":                 string(models.AgentCodex),
	"model":                 "",
	"branch":                "main",
	"max_concurrent":        4,
	"custom_command":        "",
	"agent_timeout":         "30m",
	"max_retries":           2,
	"worktree_base":         "",
	"log_level":             "INFO",
	"events.nats_url":       "",
	"events.subject_prefix": "swarm",
}

func setDefaults(v *viper.Viper) {
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetDefault("agent_env", map[string]string{})
}

// Keys returns the scalar configuration keys in sorted order.
func Keys() []string {
	keys := make([]string, 0, len(defaults))
	for k := range defaults {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// IsKnownKey reports whether key is a scalar configuration key.
func IsKnownKey(key string) bool {
	_, ok := defaults[key]
	return ok
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Agent:         string(models.AgentCodex),
		Branch:        "main",
		MaxConcurrent: 4,
		AgentTimeout:  30 * time.Minute,
		MaxRetries:    2,
		LogLevel:      "INFO",
		AgentEnv:      map[string]string{},
		Events:        EventsConfig{SubjectPrefix: "swarm"},
	}
}

// Get returns the string form of a scalar key.
func (c *Config) Get(key string) (string, bool) {
	if !IsKnownKey(key) {
		return "", false
	}
	return fmt.Sprint(c.settings()[key]), true
}

func (c *Config) settings() map[string]any {
	s := map[string]any{
		"agent":                 c.Agent,
		"model":                 c.Model,
		"branch":                c.Branch,
		"max_concurrent":        c.MaxConcurrent,
		"custom_command":        c.CustomCommand,
		"agent_timeout":         c.AgentTimeout.String(),
		"max_retries":           c.MaxRetries,
		"worktree_base":         c.WorktreeBase,
		"log_level":             c.LogLevel,
		"events.nats_url":       c.Events.NATSURL,
		"events.subject_prefix": c.Events.SubjectPrefix,
	}
	if len(c.AgentEnv) > 0 {
		s["agent_env"] = c.AgentEnv
	}
	return s
}

// Validate checks that the configuration can drive a run.
func (c *Config) Validate() error {
	var errs []error
	agent := models.AgentType(c.Agent)
	if !agent.Valid() {
		errs = append(errs, fmt.Errorf("agent must be claude, codex or custom, got %q", c.Agent))
	}
	if agent == models.AgentCustom && c.CustomCommand == "" {
		errs = append(errs, errors.New("custom_command is required when agent is custom"))
	}
	if c.Branch == "" {
		errs = append(errs, errors.New("branch must not be empty"))
	}
	if c.MaxConcurrent < 1 {
		errs = append(errs, fmt.Errorf("max_concurrent must be at least 1, got %d", c.MaxConcurrent))
	}
	if c.AgentTimeout <= 0 {
		errs = append(errs, fmt.Errorf("agent_timeout must be positive, got %s", c.AgentTimeout))
	}
	if c.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("max_retries must not be negative, got %d", c.MaxRetries))
	}
	return errors.Join(errs...)
}

// RunConfig returns the immutable run settings for a repository.
func (c *Config) RunConfig(repo string) models.RunConfig {
	return models.RunConfig{
		Repo:          repo,
		Branch:        c.Branch,
		Agent:         models.AgentType(c.Agent),
		Model:         c.Model,
		CustomCommand: c.CustomCommand,
		MaxConcurrent: c.MaxConcurrent,
		AgentTimeout:  c.AgentTimeout.String(),
	}
}
