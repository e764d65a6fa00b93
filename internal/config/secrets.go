package config

import (
	"os"
	"sort"
	"strings"
)

// secretMarkers flag environment names whose values should not be printed.
var secretMarkers = []string{"KEY", "TOKEN", "SECRET", "PASSWORD"}

// IsSecretName reports whether an environment variable name looks like a
// credential.
func IsSecretName(name string) bool {
	upper := strings.ToUpper(name)
	for _, m := range secretMarkers {
		if strings.Contains(upper, m) {
			return true
		}
	}
	return false
}

// MaskSecret returns a masked version of a secret for display, keeping only
// the last 4 characters of long values.
func MaskSecret(value string) string {
	if value == "" {
		return "(not set)"
	}
	if len(value) <= 12 {
		return "***"
	}
	return "***" + value[len(value)-4:]
}

// ResolvedAgentEnv returns AgentEnv with names upper-cased and values
// expanded against the current environment. Entries that expand to an
// empty string are dropped.
func (c *Config) ResolvedAgentEnv() map[string]string {
	env := make(map[string]string, len(c.AgentEnv))
	for name, value := range c.AgentEnv {
		// Config keys are case-insensitive; environment names are not.
		expanded := os.ExpandEnv(value)
		if expanded == "" {
			continue
		}
		env[strings.ToUpper(name)] = expanded
	}
	return env
}

// DisplayAgentEnv returns "NAME=value" lines for AgentEnv, masking
// credential-like values, sorted by name.
func (c *Config) DisplayAgentEnv() []string {
	resolved := c.ResolvedAgentEnv()
	names := make([]string, 0, len(resolved))
	for name := range resolved {
		names = append(names, name)
	}
	sort.Strings(names)

	lines := make([]string, 0, len(names))
	for _, name := range names {
		value := resolved[name]
		if IsSecretName(name) {
			value = MaskSecret(value)
		}
		lines = append(lines, name+"="+value)
	}
	return lines
}
