package config

import (
	"reflect"
	"testing"
)

func TestIsSecretName(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"ANTHROPIC_API_KEY", true},
		{"github_token", true},
		{"DB_PASSWORD", true},
		{"CLIENT_SECRET", true},
		{"CI", false},
		{"GOFLAGS", false},
	}
	for _, tt := range tests {
		if got := IsSecretName(tt.name); got != tt.want {
			t.Errorf("IsSecretName(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestMaskSecret(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", "(not set)"},
		{"short", "***"},
		{"sk-ant-api03-abcdefWXYZ", "***WXYZ"},
	}
	for _, tt := range tests {
		if got := MaskSecret(tt.in); got != tt.want {
			t.Errorf("MaskSecret(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestResolvedAgentEnv(t *testing.T) {
	t.Setenv("SWARM_TEST_UPSTREAM_KEY", "sk-secret-value-1234")

	cfg := Default()
	cfg.AgentEnv = map[string]string{
		"anthropic_api_key": "${SWARM_TEST_UPSTREAM_KEY}",
		"ci":                "1",
		"unset":             "$SWARM_TEST_DOES_NOT_EXIST",
	}

	got := cfg.ResolvedAgentEnv()
	want := map[string]string{"ANTHROPIC_API_KEY": "sk-secret-value-1234", "CI": "1"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ResolvedAgentEnv() = %v, want %v", got, want)
	}

	lines := cfg.DisplayAgentEnv()
	wantLines := []string{"ANTHROPIC_API_KEY=***1234", "CI=1"}
	if !reflect.DeepEqual(lines, wantLines) {
		t.Errorf("DisplayAgentEnv() = %v, want %v", lines, wantLines)
	}
}
