package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dante-alpha-assistant/swarm-code/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "Manage configuration",
	Long: `View or modify swarm configuration.

Without arguments, displays the effective configuration.
With one argument (key), displays the value for that key.
With two arguments (key value), sets the value in the project config.

User defaults live in ~/.config/swarm-code/config.yaml.
Project settings live in .swarmrc.yaml at the repository root.
SWARM_* environment variables override both (SWARM_MAX_CONCURRENT=2).`,
	Args: cobra.MaximumNArgs(2),
	RunE: runConfig,
}

func runConfig(cmd *cobra.Command, args []string) error {
	dir, err := repoRoot()
	if err != nil {
		// Outside a repository only the user config applies.
		if dir, err = workDir(); err != nil {
			return err
		}
	}
	out := cmd.OutOrStdout()

	if len(args) == 2 {
		path, err := config.SetProjectValue(dir, args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Set %s = %s in %s\n", args[0], args[1], path)
		return nil
	}

	cfg, err := loadConfig(dir)
	if err != nil {
		return err
	}
	if len(args) == 1 {
		return displayConfigKey(out, cfg, args[0])
	}
	displayAllConfig(out, cfg, config.FindProjectConfig(dir))
	return nil
}

// displayAllConfig prints all configuration values.
func displayAllConfig(out io.Writer, cfg *config.Config, projectFile string) {
	fmt.Fprintf(out, "# user config: %s\n", config.GetUserConfigPath())
	if projectFile != "" {
		fmt.Fprintf(out, "# project config: %s\n", projectFile)
	} else {
		fmt.Fprintln(out, "# project config: (none)")
	}
	for _, key := range config.Keys() {
		value, _ := cfg.Get(key)
		if value == "" {
			value = "(not set)"
		}
		fmt.Fprintf(out, "%s: %s\n", key, value)
	}
	if env := cfg.DisplayAgentEnv(); len(env) > 0 {
		fmt.Fprintln(out, "agent_env:")
		for _, line := range env {
			fmt.Fprintf(out, "  %s\n", line)
		}
	}
}

// displayConfigKey prints a single configuration value.
func displayConfigKey(out io.Writer, cfg *config.Config, key string) error {
	key = strings.ToLower(key)
	if key == "agent_env" {
		for _, line := range cfg.DisplayAgentEnv() {
			fmt.Fprintln(out, line)
		}
		return nil
	}
	value, ok := cfg.Get(key)
	if !ok {
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	fmt.Fprintln(out, value)
	return nil
}
