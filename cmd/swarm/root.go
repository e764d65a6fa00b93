package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dante-alpha-assistant/swarm-code/internal/config"
	"github.com/dante-alpha-assistant/swarm-code/internal/git"
)

var rootDir string

var rootCmd = &cobra.Command{
	Use:   "swarm",
	Short: "Run coding agents in parallel on a dependency-ordered plan",
	Long: `swarm executes a plan of work packages with autonomous coding agents.

Each work package runs in its own git worktree and branch. Packages are
grouped into waves by their dependencies; the packages of a wave run in
parallel up to max_concurrent at a time. Successful work is merged into
the target branch and failed attempts are retried.

Run state is kept in .swarm-code/ so an interrupted run can be resumed.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&rootDir, "dir", "C", "", "Repository directory (default: current directory)")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(eventsCmd)
	rootCmd.AddCommand(cleanupCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

// workDir returns the --dir value or the current directory, made absolute.
func workDir() (string, error) {
	dir := rootDir
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("get working directory: %w", err)
		}
		dir = cwd
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", dir, err)
	}
	return abs, nil
}

// repoRoot returns the root of the git repository containing workDir.
func repoRoot() (string, error) {
	dir, err := workDir()
	if err != nil {
		return "", err
	}
	root, err := git.FindRepoRoot(dir)
	if err != nil {
		return "", fmt.Errorf("find git repository: %w", err)
	}
	return root, nil
}

// loadConfig loads the configuration that applies to repo.
func loadConfig(repo string) (*config.Config, error) {
	cfg, err := config.Load(repo)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}
