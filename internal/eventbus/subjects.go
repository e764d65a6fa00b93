package eventbus

import "fmt"

// DefaultPrefix is the subject prefix used when none is configured.
const DefaultPrefix = "swarm"

// RunSubject returns the subject events of one run are published on.
func RunSubject(prefix, runID string) string {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return fmt.Sprintf("%s.%s.events", prefix, runID)
}

// AllRunsSubject returns a wildcard subject matching the events of every run.
func AllRunsSubject(prefix string) string {
	return RunSubject(prefix, "*")
}
