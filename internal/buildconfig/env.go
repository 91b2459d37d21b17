package buildconfig

import (
	"os"
	"strings"
)

// ModeEnvVar is the only environment variable consulted during resolution.
const ModeEnvVar = "NODE_ENV"

// Env is a snapshot of the process environment.
type Env map[string]string

// EnvFromOS snapshots the current process environment.
func EnvFromOS() Env {
	return EnvFromList(os.Environ())
}

// EnvFromList parses KEY=VALUE pairs. Entries without "=" are ignored and the
// last duplicate key wins, matching os.Getenv.
func EnvFromList(pairs []string) Env {
	env := make(Env, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			continue
		}
		env[key] = value
	}
	return env
}
