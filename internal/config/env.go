package config

import (
	"fmt"
	"os"
	"sort"
)

// setEnv exports env into the process environment in key order. Without
// override, variables that are already set keep their value.
func setEnv(env map[string]string, override bool) error {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if _, set := os.LookupEnv(k); set && !override {
			continue
		}
		if err := os.Setenv(k, env[k]); err != nil {
			return fmt.Errorf("set %s: %w", k, err)
		}
	}
	return nil
}
