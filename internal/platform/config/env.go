// Package config loads process configuration from the environment.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// ParseEnv fills target from the process environment using its env and
// envDefault struct tags.
func ParseEnv(target any) error {
	return parse(target, env.Options{})
}

// ParseEnvFrom fills target from environ instead of the process
// environment.
func ParseEnvFrom(target any, environ map[string]string) error {
	return parse(target, env.Options{Environment: environ})
}

func parse(target any, opts env.Options) error {
	if err := env.ParseWithOptions(target, opts); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
