// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package proxy

import (
	"errors"
	"time"

	"github.com/caarlos0/env/v11"
)

// ErrConfig is returned when the proxy configuration cannot be read.
var ErrConfig = errors.New("invalid proxy configuration")

// Config holds the proxy settings.
type Config struct {
	Host            string        `env:"INTERP_PROXY_HOST" envDefault:"127.0.0.1"`
	Port            int           `env:"INTERP_PROXY_PORT" envDefault:"0"`
	Handshake       bool          `env:"INTERP_PROXY_HANDSHAKE" envDefault:"true"`
	ShutdownTimeout time.Duration `env:"INTERP_PROXY_SHUTDOWN_TIMEOUT" envDefault:"5s"`
}

// ConfigFromEnv reads the configuration from environment variables.
func ConfigFromEnv() (Config, error) {
	var cfg Config

	if err := env.Parse(&cfg); err != nil {
		return Config{}, errors.Join(ErrConfig, err)
	}

	if cfg.Port < 0 || cfg.Port > 65535 {
		return Config{}, errors.Join(ErrConfig, errors.New("port out of range"))
	}

	return cfg, nil
}
