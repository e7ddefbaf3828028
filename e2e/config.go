package e2e

import (
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// E2E_LISTEN_ADDR is where the scenario engine binds; port 0 picks a
	// free port so parallel CI runs do not collide.
	ListenAddr string `envconfig:"E2E_LISTEN_ADDR" default:"127.0.0.1:0"`
	// E2E_HANDSHAKE_TIMEOUT mirrors the production default, shortened for CI
	HandshakeTimeout string `envconfig:"E2E_HANDSHAKE_TIMEOUT" default:"2s"`
	// E2E_STEP_TIMEOUT bounds every read a scenario performs
	StepTimeout string `envconfig:"E2E_STEP_TIMEOUT" default:"3s"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
