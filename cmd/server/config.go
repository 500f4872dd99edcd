package main

import (
	"fmt"

	"github.com/phrazzld/scry-fsrs/internal/config"
)

// loadAppConfig reads configuration from path, or from ./config.yaml and the
// environment when path is empty.
func loadAppConfig(path string) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if path != "" {
		cfg, err = config.LoadFile(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}
