// Package cmd provides common initialization functions for command-line applications.
package cmd

import (
	"log/slog"
	"os"

	"github.com/dukex/flowrun/pkg/protocol"
	"github.com/dukex/flowrun/pkg/registry"
)

// NewRegistry registers the built-in nodes plus any node plugins found under
// pluginsPath, then builds every handler with deps.
func NewRegistry(log *slog.Logger, pluginsPath string, deps protocol.Dependencies) (*registry.Registry, error) {
	reg := registry.NewRegistry(log)
	reg.RegisterDefaultNodes()

	if pluginsPath != "" {
		if _, err := os.Stat(pluginsPath); err == nil {
			plugins, err := reg.LoadNodePlugins(pluginsPath)
			if err != nil {
				return nil, err
			}

			for _, plugin := range plugins {
				reg.RegisterNode(plugin)
			}
		}
	}

	if err := reg.Build(deps); err != nil {
		return nil, err
	}

	return reg, nil
}
