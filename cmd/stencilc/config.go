package main

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml"
)

// projectConfig is the stencil.toml project file. Command line flags
// override anything set here.
type projectConfig struct {
	// Inputs lists the analyzed file set documents to compile, in order.
	Inputs []string `toml:"inputs"`

	// Output is the archive path the compile command writes.
	Output string `toml:"output"`

	// Verify enables stack effect verification during compilation.
	Verify bool `toml:"verify"`
}

const defaultConfigFile = "stencil.toml"

func loadProjectConfig(path string) (*projectConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg projectConfig
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &cfg, nil
}
