package config

import (
	"fmt"
)

// validOutputs are the recognized output modes.
var validOutputs = map[string]bool{
	"": true, "auto": true, "text": true, "markdown": true, "json": true,
}

// Validate checks the configuration for values no command could run with.
// File existence is checked by the commands that need the files, so help
// and completion work in an empty directory.
func Validate(c *Config) error {
	if c.Processes < 1 {
		return fmt.Errorf("processes must be at least 1, got %d", c.Processes)
	}
	if !validOutputs[c.Output] {
		return fmt.Errorf("unknown output format %q (expected auto, text, markdown or json)", c.Output)
	}
	if c.MergeFile == "" {
		return fmt.Errorf("merge_file is required")
	}
	return nil
}
