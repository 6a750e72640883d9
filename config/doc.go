// Package config loads the YAML configuration of a localization run.
//
//	cfg, err := config.Load("run.yaml")
//	if err != nil { ... }
//	if err := cfg.Validate(); err != nil { ... }
//
// Unknown keys are rejected. Paths are blob names relative to the configured
// storage backend.
package config
