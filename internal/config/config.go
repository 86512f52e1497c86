// Package config loads the proxy's optional YAML configuration file and
// applies the flag/positional-argument override precedence described in
// SPEC_FULL.md §4.6.
package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the full set of tunables the proxy accepts. Zero values mean
// "not set"; Resolve fills defaults.
type Config struct {
	Port          int    `yaml:"port"`
	AdminPort     int    `yaml:"adminPort"`
	AuditLogPath  string `yaml:"auditLogPath"`
	MaxObjectSize int    `yaml:"maxObjectSize"`
	MaxCacheSize  int    `yaml:"maxCacheSize"`
}

// Defaults mirror the constants from SPEC_FULL.md/spec.md.
const (
	DefaultAdminPort     = 9998
	DefaultMaxObjectSize = 102400
	DefaultMaxCacheSize  = 1048576
)

// Load reads and parses a YAML config file.
func Load(filename string) (Config, error) {
	var c Config
	raw, err := os.ReadFile(filename)
	if err != nil {
		return c, err
	}
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return c, err
	}
	return c, nil
}

// Resolve applies precedence: a non-zero flagPort wins over the config
// file's port field (cmd/proxyd passes the positional port argument as
// flagPort when one is given, so it wins over -port). The other fields
// fall back to their defaults if left unset by both flags and the config
// file; the port has no built-in default and stays 0 if unset.
func Resolve(fileConfig Config, flagPort, flagAdminPort int, flagAuditLog string) Config {
	resolved := fileConfig

	if flagPort != 0 {
		resolved.Port = flagPort
	}
	if flagAdminPort != 0 {
		resolved.AdminPort = flagAdminPort
	}
	if flagAuditLog != "" {
		resolved.AuditLogPath = flagAuditLog
	}
	if resolved.AdminPort == 0 {
		resolved.AdminPort = DefaultAdminPort
	}
	if resolved.MaxObjectSize == 0 {
		resolved.MaxObjectSize = DefaultMaxObjectSize
	}
	if resolved.MaxCacheSize == 0 {
		resolved.MaxCacheSize = DefaultMaxCacheSize
	}
	return resolved
}
