// Package config handles YAML configuration loading with environment variable substitution.
//
// Configuration files support ${VAR} syntax for environment variable interpolation.
// Load reads the file, LoadWithDefaults fills unset optional fields, and
// LoadAndValidate also rejects incomplete configurations.
package config
