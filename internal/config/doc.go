// Package config loads application settings with viper and validates them with
// go-playground/validator.
//
// Sources, lowest precedence first: built-in defaults, an optional config.yaml,
// and SCRY_-prefixed environment variables where dots become underscores
// (SCRY_SCHEDULER_REQUESTED_RETENTION).
package config
