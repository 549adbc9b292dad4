// Package config defines the immutable run configuration and credential
// record for the e-invoice fetcher, with validation and XDG-based path
// defaults. The configuration is assembled once at startup from CLI flags
// and the viper config file and passed down explicitly; no component reads
// ambient global state.
package config
