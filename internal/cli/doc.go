// Package cli wires the cobra command line and viper configuration into the
// validated run configuration.
package cli
