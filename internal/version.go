// Package internal holds shared metadata for the einvoicefetch binary.
package internal

// Version is the application version, overridable at build time with
// -ldflags "-X github.com/example/einvoicefetch/internal.Version=...".
var Version = "0.1.0"
