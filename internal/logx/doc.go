// Package logx provides the application logger: slog with a handler wrapper
// that redacts credential-bearing attributes (password, ban, user_id, API
// keys) so portal credentials never appear in log output.
package logx
