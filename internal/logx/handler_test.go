package logx

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestRedactingHandlerMasksSensitiveAttrs(t *testing.T) {
	tests := []struct {
		name   string
		attrs  []any
		secret string
	}{
		{
			name:   "password",
			attrs:  []any{"password", "hunter2"},
			secret: "hunter2",
		},
		{
			name:   "ban",
			attrs:  []any{"ban", "12345678"},
			secret: "12345678",
		},
		{
			name:   "user id",
			attrs:  []any{"user_id", "acme-admin"},
			secret: "acme-admin",
		},
		{
			name:   "api key",
			attrs:  []any{"api_key", "sk-verysecret"},
			secret: "sk-verysecret",
		},
		{
			name:   "key containing password",
			attrs:  []any{"portal_password", "hunter2"},
			secret: "hunter2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			log := NewLogger(&buf, false, false)
			log.Info("logging in", tt.attrs...)

			out := buf.String()
			if strings.Contains(out, tt.secret) {
				t.Errorf("secret %q leaked into log output:\n%s", tt.secret, out)
			}
			if !strings.Contains(out, MaskValue) {
				t.Errorf("mask missing from log output:\n%s", out)
			}
		})
	}
}

func TestRedactingHandlerKeepsOrdinaryAttrs(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(&buf, false, false)
	log.Info("attempting captcha", "attempt", 2, "max_attempts", 3)

	out := buf.String()
	for _, want := range []string{"attempt=2", "max_attempts=3", "attempting captcha"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, MaskValue) {
		t.Errorf("ordinary attributes were masked:\n%s", out)
	}
}

func TestRedactingHandlerMasksWithAttrs(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(&buf, false, false).With("token", "abc123")
	log.Info("session opened")

	if out := buf.String(); strings.Contains(out, "abc123") {
		t.Errorf("secret leaked through With():\n%s", out)
	}
}

func TestRedactingHandlerMasksGroups(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(&buf, false, false)
	log.Info("loaded credentials",
		slog.Group("portal",
			slog.String("password", "hunter2"),
			slog.String("login_url", "https://www.einvoice.nat.gov.tw/accounts/login"),
		),
	)

	out := buf.String()
	if strings.Contains(out, "hunter2") {
		t.Errorf("secret leaked inside group:\n%s", out)
	}
	if !strings.Contains(out, "login_url") {
		t.Errorf("non-sensitive group attr missing:\n%s", out)
	}
}

func TestNewLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(&buf, false, false)
	log.Debug("hidden")
	if buf.Len() != 0 {
		t.Errorf("debug output at info level: %s", buf.String())
	}

	buf.Reset()
	log = NewLogger(&buf, true, false)
	log.Debug("visible")
	if !strings.Contains(buf.String(), "visible") {
		t.Error("debug output missing at verbose level")
	}
}

func TestNewLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(&buf, false, true)
	log.Info("login successful", "password", "hunter2")

	out := buf.String()
	if !strings.HasPrefix(out, "{") {
		t.Errorf("expected JSON output, got:\n%s", out)
	}
	if strings.Contains(out, "hunter2") {
		t.Errorf("secret leaked into JSON output:\n%s", out)
	}
}
