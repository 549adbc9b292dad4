package transcribe

import (
	"context"
	"errors"
	"testing"

	"github.com/example/einvoicefetch/internal/testutil"
)

func TestBreakerTranscriberPassesThroughSuccess(t *testing.T) {
	inner := &testutil.ScriptedTranscriber{Results: []string{"12345"}}
	bt := NewBreakerTranscriber(inner)

	got, err := bt.Transcribe(context.Background(), []byte("audio"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "12345" {
		t.Errorf("Transcribe() = %q, want %q", got, "12345")
	}
	if bt.Name() != "scripted" {
		t.Errorf("Name() = %q, want scripted", bt.Name())
	}
}

func TestBreakerTranscriberOpensAfterConsecutiveFailures(t *testing.T) {
	inner := &testutil.ScriptedTranscriber{
		Results: []string{""},
		Errs:    []error{errors.New("engine down")},
	}
	bt := NewBreakerTranscriber(inner)

	for i := 0; i < 3; i++ {
		if _, err := bt.Transcribe(context.Background(), []byte("audio")); err == nil {
			t.Fatalf("call %d: expected error, got nil", i+1)
		}
	}
	if inner.Calls != 3 {
		t.Fatalf("engine calls before open = %d, want 3", inner.Calls)
	}

	// Breaker is open now: the next call fails fast without touching the engine.
	if _, err := bt.Transcribe(context.Background(), []byte("audio")); err == nil {
		t.Fatal("expected error from open breaker, got nil")
	}
	if inner.Calls != 3 {
		t.Errorf("engine calls after open = %d, want 3", inner.Calls)
	}
}
