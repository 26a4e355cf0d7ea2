package errors

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
)

func TestErrorMatchesKindAndCause(t *testing.T) {
	err := AtLine(ErrInput, "decoding input", 12, io.ErrUnexpectedEOF)
	if !errors.Is(err, ErrInput) {
		t.Error("kind not matched")
	}
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Error("cause not matched")
	}
	if errors.Is(err, ErrPersistence) {
		t.Error("matched the wrong kind")
	}
	if msg := err.Error(); !strings.Contains(msg, "(line 12)") || !strings.Contains(msg, "decoding input") {
		t.Errorf("message = %q", msg)
	}
}

func TestLineOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "nil", err: nil, want: 0},
		{name: "plain", err: io.EOF, want: 0},
		{name: "no line", err: New(ErrPersistence, "insert", io.EOF), want: 0},
		{name: "direct", err: AtLine(ErrInput, "read", 3, io.EOF), want: 3},
		{name: "wrapped", err: fmt.Errorf("run: %w", AtLine(ErrOutput, "write", 9, io.EOF)), want: 9},
		{name: "nested", err: New(ErrPersistence, "flush", AtLine(ErrPersistence, "add", 4, io.EOF)), want: 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := LineOf(tt.err); got != tt.want {
				t.Errorf("LineOf = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestExitCodeAndKindName(t *testing.T) {
	tests := []struct {
		err  error
		code int
		kind string
	}{
		{err: nil, code: 0, kind: "none"},
		{err: Newf(ErrConfig, "validate", "missing %s", "STORE_URI"), code: 2, kind: "config"},
		{err: New(ErrInput, "read", io.EOF), code: 1, kind: "input"},
		{err: New(ErrPersistence, "insert", io.EOF), code: 1, kind: "persistence"},
		{err: New(ErrOutput, "write", io.EOF), code: 1, kind: "output"},
		{err: fmt.Errorf("slow: %w", ErrTimeout), code: 1, kind: "timeout"},
		{err: context.Canceled, code: 1, kind: "internal"},
	}
	for _, tt := range tests {
		if got := ExitCode(tt.err); got != tt.code {
			t.Errorf("ExitCode(%v) = %d, want %d", tt.err, got, tt.code)
		}
		if got := KindName(tt.err); got != tt.kind {
			t.Errorf("KindName(%v) = %q, want %q", tt.err, got, tt.kind)
		}
	}
}
