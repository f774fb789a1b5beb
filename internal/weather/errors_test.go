package weather

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestError_Is(t *testing.T) {
	err := fmt.Errorf("fetch: %w", &Error{Kind: KindQuotaExceeded, StatusCode: 403})

	if !errors.Is(err, ErrQuotaExceeded) {
		t.Error("expected errors.Is to match ErrQuotaExceeded")
	}
	if errors.Is(err, ErrMissingAPIKey) {
		t.Error("errors.Is matched a different kind")
	}

	var e *Error
	if !errors.As(err, &e) || e.StatusCode != 403 {
		t.Errorf("errors.As = %v", e)
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		input    error
		expected ErrorKind
	}{
		{&Error{Kind: KindEmptyResponse}, KindEmptyResponse},
		{fmt.Errorf("wrapped: %w", &Error{Kind: KindTransportFailure}), KindTransportFailure},
		{errors.New("plain"), ""},
	}

	for _, tt := range tests {
		if got := KindOf(tt.input); got != tt.expected {
			t.Errorf("KindOf(%v) = %v, want %v", tt.input, got, tt.expected)
		}
	}
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		err         error
		errContains string
	}{
		{&Error{Kind: KindInvalidCoordinate}, "location"},
		{&Error{Kind: KindMissingAPIKey}, "API key"},
		{&Error{Kind: KindQuotaExceeded}, "quota"},
		{&Error{Kind: KindUpstreamFailure, Detail: "Internal application error."}, "Internal application error."},
		{&Error{Kind: KindMalformedPayload}, "could not be read"},
		{errors.New("boom"), "Something went wrong"},
	}

	for _, tt := range tests {
		got := userMessage(tt.err)
		if !strings.Contains(got, tt.errContains) {
			t.Errorf("userMessage(%v) = %q, want it to contain %q", tt.err, got, tt.errContains)
		}
	}
}
