package providers

import (
	"strings"
	"testing"
)

func TestNewUnknownProvider(t *testing.T) {
	_, _, err := New("does-not-exist", "")
	if err == nil {
		t.Fatal("unknown provider accepted")
	}
	if !strings.Contains(err.Error(), "supported:") {
		t.Errorf("error does not list supported providers: %v", err)
	}
}

func TestNewMissingKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	if _, _, err := New("openai", ""); err == nil {
		t.Fatal("missing OPENAI_API_KEY accepted")
	}
}

func TestNewResolvesModel(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "test-key")
	t.Setenv("OPENAI_MODEL", "")

	_, model, err := New("openai", "")
	if err != nil {
		t.Fatal(err)
	}
	if model != "gpt-4o-mini" {
		t.Errorf("default model = %q", model)
	}

	_, model, err = New("openai", "gpt-4o")
	if err != nil {
		t.Fatal(err)
	}
	if model != "gpt-4o" {
		t.Errorf("explicit model = %q", model)
	}
}

func TestNewLocalProviderNeedsNoKey(t *testing.T) {
	t.Setenv("OLLAMA_API_KEY", "")
	if _, _, err := New("ollama", ""); err != nil {
		t.Fatalf("ollama without a key rejected: %v", err)
	}
}

func TestExtractErrorMetadata(t *testing.T) {
	tests := []struct {
		name       string
		errText    string
		wantStatus int
		wantAfter  string
	}{
		{"rate limited", "status code 429, retry-after: 30", 429, "30"},
		{"server error", "HTTP 503 service unavailable", 503, ""},
		{"plain", "connection refused", 0, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, after := extractErrorMetadata(errString(tt.errText))
			if status != tt.wantStatus {
				t.Errorf("status = %d, want %d", status, tt.wantStatus)
			}
			if after != tt.wantAfter {
				t.Errorf("retryAfter = %q, want %q", after, tt.wantAfter)
			}
		})
	}
}

type errString string

func (e errString) Error() string { return string(e) }
