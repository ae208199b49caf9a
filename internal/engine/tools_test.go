package engine

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func echoTool() Tool {
	return Tool{
		Name:        "echo",
		Description: "Echo back the input text.",
		SchemaJSON:  `{"type":"object","properties":{"text":{"type":"string"}},"required":["text"]}`,
		Fn: func(_ context.Context, args map[string]any) (string, error) {
			return args["text"].(string), nil
		},
		Retryable: true,
	}
}

func failingTool(name string) Tool {
	return Tool{
		Name:        name,
		Description: "Always fails.",
		SchemaJSON:  `{"type":"object"}`,
		Fn: func(_ context.Context, _ map[string]any) (string, error) {
			return "", errors.New("invalid input: boom")
		},
	}
}

func TestRegistryRegisterDuplicate(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Register(echoTool()); err != nil {
		t.Fatalf("first register: %v", err)
	}

	err := reg.Register(echoTool())
	if err == nil {
		t.Fatal("expected duplicate registration to fail")
	}
	var dup *DuplicateToolError
	if !errors.As(err, &dup) {
		t.Fatalf("expected DuplicateToolError, got %T", err)
	}
	if dup.Name != "echo" {
		t.Errorf("dup.Name = %q, want echo", dup.Name)
	}
	if reg.Len() != 1 {
		t.Errorf("Len() = %d after failed duplicate, want 1", reg.Len())
	}
}

func TestRegistryLookupUnknown(t *testing.T) {
	reg := NewRegistry()
	reg.MustRegister(echoTool())

	_, err := reg.Lookup("nope")
	var unknown *UnknownToolError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected UnknownToolError, got %v", err)
	}
	if len(unknown.Available) != 1 || unknown.Available[0] != "echo" {
		t.Errorf("Available = %v, want [echo]", unknown.Available)
	}
}

func TestRegistryDispatch(t *testing.T) {
	reg := NewRegistry()
	reg.MustRegister(echoTool())

	tests := []struct {
		name        string
		call        ToolCall
		wantSuccess bool
		wantContent string
		wantErrSub  string
	}{
		{
			name:        "success",
			call:        ToolCall{ID: "c1", Name: "echo", Args: map[string]any{"text": "hi"}},
			wantSuccess: true,
			wantContent: "hi",
		},
		{
			name:       "unknown tool",
			call:       ToolCall{ID: "c2", Name: "ghost", Args: map[string]any{}},
			wantErrSub: "not found",
		},
		{
			name:       "missing required arg",
			call:       ToolCall{ID: "c3", Name: "echo", Args: map[string]any{}},
			wantErrSub: "validation failed",
		},
		{
			name:       "wrong arg type",
			call:       ToolCall{ID: "c4", Name: "echo", Args: map[string]any{"text": 42}},
			wantErrSub: "validation failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := reg.Dispatch(context.Background(), tt.call)
			if res.Success != tt.wantSuccess {
				t.Fatalf("Success = %t, want %t (error: %s)", res.Success, tt.wantSuccess, res.Error)
			}
			if res.CallID != tt.call.ID {
				t.Errorf("CallID = %q, want %q", res.CallID, tt.call.ID)
			}
			if tt.wantSuccess && res.Content != tt.wantContent {
				t.Errorf("Content = %q, want %q", res.Content, tt.wantContent)
			}
			if tt.wantErrSub != "" && !strings.Contains(res.Error, tt.wantErrSub) {
				t.Errorf("Error = %q, want substring %q", res.Error, tt.wantErrSub)
			}
		})
	}
}

func TestRegistryDispatchNeverPanics(t *testing.T) {
	reg := NewRegistry()
	reg.MustRegister(Tool{
		Name:        "panicky",
		Description: "fails with execution error",
		SchemaJSON:  `{"type":"object"}`,
		Fn: func(_ context.Context, _ map[string]any) (string, error) {
			return "", errors.New("exploded")
		},
	})

	res := reg.Dispatch(context.Background(), ToolCall{ID: "c1", Name: "panicky", Args: map[string]any{}})
	if res.Success {
		t.Fatal("expected failure result")
	}
	if !strings.Contains(res.Error, "exploded") {
		t.Errorf("Error = %q, want underlying message preserved", res.Error)
	}
}

func TestRegistrySchemasOrder(t *testing.T) {
	reg := NewRegistry()
	reg.MustRegister(echoTool(), failingTool("alpha"), failingTool("zed"))

	schemas := reg.Schemas()
	got := make([]string, len(schemas))
	for i, s := range schemas {
		got[i] = s.Name
	}
	want := []string{"echo", "alpha", "zed"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Schemas order = %v, want %v", got, want)
		}
	}
}

func TestValidateArgs(t *testing.T) {
	tool := echoTool()

	if err := tool.ValidateArgs(map[string]any{"text": "ok"}); err != nil {
		t.Errorf("valid args rejected: %v", err)
	}

	err := tool.ValidateArgs(map[string]any{})
	var verr *ToolValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ToolValidationError, got %v", err)
	}
	if verr.ToolName != "echo" || len(verr.Errors) == 0 {
		t.Errorf("unexpected validation error contents: %+v", verr)
	}
}
