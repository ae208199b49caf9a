package reasoning

import (
	"context"
	"encoding/json"
	"testing"
)

func TestThinkAcceptsBothKeys(t *testing.T) {
	tool := NewThinkTool()

	for _, key := range []string{"reasoning", "reason"} {
		raw, err := tool.Fn(context.Background(), map[string]any{key: "checking the config layer first"})
		if err != nil {
			t.Fatalf("%s key rejected: %v", key, err)
		}
		var res map[string]any
		if err := json.Unmarshal([]byte(raw), &res); err != nil {
			t.Fatal(err)
		}
		if res["status"] != "noted" {
			t.Errorf("status = %v", res["status"])
		}
	}
}

func TestThinkRejectsEmpty(t *testing.T) {
	tool := NewThinkTool()
	if _, err := tool.Fn(context.Background(), map[string]any{}); err == nil {
		t.Fatal("empty reasoning accepted")
	}
	if _, err := tool.Fn(context.Background(), map[string]any{"reasoning": ""}); err == nil {
		t.Fatal("blank reasoning accepted")
	}
}

func TestRespond(t *testing.T) {
	tool := NewRespondTool()

	raw, err := tool.Fn(context.Background(), map[string]any{
		"summary":       "Added the retry wrapper and its tests.",
		"files_changed": []any{"internal/engine/retry.go", "internal/engine/retry_test.go"},
		"next_steps":    []any{"run the full suite"},
	})
	if err != nil {
		t.Fatal(err)
	}

	var res RespondResult
	if err := json.Unmarshal([]byte(raw), &res); err != nil {
		t.Fatal(err)
	}
	if res.Status != "complete" {
		t.Errorf("status = %q", res.Status)
	}
	if len(res.FilesChanged) != 2 || res.FilesChanged[0] != "internal/engine/retry.go" {
		t.Errorf("files_changed = %v", res.FilesChanged)
	}
	if len(res.NextSteps) != 1 {
		t.Errorf("next_steps = %v", res.NextSteps)
	}
}

func TestRespondRequiresSummary(t *testing.T) {
	tool := NewRespondTool()
	if _, err := tool.Fn(context.Background(), map[string]any{"summary": ""}); err == nil {
		t.Fatal("empty summary accepted")
	}
}
