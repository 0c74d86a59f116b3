package cascade

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestHookNamesRoundTrip(t *testing.T) {
	for h := HookInit; h <= HookDidDestroyElement; h++ {
		parsed, err := ParseHook(h.String())
		if err != nil {
			t.Fatalf("ParseHook(%q): %v", h.String(), err)
		}
		if parsed != h {
			t.Errorf("ParseHook(%q) = %v", h.String(), parsed)
		}
	}
	if _, err := ParseHook("didExplode"); err == nil {
		t.Error("expected an error for an unknown hook")
	}
	if got := Hook(42).String(); got != "Hook(42)" {
		t.Errorf("unknown hook string = %q", got)
	}
}

func TestHookTerminal(t *testing.T) {
	terminal := map[Hook]bool{
		HookDidInsertElement: true,
		HookDidUpdate:        true,
		HookDidRender:        true,
	}
	for h := HookInit; h <= HookDidDestroyElement; h++ {
		if h.Terminal() != terminal[h] {
			t.Errorf("%s.Terminal() = %v", h, h.Terminal())
		}
	}
}

func TestEventJSON(t *testing.T) {
	e := Event{Seq: 3, NodeID: 7, Label: "top", Hook: HookWillReceiveAttrs, Payload: map[string]any{"twitter": "@tomdale"}}
	data, err := json.Marshal(e)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(data), `"hook":"willReceiveAttrs"`) {
		t.Errorf("hook not encoded by name: %s", data)
	}

	var decoded Event
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.Hook != HookWillReceiveAttrs || decoded.String() != "top:willReceiveAttrs" {
		t.Errorf("decoded %v", decoded)
	}
}

func TestErrorKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{&StructuralError{Component: "x", Err: ErrUnknownComponent}, "structural"},
		{&NotificationError{Label: "x", Hook: HookInit, Err: errors.New("boom")}, "notification"},
		{fmt.Errorf("%w: loop", ErrReentrancyLimit), "reentrancy"},
		{ErrRerenderOutOfScope, "scope"},
		{context.Canceled, "canceled"},
		{context.DeadlineExceeded, "canceled"},
		{errors.New("other"), "other"},
	}
	for _, tt := range tests {
		if got := ErrorKind(tt.err); got != tt.want {
			t.Errorf("ErrorKind(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestDeprecatedMutationWarningMessage(t *testing.T) {
	w := &DeprecatedMutationWarning{Label: "tweet", Hook: HookDidInsertElement, Keys: []string{"twitter"}}
	msg := w.Error()
	if !strings.Contains(msg, "modified twitter inside the didInsertElement hook") {
		t.Errorf("unexpected message: %s", msg)
	}
}

func TestStructuralErrorMessage(t *testing.T) {
	err := &StructuralError{Component: "my-top", Label: "top", Err: ErrUnknownTemplate}
	if !strings.Contains(err.Error(), "top (my-top)") {
		t.Errorf("unexpected message: %s", err.Error())
	}
	if !errors.Is(err, ErrUnknownTemplate) {
		t.Error("StructuralError must unwrap")
	}
}
