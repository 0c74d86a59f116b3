package cascade

import "fmt"

// Hook identifies a lifecycle notification.
type Hook uint8

const (
	HookInit Hook = iota + 1
	HookWillUpdate
	HookWillReceiveAttrs
	HookWillRender
	HookDidInsertElement
	HookDidUpdate
	HookDidRender
	HookWillDestroyElement
	HookDidDestroyElement
)

var hookNames = map[Hook]string{
	HookInit:               "init",
	HookWillUpdate:         "willUpdate",
	HookWillReceiveAttrs:   "willReceiveAttrs",
	HookWillRender:         "willRender",
	HookDidInsertElement:   "didInsertElement",
	HookDidUpdate:          "didUpdate",
	HookDidRender:          "didRender",
	HookWillDestroyElement: "willDestroyElement",
	HookDidDestroyElement:  "didDestroyElement",
}

// String returns the hook's conventional camel-case name.
func (h Hook) String() string {
	if name, ok := hookNames[h]; ok {
		return name
	}
	return fmt.Sprintf("Hook(%d)", uint8(h))
}

// ParseHook converts a hook name back into a Hook.
func ParseHook(name string) (Hook, error) {
	for h, n := range hookNames {
		if n == name {
			return h, nil
		}
	}
	return 0, fmt.Errorf("cascade: unknown hook %q", name)
}

// Terminal reports whether the hook fires after the node has been painted.
func (h Hook) Terminal() bool {
	return h == HookDidInsertElement || h == HookDidUpdate || h == HookDidRender
}

// MarshalText implements encoding.TextMarshaler.
func (h Hook) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (h *Hook) UnmarshalText(text []byte) error {
	parsed, err := ParseHook(string(text))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}
