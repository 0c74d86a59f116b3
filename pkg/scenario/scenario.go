package scenario

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/vango-dev/cascade/pkg/cascade"
	"github.com/vango-dev/cascade/pkg/template"
)

// Scenario is one YAML fixture.
type Scenario struct {
	Name        string                   `yaml:"name"`
	Description string                   `yaml:"description,omitempty"`
	Components  map[string]ComponentSpec `yaml:"components"`
	Root        RootSpec                 `yaml:"root"`
	Mount       Expect                   `yaml:"mount"`
	Steps       []Step                   `yaml:"steps"`

	// Path is the file the scenario was loaded from.
	Path string `yaml:"-"`
}

// ComponentSpec scripts one component.
type ComponentSpec struct {
	Label    string              `yaml:"label,omitempty"`
	Template string              `yaml:"template"`
	State    map[string]any      `yaml:"state,omitempty"`
	On       map[string][]Action `yaml:"on,omitempty"`
}

// RootSpec is the host root every scenario mounts.
type RootSpec struct {
	Template string         `yaml:"template"`
	State    map[string]any `yaml:"state,omitempty"`
}

// Action is performed by a scripted component when one of its hooks fires.
// In YAML it is either the bare word "rerender" or a mapping.
type Action struct {
	Rerender  bool           `yaml:"rerender,omitempty"`
	Set       map[string]any `yaml:"set,omitempty"`
	SetParent map[string]any `yaml:"setParent,omitempty"`
	Fail      string         `yaml:"fail,omitempty"`

	// Once limits the action to the first time the hook fires on a node.
	Once bool `yaml:"once,omitempty"`
}

// UnmarshalYAML accepts the "rerender" shorthand.
func (a *Action) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		switch value.Value {
		case "rerender":
			a.Rerender = true
			return nil
		}
		return fmt.Errorf("line %d: unknown action %q", value.Line, value.Value)
	}
	type plain Action
	return value.Decode((*plain)(a))
}

// Step changes state or requests a rerender, then checks the outcome.
type Step struct {
	Name string `yaml:"name,omitempty"`

	// Target is the label of the node acted on. Empty means the root.
	Target   string         `yaml:"target,omitempty"`
	Set      map[string]any `yaml:"set,omitempty"`
	Rerender bool           `yaml:"rerender,omitempty"`
	Unmount  bool           `yaml:"unmount,omitempty"`

	Expect Expect `yaml:"expect"`
}

// Expect lists what a step must produce. Unset fields are not checked.
type Expect struct {
	Hooks    []string        `yaml:"hooks,omitempty"`
	NoHooks  bool            `yaml:"noHooks,omitempty"`
	Payloads []PayloadExpect `yaml:"payloads,omitempty"`
	Text     *string         `yaml:"text,omitempty"`
	Warnings *int            `yaml:"warnings,omitempty"`
	Error    string          `yaml:"error,omitempty"`
}

// PayloadExpect checks the payload of the first matching notification.
type PayloadExpect struct {
	Event string         `yaml:"event"`
	Attrs map[string]any `yaml:"attrs"`
}

// Parse decodes a scenario and validates it. Unknown fields are rejected.
func Parse(data []byte) (*Scenario, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var sc Scenario
	if err := dec.Decode(&sc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("scenario: empty document")
		}
		return nil, fmt.Errorf("scenario: %w", err)
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

// Load reads and parses one scenario file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	sc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	sc.Path = path
	if sc.Name == "" {
		sc.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return sc, nil
}

// Files lists the *.yaml and *.yml files of dir, sorted by name.
func Files(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch filepath.Ext(e.Name()) {
		case ".yaml", ".yml":
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	paths := make([]string, len(names))
	for i, name := range names {
		paths[i] = filepath.Join(dir, name)
	}
	return paths, nil
}

// LoadDir loads every scenario file of dir, sorted by file name.
func LoadDir(dir string) ([]*Scenario, error) {
	paths, err := Files(dir)
	if err != nil {
		return nil, err
	}
	out := make([]*Scenario, 0, len(paths))
	for _, path := range paths {
		sc, err := Load(path)
		if err != nil {
			return nil, err
		}
		out = append(out, sc)
	}
	return out, nil
}

// Validate checks that templates compile and hook names exist.
func (sc *Scenario) Validate() error {
	if sc.Root.Template == "" {
		return errors.New("scenario: root template is required")
	}
	if _, err := template.Compile(sc.Root.Template); err != nil {
		return fmt.Errorf("scenario: root template: %w", err)
	}
	for name, spec := range sc.Components {
		if !strings.Contains(name, "-") {
			return fmt.Errorf("scenario: component name %q must contain a dash", name)
		}
		if _, err := template.Compile(spec.Template); err != nil {
			return fmt.Errorf("scenario: component %s: %w", name, err)
		}
		for hook, actions := range spec.On {
			if _, err := cascade.ParseHook(hook); err != nil {
				return fmt.Errorf("scenario: component %s: %w", name, err)
			}
			for i, a := range actions {
				if !a.Rerender && a.Set == nil && a.SetParent == nil && a.Fail == "" {
					return fmt.Errorf("scenario: component %s: %s action %d does nothing", name, hook, i)
				}
			}
		}
	}
	for i, step := range sc.Steps {
		n := 0
		if step.Set != nil {
			n++
		}
		if step.Rerender {
			n++
		}
		if step.Unmount {
			n++
		}
		if n != 1 {
			return fmt.Errorf("scenario: step %d (%s) must do exactly one of set, rerender or unmount", i, step.Name)
		}
		if step.Unmount && step.Target != "" {
			return fmt.Errorf("scenario: step %d (%s) can only unmount the root", i, step.Name)
		}
	}
	return nil
}
