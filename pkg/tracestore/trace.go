// Package tracestore persists recorded hook traces so runs can be compared
// across builds. Traces are stored as JSON documents on disk or in S3.
package tracestore

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/vango-dev/cascade/pkg/cascade"
)

// ErrNotFound is returned when a trace does not exist.
var ErrNotFound = errors.New("tracestore: trace not found")

// Trace is the recorded outcome of one scenario run.
type Trace struct {
	ID         string      `json:"id"`
	Scenario   string      `json:"scenario"`
	RecordedAt time.Time   `json:"recordedAt"`
	Passed     bool        `json:"passed"`
	Steps      []StepTrace `json:"steps"`
}

// StepTrace is one step of a trace.
type StepTrace struct {
	Name     string          `json:"name"`
	Events   []cascade.Event `json:"events"`
	Text     string          `json:"text"`
	Warnings int             `json:"warnings,omitempty"`
	Error    string          `json:"error,omitempty"`
	Failures []string        `json:"failures,omitempty"`
}

// Hooks returns the step's notifications as "label:hook".
func (s StepTrace) Hooks() []string {
	out := make([]string, len(s.Events))
	for i, e := range s.Events {
		out[i] = e.String()
	}
	return out
}

// Store saves and loads traces.
type Store interface {
	Save(ctx context.Context, t *Trace) error
	Load(ctx context.Context, id string) (*Trace, error)
	List(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, id string) error
}

var slugRE = regexp.MustCompile(`[^a-z0-9]+`)

// NewID derives a trace id from the scenario name and the recording time.
func NewID(scenario string, at time.Time) string {
	slug := strings.Trim(slugRE.ReplaceAllString(strings.ToLower(scenario), "-"), "-")
	if slug == "" {
		slug = "trace"
	}
	return fmt.Sprintf("%s-%s", slug, at.UTC().Format("20060102T150405.000000000Z"))
}

func validID(id string) error {
	if id == "" || strings.ContainsAny(id, `/\`) || strings.HasPrefix(id, ".") {
		return fmt.Errorf("tracestore: invalid trace id %q", id)
	}
	return nil
}

// Diff compares the hook sequences of two traces step by step and returns
// a human readable line per difference.
func Diff(a, b *Trace) []string {
	var out []string
	n := len(a.Steps)
	if len(b.Steps) > n {
		n = len(b.Steps)
	}
	for i := 0; i < n; i++ {
		switch {
		case i >= len(a.Steps):
			out = append(out, fmt.Sprintf("step %d (%s): only in %s", i, b.Steps[i].Name, b.ID))
			continue
		case i >= len(b.Steps):
			out = append(out, fmt.Sprintf("step %d (%s): only in %s", i, a.Steps[i].Name, a.ID))
			continue
		}
		ha, hb := strings.Join(a.Steps[i].Hooks(), ", "), strings.Join(b.Steps[i].Hooks(), ", ")
		if ha != hb {
			out = append(out, fmt.Sprintf("step %d (%s): hooks differ\n  %s: %s\n  %s: %s", i, a.Steps[i].Name, a.ID, ha, b.ID, hb))
		}
		if a.Steps[i].Text != b.Steps[i].Text {
			out = append(out, fmt.Sprintf("step %d (%s): text %q vs %q", i, a.Steps[i].Name, a.Steps[i].Text, b.Steps[i].Text))
		}
	}
	return out
}
