package attrs

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func toAttrs(m map[string]int) Attrs {
	out := make(Attrs, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func TestDiffProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.Rng.Seed(1337)
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	key := gen.IntRange(0, 4).Map(func(i int) string { return string(rune('a' + i)) })
	snapshot := gen.MapOf(key, gen.IntRange(0, 3))

	properties.Property("a snapshot diffed against itself is empty", prop.ForAll(
		func(m map[string]int) bool {
			a := toAttrs(m)
			return len(Diff(a, a.Clone())) == 0
		},
		snapshot,
	))

	properties.Property("applying the delta to prev yields next", prop.ForAll(
		func(p, n map[string]int) bool {
			prev, next := toAttrs(p), toAttrs(n)
			applied := prev.Clone()
			for k, v := range Diff(prev, next) {
				if _, ok := next[k]; !ok {
					delete(applied, k)
					continue
				}
				applied[k] = v
			}
			return applied.Equal(next)
		},
		snapshot, snapshot,
	))

	properties.Property("delta never holds keys equal in both snapshots", prop.ForAll(
		func(p, n map[string]int) bool {
			prev, next := toAttrs(p), toAttrs(n)
			for k := range Diff(prev, next) {
				pv, inPrev := prev[k]
				nv, inNext := next[k]
				if inPrev && inNext && Equal(pv, nv) {
					return false
				}
			}
			return true
		},
		snapshot, snapshot,
	))

	properties.TestingRun(t)
}
