// Package attrs holds attribute snapshots and the differ that decides which
// attributes a component actually received.
//
// A snapshot is the mapping of attribute name to evaluated value that a
// parent's template supplied to a child for one render pass. Diff compares
// the committed snapshot with the freshly evaluated one:
//
//	delta := attrs.Diff(
//	    attrs.Attrs{"name": "Tom Dale", "twitter": "@tomdale"},
//	    attrs.Attrs{"name": "Tom Dale", "twitter": "@hipstertomdale"},
//	)
//	// delta == attrs.Attrs{"twitter": "@hipstertomdale"}
//
// # Equality
//
// Primitives (booleans, strings, numbers, nil) and comparable value structs
// are compared by value. Pointers, maps, slices, funcs and channels are
// compared by reference, so mutating a shared map in place is not a change.
package attrs
