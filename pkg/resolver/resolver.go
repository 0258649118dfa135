// Package resolver maps live objects to dotted object paths and back.
//
// A path is built from object names along the ancestor chain; any run of
// unnamed ancestors collapses into a single "*" segment. When the object
// itself is unnamed the path ends with "*" and the record must carry class
// hints to pick the object out again.
package resolver

import (
	"errors"
	"fmt"
	"strings"

	"Puppeteer/pkg/logging"
	"Puppeteer/pkg/record"
	"Puppeteer/pkg/toolkit"
)

// Wildcard stands for one or more unnamed ancestors, or an unnamed target.
const Wildcard = "*"

var (
	// ErrNotFound means no live object matched.
	ErrNotFound = errors.New("no matching object")
	// ErrAmbiguous means more than one live object matched. Paths that end in
	// a name are not disambiguated further.
	ErrAmbiguous = errors.New("ambiguous object path")
	// ErrNoClassHints means the path ends in a wildcard but the record has no
	// classhints to narrow it.
	ErrNoClassHints = errors.New("path ends with a wildcard but no classhints given")
)

// ResolutionError describes a failed lookup.
type ResolutionError struct {
	Path  string
	Count int
	Err   error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolve %q: %v (%d candidates)", e.Path, e.Err, e.Count)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// PathOf builds the object path of obj.
func PathOf(obj toolkit.Object) string {
	if obj == nil {
		return ""
	}

	var segments []string
	for cur := obj; cur != nil; {
		name := cur.ObjectName()
		parent := cur.Parent()
		if name == "" {
			for parent != nil && parent.ObjectName() == "" {
				parent = parent.Parent()
			}
			name = Wildcard
		}
		segments = append(segments, name)
		cur = parent
	}

	for i, j := 0, len(segments)-1; i < j; i, j = i+1, j-1 {
		segments[i], segments[j] = segments[j], segments[i]
	}
	return strings.Join(segments, ".")
}

// Descendants returns every descendant of root (root excluded) named name,
// in depth-first pre-order.
func Descendants(root toolkit.Object, name string) []toolkit.Object {
	var out []toolkit.Object
	for _, child := range root.Children() {
		if child.ObjectName() == name {
			out = append(out, child)
		}
		out = append(out, Descendants(child, name)...)
	}
	return out
}

// Resolve finds the single live object addressed by rec's objectPath and
// classhints.
func Resolve(app toolkit.Application, rec *record.EventRecord) (toolkit.Object, error) {
	path := rec.ObjectPath()

	candidates, endsWithWildcard := walkPath(app.TopLevelObjects(), strings.Split(path, "."))

	if endsWithWildcard {
		hints := rec.ClassHints()
		if hints == nil {
			return nil, &ResolutionError{Path: path, Count: len(candidates), Err: ErrNoClassHints}
		}
		candidates = FilterByClassHints(candidates, hints)
	}

	switch len(candidates) {
	case 1:
		logging.LogDebug("resolver").Str("objectPath", path).Msg("Found exactly one object")
		return candidates[0], nil
	case 0:
		return nil, &ResolutionError{Path: path, Err: ErrNotFound}
	default:
		return nil, &ResolutionError{Path: path, Count: len(candidates), Err: ErrAmbiguous}
	}
}

// walkPath narrows the top-level objects segment by segment. It reports
// whether the terminal segment was a wildcard.
func walkPath(topLevel []toolkit.Object, segments []string) ([]toolkit.Object, bool) {
	working := topLevel
	wildcard := true

	if len(segments) > 0 && segments[0] != Wildcard {
		var matched []toolkit.Object
		for _, obj := range working {
			if obj.ObjectName() == segments[0] {
				matched = append(matched, obj)
			}
		}
		working = matched
		wildcard = false
		segments = segments[1:]
	}

	for _, name := range segments {
		if len(working) == 0 {
			return nil, false
		}
		if name == Wildcard {
			wildcard = true
			continue
		}

		var matched []toolkit.Object
		for _, obj := range working {
			matched = append(matched, Descendants(obj, name)...)
		}
		working = matched
		wildcard = false
	}
	return working, wildcard
}

// FilterByClassHints keeps, for each candidate subtree, the outermost objects
// whose class is (or derives from) the hinted class and whose properties
// match every property child of hints.
func FilterByClassHints(candidates []toolkit.Object, hints *record.RecordNode) []toolkit.Object {
	className := hints.Attribute("name")
	if className == "" {
		return nil
	}

	var out []toolkit.Object
	for _, obj := range candidates {
		out = append(out, filterSubtree(obj, className, hints)...)
	}
	return out
}

func filterSubtree(obj toolkit.Object, className string, hints *record.RecordNode) []toolkit.Object {
	if obj.Inherits(className) && MatchProperties(obj, hints) {
		return []toolkit.Object{obj}
	}
	var out []toolkit.Object
	for _, child := range obj.Children() {
		out = append(out, filterSubtree(child, className, hints)...)
	}
	return out
}

// MatchProperties reports whether every property child of hints equals the
// live value, either exactly or after stripping accelerator markers from the
// live value.
func MatchProperties(obj toolkit.Object, hints *record.RecordNode) bool {
	for _, p := range hints.ChildrenNamed(record.PropertyName) {
		name := p.Attribute("name")
		want := p.Attribute("value")

		actual, ok := obj.Property(name)
		if !ok {
			return false
		}
		if want != actual && want != toolkit.StripMnemonic(actual) {
			return false
		}
		logging.LogDebug("resolver").
			Str("property", name).
			Str("value", want).
			Msg("Object has expected property")
	}
	return true
}
