package dialect

import (
	"reflect"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// BindMarker is a placeholder occurrence in a SQL statement together with
// the operation that attaches a value to it. A BindMarker never changes once
// issued.
type BindMarker interface {
	// Placeholder returns the text to splice into the SQL statement.
	Placeholder() string
	// Bind binds v to the statement slot of this marker.
	Bind(b Binder, v any)
	// BindNull binds a typed NULL to the statement slot of this marker.
	BindNull(b Binder, t reflect.Type)
}

// BindMarkers generates successive bind markers for a single binding pass.
// It is stateful: use one instance per statement and do not share it between
// goroutines.
type BindMarkers interface {
	// Next returns a new BindMarker.
	Next() BindMarker
	// NextHint returns a new BindMarker. Implementations may use the hint to
	// produce more readable placeholders or ignore it.
	NextHint(hint string) BindMarker
}

// BindMarkersFunc adapts a function to the BindMarkers interface.
// NextHint ignores the hint and calls f.
type BindMarkersFunc func() BindMarker

// Next calls f().
func (f BindMarkersFunc) Next() BindMarker { return f() }

// NextHint calls f().
func (f BindMarkersFunc) NextHint(string) BindMarker { return f() }

// BindMarkersFactory creates BindMarkers. Create must be safe for concurrent
// use and must not share state between the returned instances.
type BindMarkersFactory interface {
	Create() BindMarkers
}

// BindMarkersFactoryFunc adapts a function to the BindMarkersFactory interface.
type BindMarkersFactoryFunc func() BindMarkers

// Create calls f().
func (f BindMarkersFactoryFunc) Create() BindMarkers { return f() }

// AnonymousMarkers returns a factory for markers that render the same placeholder
// text (e.g. "?") and bind by their order of appearance.
func AnonymousMarkers(placeholder string) BindMarkersFactory {
	return BindMarkersFactoryFunc(func() BindMarkers {
		var index int
		return BindMarkersFunc(func() BindMarker {
			m := indexedMarker{placeholder: placeholder, index: index}
			index++
			return m
		})
	})
}

// IndexedMarkers returns a factory for markers rendered as prefix followed by the
// position, starting at begin. For example, IndexedMarkers("$", 1) generates
// "$1", "$2", and so on.
func IndexedMarkers(prefix string, begin int) BindMarkersFactory {
	return BindMarkersFactoryFunc(func() BindMarkers {
		var index int
		return BindMarkersFunc(func() BindMarker {
			m := indexedMarker{placeholder: prefix + strconv.Itoa(begin+index), index: index}
			index++
			return m
		})
	})
}

// NamedMarkers returns a factory for named markers. Names are namePrefix followed
// by a counter and, if a hint is given, an underscore and the sanitized hint.
// The hint is cut so that names fit in maxLength characters (0 means no
// limit). The counter part is never cut.
func NamedMarkers(prefix, namePrefix string, maxLength int) BindMarkersFactory {
	return BindMarkersFactoryFunc(func() BindMarkers {
		return &namedMarkers{prefix: prefix, namePrefix: namePrefix, maxLength: maxLength}
	})
}

type indexedMarker struct {
	placeholder string
	index       int
}

func (m indexedMarker) Placeholder() string { return m.placeholder }

func (m indexedMarker) Bind(b Binder, v any) { b.Bind(m.index, v) }

func (m indexedMarker) BindNull(b Binder, t reflect.Type) { b.BindNull(m.index, t) }

type namedMarkers struct {
	prefix     string
	namePrefix string
	maxLength  int
	counter    int
}

func (n *namedMarkers) Next() BindMarker {
	return n.NextHint("")
}

func (n *namedMarkers) NextHint(hint string) BindMarker {
	name := n.namePrefix + strconv.Itoa(n.counter)
	n.counter++
	if hint = SanitizeHint(hint); hint != "" {
		room := len(hint)
		if n.maxLength > 0 {
			room = min(room, n.maxLength-len(name)-1)
		}
		if room > 0 {
			name += "_" + hint[:room]
		}
	}
	return namedMarker{placeholder: n.prefix + name, name: name}
}

type namedMarker struct {
	placeholder string
	name        string
}

func (m namedMarker) Placeholder() string { return m.placeholder }

func (m namedMarker) Bind(b Binder, v any) { b.BindName(m.name, v) }

func (m namedMarker) BindNull(b Binder, t reflect.Type) { b.BindNullName(m.name, t) }

// SanitizeHint turns a name hint into a legal bind parameter identifier.
// Accents are removed, separators (space, '-', '.') become underscores and
// everything else except ASCII letters, digits and underscores is dropped.
func SanitizeHint(hint string) string {
	if hint == "" {
		return ""
	}
	// Transformers are stateful; build a new chain per call.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if s, _, err := transform.String(t, hint); err == nil {
		hint = s
	}
	var b strings.Builder
	b.Grow(len(hint))
	for i := 0; i < len(hint); i++ {
		switch c := hint[i]; {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '_':
			b.WriteByte(c)
		case c == ' ', c == '-', c == '.':
			b.WriteByte('_')
		}
	}
	return b.String()
}
