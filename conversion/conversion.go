// Package conversion holds the custom conversions applied to values that a
// driver cannot bind, or scan, natively.
//
// Writing converters turn a property value into a store value before it is
// bound to a statement. Reading converters turn a scanned store value back
// into the property type:
//
//	type Email struct{ Local, Domain string }
//
//	conv := conversion.New(
//	    conversion.NewWriting(func(e Email) (string, error) { return e.Local + "@" + e.Domain, nil }),
//	    conversion.NewReading(func(s string) (Email, error) { return ParseEmail(s) }),
//	)
package conversion

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"math"
	"reflect"

	"github.com/syssam/sqlbind/dialect"
)

// Direction tells when a converter applies.
type Direction uint8

// Converter directions.
const (
	// Writing converters apply to values bound to statements.
	Writing Direction = iota + 1
	// Reading converters apply to values scanned from rows.
	Reading
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case Writing:
		return "writing"
	case Reading:
		return "reading"
	default:
		return fmt.Sprintf("Direction(%d)", d)
	}
}

// ErrConversionNotSupported is returned when no conversion exists for a type.
var ErrConversionNotSupported = errors.New("conversion: not supported")

// ConversionNotSupportedError is returned when a value can neither be
// passed to the driver as is, nor converted by a registered converter.
type ConversionNotSupportedError struct {
	Type      reflect.Type
	Direction Direction
	// Target is the requested type of reading conversions.
	Target reflect.Type
}

// Error returns the error string.
func (e *ConversionNotSupportedError) Error() string {
	if e.Direction == Reading && e.Target != nil {
		return fmt.Sprintf("conversion: no reading conversion from %s to %s", e.Type, e.Target)
	}
	return fmt.Sprintf("conversion: no %s conversion for type %s", e.Direction, e.Type)
}

// Is reports whether the target error matches ErrConversionNotSupported.
func (e *ConversionNotSupportedError) Is(err error) bool {
	return err == ErrConversionNotSupported
}

// Converter converts values of its source type to its target type.
type Converter struct {
	direction Direction
	source    reflect.Type
	target    reflect.Type
	convert   func(any) (any, error)
}

// NewWriting returns a writing converter from property type S to store type T.
func NewWriting[S, T any](f func(S) (T, error)) *Converter {
	return newConverter(Writing, f)
}

// NewReading returns a reading converter from store type S to property type T.
func NewReading[S, T any](f func(S) (T, error)) *Converter {
	return newConverter(Reading, f)
}

func newConverter[S, T any](d Direction, f func(S) (T, error)) *Converter {
	return &Converter{
		direction: d,
		source:    reflect.TypeFor[S](),
		target:    reflect.TypeFor[T](),
		convert: func(v any) (any, error) {
			return f(v.(S))
		},
	}
}

// Direction returns the direction of the converter.
func (c *Converter) Direction() Direction { return c.direction }

// Source returns the type the converter accepts.
func (c *Converter) Source() reflect.Type { return c.source }

// Target returns the type the converter produces.
func (c *Converter) Target() reflect.Type { return c.target }

// Convert converts v, which must be of the source type.
func (c *Converter) Convert(v any) (any, error) {
	if t := reflect.TypeOf(v); t != c.source {
		return nil, fmt.Errorf("conversion: converter expects %s, got %v", c.source, t)
	}
	out, err := c.convert(v)
	if err != nil {
		return nil, fmt.Errorf("conversion: convert %s to %s: %w", c.source, c.target, err)
	}
	return out, nil
}

// String implements fmt.Stringer.
func (c *Converter) String() string {
	return fmt.Sprintf("%s converter %s -> %s", c.direction, c.source, c.target)
}

// Conversions is an immutable set of converters together with the simple
// types of a dialect. It is safe for concurrent use.
type Conversions struct {
	simple  *dialect.SimpleTypes
	writing map[reflect.Type]*Converter
	// reading converters, keyed by target type.
	reading map[reflect.Type][]*Converter
	all     []*Converter
}

// New returns the conversions for the given converters. Later converters
// replace earlier writing converters of the same source type.
func New(cs ...*Converter) *Conversions {
	c := &Conversions{
		simple:  dialect.NewSimpleTypes(),
		writing: make(map[reflect.Type]*Converter),
		reading: make(map[reflect.Type][]*Converter),
	}
	c.add(cs...)
	return c
}

func (c *Conversions) add(cs ...*Converter) {
	for _, cv := range cs {
		if cv == nil {
			continue
		}
		c.all = append(c.all, cv)
		switch cv.direction {
		case Writing:
			c.writing[cv.source] = cv
		case Reading:
			c.reading[cv.target] = append(c.reading[cv.target], cv)
		}
	}
}

// With returns a copy of c extended with the given converters.
func (c *Conversions) With(cs ...*Converter) *Conversions {
	n := New(c.all...)
	n.simple = c.simple
	n.add(cs...)
	return n
}

// WithSimpleTypes returns a copy of c that passes values of the given
// simple types to the driver unconverted.
func (c *Conversions) WithSimpleTypes(s *dialect.SimpleTypes) *Conversions {
	n := New(c.all...)
	n.simple = s
	return n
}

// Converters returns the registered converters in registration order.
func (c *Conversions) Converters() []*Converter {
	return append([]*Converter(nil), c.all...)
}

// IsSimple reports if values of type t are bound without conversion.
func (c *Conversions) IsSimple(t reflect.Type) bool {
	return c.simple.IsSimple(t)
}

// HasWriting reports if a value of type t can be written, either as is or
// by a conversion.
func (c *Conversions) HasWriting(t reflect.Type) bool {
	for t != nil {
		if _, ok := c.writing[t]; ok || c.simple.IsSimple(t) || storeKind(t) != nil {
			return true
		}
		if t.Kind() != reflect.Pointer {
			return false
		}
		t = t.Elem()
	}
	return false
}

// Write returns the store value of v. Nil values and nil pointers are
// returned as nil.
func (c *Conversions) Write(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	rv := reflect.ValueOf(v)
	for {
		t := rv.Type()
		if cv, ok := c.writing[t]; ok {
			return cv.Convert(rv.Interface())
		}
		ptr := t.Kind() == reflect.Pointer
		if ptr && rv.IsNil() {
			return nil, nil
		}
		// Pointers are dereferenced unless they are valuers themselves.
		if c.simple.IsSimple(t) && (!ptr || t.Implements(valuerType)) {
			return rv.Interface(), nil
		}
		if !ptr {
			break
		}
		rv = rv.Elem()
	}
	return c.builtinWrite(rv)
}

// builtinWrite applies the store conversions every dialect shares: named
// types of basic kinds are written as their basic kind, and unsigned 64-bit
// integers as int64 if they fit.
func (c *Conversions) builtinWrite(rv reflect.Value) (any, error) {
	t := rv.Type()
	switch k := storeKind(t); {
	case k == nil:
	case k == uint64Type && !c.simple.IsSimple(k):
		u := rv.Uint()
		if u > math.MaxInt64 {
			return nil, fmt.Errorf("conversion: value %d of type %s overflows int64", u, t)
		}
		return int64(u), nil
	default:
		return rv.Convert(k).Interface(), nil
	}
	return nil, &ConversionNotSupportedError{Type: t, Direction: Writing}
}

var uint64Type = reflect.TypeFor[uint64]()

// storeKind returns the basic type that values of t are stored as, or nil.
func storeKind(t reflect.Type) reflect.Type {
	switch t.Kind() {
	case reflect.Bool:
		return reflect.TypeFor[bool]()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return reflect.TypeFor[int64]()
	case reflect.Uint8, reflect.Uint16, reflect.Uint32:
		return reflect.TypeFor[int64]()
	case reflect.Uint, reflect.Uint64:
		return uint64Type
	case reflect.Float32, reflect.Float64:
		return reflect.TypeFor[float64]()
	case reflect.String:
		return reflect.TypeFor[string]()
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return reflect.TypeFor[[]byte]()
		}
	}
	return nil
}

// Read converts the scanned value raw to the target type. A nil value
// reads as the zero value of the target.
func (c *Conversions) Read(raw any, target reflect.Type) (any, error) {
	if raw == nil {
		return reflect.Zero(target).Interface(), nil
	}
	src := reflect.ValueOf(raw)
	if cv, arg, ok := c.readingFor(src, target); ok {
		return cv.Convert(arg)
	}
	if src.Type().AssignableTo(target) {
		return raw, nil
	}
	if target.Kind() == reflect.Pointer {
		v, err := c.Read(raw, target.Elem())
		if err != nil {
			return nil, err
		}
		p := reflect.New(target.Elem())
		p.Elem().Set(reflect.ValueOf(v))
		return p.Interface(), nil
	}
	if v, ok := convertBasic(src, target); ok {
		return v.Interface(), nil
	}
	if reflect.PointerTo(target).Implements(scannerType) {
		p := reflect.New(target)
		if err := p.Interface().(scanner).Scan(raw); err != nil {
			return nil, fmt.Errorf("conversion: scan %T into %s: %w", raw, target, err)
		}
		return p.Elem().Interface(), nil
	}
	return nil, &ConversionNotSupportedError{Type: src.Type(), Direction: Reading, Target: target}
}

type scanner interface {
	Scan(src any) error
}

var (
	scannerType = reflect.TypeFor[scanner]()
	valuerType  = reflect.TypeFor[driver.Valuer]()
)

// readingFor returns the reading converter for target that accepts src,
// and the argument to pass to it.
func (c *Conversions) readingFor(src reflect.Value, target reflect.Type) (*Converter, any, bool) {
	cs := c.reading[target]
	for _, cv := range cs {
		if src.Type() == cv.source {
			return cv, src.Interface(), true
		}
	}
	// Drivers may scan into a different, but convertible, type. For
	// example, TEXT columns scanned as []byte.
	for _, cv := range cs {
		if v, ok := convertBasic(src, cv.source); ok {
			return cv, v.Interface(), true
		}
	}
	return nil, nil, false
}

// convertBasic converts between values of basic kinds: numbers to
// numbers without overflow, and strings to and from byte slices.
func convertBasic(v reflect.Value, t reflect.Type) (reflect.Value, bool) {
	switch {
	case isInt(v.Kind()) && isInt(t.Kind()):
		if n := v.Int(); !reflect.Zero(t).OverflowInt(n) {
			return reflect.ValueOf(n).Convert(t), true
		}
	case isInt(v.Kind()) && isUint(t.Kind()):
		if n := v.Int(); n >= 0 && !reflect.Zero(t).OverflowUint(uint64(n)) {
			return reflect.ValueOf(uint64(n)).Convert(t), true
		}
	case isUint(v.Kind()) && isUint(t.Kind()):
		if n := v.Uint(); !reflect.Zero(t).OverflowUint(n) {
			return reflect.ValueOf(n).Convert(t), true
		}
	case isUint(v.Kind()) && isInt(t.Kind()):
		if n := v.Uint(); n <= math.MaxInt64 && !reflect.Zero(t).OverflowInt(int64(n)) {
			return reflect.ValueOf(int64(n)).Convert(t), true
		}
	case isFloat(v.Kind()) && isFloat(t.Kind()),
		(isInt(v.Kind()) || isUint(v.Kind())) && isFloat(t.Kind()),
		v.Kind() == reflect.Bool && t.Kind() == reflect.Bool,
		v.Kind() == reflect.String && t.Kind() == reflect.String:
		return v.Convert(t), true
	case isBytes(v.Type()) && (t.Kind() == reflect.String || isBytes(t)):
		b := append([]byte(nil), v.Bytes()...)
		return reflect.ValueOf(b).Convert(t), true
	case v.Kind() == reflect.String && isBytes(t):
		return reflect.ValueOf([]byte(v.String())).Convert(t), true
	case isInt(v.Kind()) && t.Kind() == reflect.Bool:
		// SQLite and MySQL store booleans as integers.
		return reflect.ValueOf(v.Int() != 0).Convert(t), true
	}
	return reflect.Value{}, false
}

func isInt(k reflect.Kind) bool {
	return k >= reflect.Int && k <= reflect.Int64
}

func isUint(k reflect.Kind) bool {
	return k >= reflect.Uint && k <= reflect.Uint64
}

func isFloat(k reflect.Kind) bool {
	return k == reflect.Float32 || k == reflect.Float64
}

func isBytes(t reflect.Type) bool {
	return t.Kind() == reflect.Slice && t.Elem().Kind() == reflect.Uint8
}
