package dialect

import (
	"database/sql/driver"
	"reflect"
	"time"
)

var valuerType = reflect.TypeFor[driver.Valuer]()

// commonSimpleTypes are bound natively by every database/sql driver.
var commonSimpleTypes = []reflect.Type{
	reflect.TypeFor[bool](),
	reflect.TypeFor[int](),
	reflect.TypeFor[int8](),
	reflect.TypeFor[int16](),
	reflect.TypeFor[int32](),
	reflect.TypeFor[int64](),
	reflect.TypeFor[uint](),
	reflect.TypeFor[uint8](),
	reflect.TypeFor[uint16](),
	reflect.TypeFor[uint32](),
	reflect.TypeFor[float32](),
	reflect.TypeFor[float64](),
	reflect.TypeFor[string](),
	reflect.TypeFor[[]byte](),
	reflect.TypeFor[time.Time](),
}

// SimpleTypes holds the types a driver can bind without conversion.
// A SimpleTypes is immutable once created.
type SimpleTypes struct {
	types map[reflect.Type]struct{}
	order []reflect.Type
}

// NewSimpleTypes returns the common simple types extended with extra.
func NewSimpleTypes(extra ...reflect.Type) *SimpleTypes {
	s := &SimpleTypes{types: make(map[reflect.Type]struct{}, len(commonSimpleTypes)+len(extra))}
	s.add(commonSimpleTypes...)
	s.add(extra...)
	return s
}

func (s *SimpleTypes) add(ts ...reflect.Type) {
	for _, t := range ts {
		if _, ok := s.types[t]; ok {
			continue
		}
		s.types[t] = struct{}{}
		s.order = append(s.order, t)
	}
}

// With returns a copy of s extended with the given types.
func (s *SimpleTypes) With(extra ...reflect.Type) *SimpleTypes {
	c := &SimpleTypes{types: make(map[reflect.Type]struct{}, len(s.order)+len(extra))}
	c.add(s.order...)
	c.add(extra...)
	return c
}

// IsSimple reports if values of type t are natively bindable. Pointers to
// simple types and types implementing driver.Valuer are simple.
func (s *SimpleTypes) IsSimple(t reflect.Type) bool {
	if t == nil {
		return false
	}
	if t.Implements(valuerType) {
		return true
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if _, ok := s.types[t]; ok {
		return true
	}
	return t.Implements(valuerType)
}

// Types returns the registered types in registration order.
func (s *SimpleTypes) Types() []reflect.Type {
	return append([]reflect.Type(nil), s.order...)
}

// Equal reports if s and o hold the same set of types.
func (s *SimpleTypes) Equal(o *SimpleTypes) bool {
	if s == nil || o == nil {
		return s == o
	}
	if len(s.types) != len(o.types) {
		return false
	}
	for t := range s.types {
		if _, ok := o.types[t]; !ok {
			return false
		}
	}
	return true
}
