package framework

import (
	"fmt"
	"math"
	"reflect"
)

// AbstractValue is a type-erased container whose concrete type is fixed
// once created.
type AbstractValue interface {
	// Clone returns an independent container holding a copy of the value.
	Clone() AbstractValue
	// TypeName names the concrete value type, for error messages.
	TypeName() string
}

// Cloner is implemented by value types that need a deep copy rather than
// plain assignment (slices, maps, pointers).
type Cloner[T any] interface {
	Clone() T
}

// Value holds a single value of type T.
type Value[T any] struct {
	v     T
	clone func(T) T
}

// NewValue wraps v. Copies are made by plain assignment, so T should be a
// value type (numbers, arrays, structs without shared references).
func NewValue[T any](v T) *Value[T] {
	return &Value[T]{v: v}
}

// NewCloneableValue wraps v. Copies are made with v.Clone().
func NewCloneableValue[T Cloner[T]](v T) *Value[T] {
	return &Value[T]{v: v, clone: func(x T) T { return x.Clone() }}
}

func (v *Value[T]) Get() T {
	return v.v
}

func (v *Value[T]) Set(x T) {
	v.v = x
}

// Mutable returns a pointer to the held value. The pointer stays valid for
// the life of the container.
func (v *Value[T]) Mutable() *T {
	return &v.v
}

func (v *Value[T]) Clone() AbstractValue {
	if v.clone != nil {
		return &Value[T]{v: v.clone(v.v), clone: v.clone}
	}
	return &Value[T]{v: v.v}
}

func (v *Value[T]) TypeName() string {
	return TypeNameOf((*T)(nil))
}

// ValueAs returns av as a *Value[T], or an ErrTypeMismatch error naming
// both types.
func ValueAs[T any](av AbstractValue) (*Value[T], error) {
	if av == nil {
		return nil, fmt.Errorf("%w: nil container, want %s", ErrTypeMismatch, TypeNameOf((*T)(nil)))
	}
	typed, ok := av.(*Value[T])
	if !ok {
		return nil, fmt.Errorf("%w: have %s, want %s", ErrTypeMismatch, av.TypeName(), TypeNameOf((*T)(nil)))
	}
	return typed, nil
}

// TypeNameOf returns a readable name for the dynamic type of v. Pointers
// to types are dereferenced once, so TypeNameOf((*T)(nil)) names T.
func TypeNameOf(v any) string {
	t := reflect.TypeOf(v)
	if t == nil {
		return "<nil>"
	}
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Name() == "" {
		return t.String()
	}
	if t.PkgPath() == "" {
		return t.Name()
	}
	return t.String()
}

// Vector is a numeric source or cache value that clones deeply.
type Vector []float64

func (x Vector) Clone() Vector {
	if x == nil {
		return nil
	}
	c := make(Vector, len(x))
	copy(c, x)
	return c
}

// IsValid reports whether every element is finite.
func (x Vector) IsValid() bool {
	for _, v := range x {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
