package core

import (
	"fmt"
	"reflect"
)

var storableType = reflect.TypeFor[Storable]()

// Class identifies a concrete Storable type and builds empty instances of it.
// The zero Class is invalid.
type Class struct {
	name  string
	newFn func() Storable
}

// NewClass returns a Class that builds instances with newFn.
func NewClass(name string, newFn func() Storable) Class {
	return Class{name: name, newFn: newFn}
}

// ClassOf returns the Class of the model type T, whose pointer implements
// Storable:
//
//	products := core.ClassOf[Product]()
func ClassOf[T any, PT interface {
	*T
	Storable
}]() Class {
	return Class{
		name:  reflect.TypeFor[T]().String(),
		newFn: func() Storable { return PT(new(T)) },
	}
}

// ClassFor resolves a Class at runtime from a prototype value such as
// (*Product)(nil) or Product{}. Fails with ErrType when neither the type nor a
// pointer to it implements Storable.
func ClassFor(prototype any) (Class, error) {
	switch p := prototype.(type) {
	case Class:
		if p.IsZero() {
			return Class{}, fmt.Errorf("%w: zero class", ErrType)
		}
		return p, nil
	case *Document:
		if p == nil {
			return Class{}, fmt.Errorf("%w: nil document has no collection", ErrType)
		}
		return DocumentClass(p.collection, p.primaryKey), nil
	case Document:
		return Class{}, fmt.Errorf("%w: document prototypes must be built with NewDocument", ErrType)
	}

	t := reflect.TypeOf(prototype)
	if t == nil {
		return Class{}, fmt.Errorf("%w: nil prototype", ErrType)
	}
	elem := t
	if t.Kind() == reflect.Pointer {
		elem = t.Elem()
	}
	if !reflect.PointerTo(elem).Implements(storableType) {
		return Class{}, fmt.Errorf("%w: %s does not implement Storable", ErrType, t)
	}
	return Class{
		name: elem.String(),
		newFn: func() Storable {
			return reflect.New(elem).Interface().(Storable)
		},
	}, nil
}

// DocumentClass returns the Class of dynamic documents bound to collection.
func DocumentClass(collection, primaryKey string) Class {
	return Class{
		name:  "document:" + collection,
		newFn: func() Storable { return NewDocument(collection, primaryKey) },
	}
}

// IsZero reports whether c is the zero Class.
func (c Class) IsZero() bool { return c.newFn == nil }

// Name returns a human readable name for the class.
func (c Class) Name() string { return c.name }

// New builds an empty instance.
func (c Class) New() (Storable, error) {
	if c.newFn == nil {
		return nil, fmt.Errorf("%w: zero class", ErrType)
	}
	s := c.newFn()
	if s == nil {
		return nil, fmt.Errorf("%w: class %s built a nil instance", ErrType, c.name)
	}
	if err := ValidateStorable(s); err != nil {
		return nil, err
	}
	return s, nil
}

// Collection returns the collection bound to the class, "" for an invalid class.
func (c Class) Collection() string {
	s, err := c.New()
	if err != nil {
		return ""
	}
	return s.Collection()
}

// PrimaryKey returns the primary key field bound to the class, "" for an
// invalid class.
func (c Class) PrimaryKey() string {
	s, err := c.New()
	if err != nil {
		return ""
	}
	return s.PrimaryKey()
}
