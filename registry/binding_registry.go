/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package registry

import (
	"fmt"
	"reflect"
	"sort"
	"sync"
)

// Binding names the collection an entity type lives in.
type Binding struct {
	Database   string
	Collection string
}

func (b Binding) String() string {
	return fmt.Sprintf("%s/%s", b.Database, b.Collection)
}

var (
	bindingRegistry = make(map[reflect.Type]Binding)
	mu              sync.RWMutex
)

// Bind associates a Go type T with a (database, collection) pair. A later call
// for the same type replaces the earlier binding.
func Bind[T any](database, collection string) {
	mu.Lock()
	defer mu.Unlock()
	bindingRegistry[typeOf[T]()] = Binding{Database: database, Collection: collection}
}

// BindingFor retrieves the binding for type T, if any.
func BindingFor[T any]() (Binding, bool) {
	mu.RLock()
	defer mu.RUnlock()
	b, ok := bindingRegistry[typeOf[T]()]
	return b, ok
}

// Unbind removes the binding for type T.
func Unbind[T any]() {
	mu.Lock()
	defer mu.Unlock()
	delete(bindingRegistry, typeOf[T]())
}

// Bindings returns every binding keyed by type name, sorted for display.
func Bindings() []NamedBinding {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]NamedBinding, 0, len(bindingRegistry))
	for t, b := range bindingRegistry {
		out = append(out, NamedBinding{Type: t.String(), Binding: b})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out
}

// NamedBinding pairs a binding with the name of its Go type.
type NamedBinding struct {
	Type string
	Binding
}

func typeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}
