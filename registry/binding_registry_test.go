/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package registry

import "testing"

type boundEntity struct{ ID string }
type unboundEntity struct{ ID string }

func TestBindings(t *testing.T) {
	Bind[boundEntity]("Traffic", "App1Traffic")
	defer Unbind[boundEntity]()

	b, ok := BindingFor[boundEntity]()
	if !ok {
		t.Fatal("expected binding to be registered")
	}
	if b.Database != "Traffic" || b.Collection != "App1Traffic" {
		t.Fatalf("unexpected binding %+v", b)
	}
	if b.String() != "Traffic/App1Traffic" {
		t.Fatalf("unexpected string form %q", b.String())
	}

	if _, ok := BindingFor[unboundEntity](); ok {
		t.Fatal("expected no binding for unbound type")
	}
	if _, ok := BindingFor[*boundEntity](); ok {
		t.Fatal("pointer type must not share the value type binding")
	}

	found := false
	for _, nb := range Bindings() {
		if nb.Type == "registry.boundEntity" {
			found = true
		}
	}
	if !found {
		t.Fatal("expected boundEntity in Bindings()")
	}

	Bind[boundEntity]("Other", "Coll")
	if b, _ := BindingFor[boundEntity](); b.Database != "Other" {
		t.Fatalf("expected rebinding to replace, got %+v", b)
	}
}
