/*
Package registry binds entity types to the collections that store them.

Bindings let callers ask for a repository by type alone:

	registry.Bind[traffic.Traffic]("Traffic", "App1Traffic")

	b, ok := registry.BindingFor[traffic.Traffic]()
	// b.Database == "Traffic", b.Collection == "App1Traffic"

The registry is thread-safe and should be populated during initialization,
typically in init() functions.
*/
package registry
