// Package tools provides the fixed tool registry and the dispatcher that
// validates and executes tool invocations on behalf of provider adapters and
// the direct tool-call path. The registry is assembled once at startup and
// never mutated afterward.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

type (
	// Handler executes one tool invocation. Parameters have already passed
	// schema validation; handlers return an opaque result or an error.
	Handler func(ctx context.Context, params map[string]any) (any, error)

	// Descriptor advertises one tool to model providers and drives local
	// parameter validation. Parameters is a JSON-Schema object.
	Descriptor struct {
		Name        string         `json:"name"`
		Description string         `json:"description"`
		Parameters  map[string]any `json:"parameters"`
	}

	// Registry is the immutable catalogue of tool name to descriptor, compiled
	// schema and handler.
	Registry struct {
		entries map[string]*entry
		names   []string
	}

	entry struct {
		desc    Descriptor
		schema  *jsonschema.Schema
		handler Handler
	}

	// Builder accumulates registrations before the registry is sealed.
	Builder struct {
		entries map[string]*entry
	}
)

// NewBuilder returns an empty registry builder.
func NewBuilder() *Builder {
	return &Builder{entries: make(map[string]*entry)}
}

// Register adds a tool. The descriptor's parameter schema is compiled
// eagerly; registration failures are startup misconfigurations and are
// returned as errors rather than deferred to dispatch time.
func (b *Builder) Register(desc Descriptor, handler Handler) error {
	if desc.Name == "" {
		return fmt.Errorf("tool descriptor missing name")
	}
	if desc.Description == "" {
		return fmt.Errorf("tool %q missing description", desc.Name)
	}
	if handler == nil {
		return fmt.Errorf("tool %q missing handler", desc.Name)
	}
	if _, ok := b.entries[desc.Name]; ok {
		return fmt.Errorf("tool %q registered twice", desc.Name)
	}
	schema, err := compileSchema(desc.Name, desc.Parameters)
	if err != nil {
		return err
	}
	b.entries[desc.Name] = &entry{desc: desc, schema: schema, handler: handler}
	return nil
}

// Build seals the registry. The builder must not be reused afterward.
func (b *Builder) Build() *Registry {
	names := make([]string, 0, len(b.entries))
	for name := range b.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return &Registry{entries: b.entries, names: names}
}

// Lookup returns the handler entry for name.
func (r *Registry) lookup(name string) (*entry, bool) {
	e, ok := r.entries[name]
	return e, ok
}

// Names returns the registered tool names in sorted order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.names...)
}

// Descriptors returns the provider-facing tool advertisements in sorted
// name order.
func (r *Registry) Descriptors() []Descriptor {
	descs := make([]Descriptor, 0, len(r.names))
	for _, name := range r.names {
		descs = append(descs, r.entries[name].desc)
	}
	return descs
}

func compileSchema(name string, params map[string]any) (*jsonschema.Schema, error) {
	if len(params) == 0 {
		return nil, fmt.Errorf("tool %q missing parameter schema", name)
	}
	// Round-trip through JSON so that schema literals written as Go maps use
	// the same number representation as decoded request payloads.
	data, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("tool %q: marshal schema: %w", name, err)
	}
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("tool %q: unmarshal schema: %w", name, err)
	}
	c := jsonschema.NewCompiler()
	resource := name + ".schema.json"
	if err := c.AddResource(resource, doc); err != nil {
		return nil, fmt.Errorf("tool %q: add schema resource: %w", name, err)
	}
	schema, err := c.Compile(resource)
	if err != nil {
		return nil, fmt.Errorf("tool %q: compile schema: %w", name, err)
	}
	return schema, nil
}

// ObjectSchema is a convenience constructor for the common
// {type: object, properties, required} descriptor shape.
func ObjectSchema(properties map[string]any, required ...string) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}
