// Package tool implements the registry of local capabilities a model may
// request. Every invocation is schema-validated before the handler runs;
// execution is gated by user confirmation at the call site.
package tool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

var (
	// ErrDuplicateTool reports a second registration under the same name.
	ErrDuplicateTool = errors.New("tool already registered")
	// ErrBadSchema reports a registration whose schema cannot be used, e.g.
	// a missing description. Fatal at startup of that tool.
	ErrBadSchema = errors.New("unusable tool schema")
	// ErrUnknownTool reports an invocation of an unregistered name.
	ErrUnknownTool = errors.New("unknown tool")
	// ErrInvalidArguments reports arguments that do not satisfy the schema.
	ErrInvalidArguments = errors.New("invalid tool arguments")
	// ErrHandlerFailed reports a handler that crashed outright, as opposed
	// to reporting success:false in its result.
	ErrHandlerFailed = errors.New("tool handler failed")
)

// Refusal is the fixed payload recorded as the tool result when the user
// rejects a tool call.
const Refusal = `{"success":false,"reason":"User refused to allow tool"}`

// Handler executes a tool with schema-validated raw arguments and returns the
// result serialized for the transcript. Handlers report their own runtime
// failures (failing exit codes, missing binaries) inside the result; a
// returned error means the handler itself crashed.
type Handler func(ctx context.Context, args json.RawMessage) (string, error)

// Definition declares a tool: its wire name, the description and JSON schema
// offered to the model, and the handler that runs on confirmed calls.
type Definition struct {
	Name        string
	Description string
	Schema      map[string]any
	Handler     Handler
}

// Registry maps tool names to their definitions. It is an explicitly
// constructed object with no package-level state; pass it by reference to
// whatever needs it.
type Registry struct {
	defs     map[string]Definition
	order    []string
	compiled map[string]*jsonschema.Schema
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		defs:     make(map[string]Definition),
		compiled: make(map[string]*jsonschema.Schema),
	}
}

// Register adds a definition. It fails with ErrDuplicateTool on a name
// collision and with ErrBadSchema when the definition carries no description,
// a property lacks one, or the schema does not compile.
func (r *Registry) Register(def Definition) error {
	if def.Name == "" {
		return fmt.Errorf("%w: empty tool name", ErrBadSchema)
	}
	if _, ok := r.defs[def.Name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateTool, def.Name)
	}
	if def.Description == "" {
		return fmt.Errorf("%w: %s has no description", ErrBadSchema, def.Name)
	}
	if props, ok := def.Schema["properties"].(map[string]any); ok {
		for name, raw := range props {
			prop, _ := raw.(map[string]any)
			if desc, _ := prop["description"].(string); desc == "" {
				return fmt.Errorf("%w: %s property %q has no description", ErrBadSchema, def.Name, name)
			}
		}
	}

	doc, err := json.Marshal(def.Schema)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrBadSchema, def.Name, err)
	}
	schema, err := jsonschema.CompileString(def.Name+".json", string(doc))
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrBadSchema, def.Name, err)
	}

	r.defs[def.Name] = def
	r.order = append(r.order, def.Name)
	r.compiled[def.Name] = schema
	return nil
}

// MustRegister registers a built-in definition and panics on failure. Only
// for definitions under this package's control.
func (r *Registry) MustRegister(def Definition) {
	if err := r.Register(def); err != nil {
		panic(err)
	}
}

// Get retrieves a definition by name.
func (r *Registry) Get(name string) (Definition, bool) {
	def, ok := r.defs[name]
	return def, ok
}

// All returns the registered definitions in registration order.
func (r *Registry) All() []Definition {
	defs := make([]Definition, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.defs[name])
	}
	return defs
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	return len(r.order)
}

// Invoke validates rawArgs against the tool's schema and runs its handler,
// returning the handler result verbatim. Handler errors come back wrapped in
// ErrHandlerFailed; they are never swallowed here.
func (r *Registry) Invoke(ctx context.Context, name string, rawArgs json.RawMessage) (string, error) {
	def, ok := r.defs[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}

	if len(rawArgs) == 0 {
		rawArgs = json.RawMessage("{}")
	}
	var args any
	if err := json.Unmarshal(rawArgs, &args); err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrInvalidArguments, name, err)
	}
	if err := r.compiled[name].Validate(args); err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrInvalidArguments, name, err)
	}

	result, err := def.Handler(ctx, rawArgs)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrHandlerFailed, name, err)
	}
	return result, nil
}

// Builtin returns a registry with all built-in tools registered.
func Builtin() *Registry {
	r := NewRegistry()
	r.MustRegister(CatTool())
	r.MustRegister(GitTool())
	r.MustRegister(WeatherTool())
	return r
}
