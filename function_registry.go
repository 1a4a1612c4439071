package ngstate

import (
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
)

// Function is a helper callable from source transform expressions.
type Function func(args ...any) (any, error)

var registrySeq atomic.Uint64

// FunctionRegistry holds the helpers exposed to transform expressions. Names
// are bound verbatim, so they are case sensitive.
type FunctionRegistry struct {
	mu         sync.RWMutex
	id         uint64
	generation uint64
	functions  map[string]Function
}

func NewFunctionRegistry() *FunctionRegistry {
	return &FunctionRegistry{
		id:        registrySeq.Add(1),
		functions: make(map[string]Function),
	}
}

// Register adds fn under name. Names already taken are rejected.
func (r *FunctionRegistry) Register(name string, fn Function) error {
	if name == "" {
		return fmt.Errorf("ngstate: function name must not be empty")
	}
	if fn == nil {
		return fmt.Errorf("ngstate: function %q is nil", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.functions == nil {
		r.functions = make(map[string]Function)
	}
	if _, exists := r.functions[name]; exists {
		return fmt.Errorf("ngstate: function %q already registered", name)
	}
	r.functions[name] = fn
	r.generation++
	return nil
}

// Clone returns an independent registry holding the same functions.
func (r *FunctionRegistry) Clone() *FunctionRegistry {
	if r == nil {
		return nil
	}
	clone := NewFunctionRegistry()
	r.mu.RLock()
	defer r.mu.RUnlock()
	for name, fn := range r.functions {
		clone.functions[name] = fn
	}
	clone.generation = r.generation
	return clone
}

func (r *FunctionRegistry) Call(name string, args ...any) (any, error) {
	if r == nil {
		return nil, fmt.Errorf("ngstate: no functions registered, cannot call %q", name)
	}
	r.mu.RLock()
	fn := r.functions[name]
	r.mu.RUnlock()
	if fn == nil {
		return nil, fmt.Errorf("ngstate: function %q not registered", name)
	}
	return fn(args...)
}

// Names returns the registered names in sorted order.
func (r *FunctionRegistry) Names() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.functions))
	for name := range r.functions {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// scope identifies the registry and its contents for program cache keys.
// Programs compiled against one scope are reused only under that scope.
func (r *FunctionRegistry) scope() string {
	if r == nil {
		return ""
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return fmt.Sprintf("fn%d.%d", r.id, r.generation)
}

func (r *FunctionRegistry) binding(name string) func(...any) (any, error) {
	return func(args ...any) (any, error) {
		return r.Call(name, args...)
	}
}

// ViewerFunctions returns a registry with the helpers used to build layer
// sources:
//
//	precomputed(location)                    "precomputed://<location>"
//	clioAnnotations(url, dataset[, kind])    annotation service source
//	sourceURL(source)                        url of a string or {"url": ...} source
//	withParam(url, key, value)               url with key=value appended
func ViewerFunctions() *FunctionRegistry {
	registry := NewFunctionRegistry()
	must := func(name string, fn Function) {
		if err := registry.Register(name, fn); err != nil {
			panic(err)
		}
	}
	must("precomputed", func(args ...any) (any, error) {
		location, err := stringArgs("precomputed", args, 1, 1)
		if err != nil {
			return nil, err
		}
		return PrecomputedSource(location[0]), nil
	})
	must("clioAnnotations", func(args ...any) (any, error) {
		values, err := stringArgs("clioAnnotations", args, 2, 3)
		if err != nil {
			return nil, err
		}
		kind := ""
		if len(values) == 3 {
			kind = values[2]
		}
		return ClioAnnotationSource(values[0], values[1], kind), nil
	})
	must("sourceURL", func(args ...any) (any, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("sourceURL expects 1 argument, got %d", len(args))
		}
		return SourceURL(args[0]), nil
	})
	must("withParam", func(args ...any) (any, error) {
		values, err := stringArgs("withParam", args, 3, 3)
		if err != nil {
			return nil, err
		}
		return WithQueryParam(values[0], values[1], values[2]), nil
	})
	return registry
}

func stringArgs(name string, args []any, minArgs, maxArgs int) ([]string, error) {
	if len(args) < minArgs || len(args) > maxArgs {
		if minArgs == maxArgs {
			return nil, fmt.Errorf("%s expects %d arguments, got %d", name, minArgs, len(args))
		}
		return nil, fmt.Errorf("%s expects %d to %d arguments, got %d", name, minArgs, maxArgs, len(args))
	}
	out := make([]string, len(args))
	for i, arg := range args {
		s, ok := arg.(string)
		if !ok {
			return nil, fmt.Errorf("%s: argument %d must be a string, got %T", name, i+1, arg)
		}
		out[i] = s
	}
	return out, nil
}
