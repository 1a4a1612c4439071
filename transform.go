package ngstate

import (
	"fmt"
	"strings"
	"sync"
)

// SourceTransform derives a layer's new source from its previous one.
type SourceTransform interface {
	TransformSource(previous any, layer Layer) (any, error)
}

// SourceFunc adapts a function to SourceTransform.
type SourceFunc func(previous any, layer Layer) (any, error)

// TransformSource implements SourceTransform.
func (f SourceFunc) TransformSource(previous any, layer Layer) (any, error) {
	if f == nil {
		return previous, nil
	}
	return f(previous, layer)
}

// Transform engines understood by NewTransform.
const (
	EngineExpr = "expr"
	EngineCEL  = "cel"
	EngineJS   = "js"
)

// NewTransform compiles expression for engine. Expressions see the previous
// source as `source` and the target layer as `layer` (name, type, source).
func NewTransform(engine, expression string, opts ...TransformOption) (SourceTransform, error) {
	switch strings.ToLower(engine) {
	case "", EngineExpr:
		return NewExprTransform(expression, opts...)
	case EngineCEL:
		return NewCELTransform(expression, opts...)
	case EngineJS:
		return NewJSTransform(expression, opts...)
	default:
		return nil, fmt.Errorf("ngstate: unknown transform engine %q", engine)
	}
}

// ProgramCache stores compiled programs keyed by engine and expression.
type ProgramCache interface {
	Get(key string) (any, bool)
	Set(key string, value any)
}

// MemoryProgramCache is a ProgramCache backed by a map.
type MemoryProgramCache struct {
	mu       sync.RWMutex
	programs map[string]any
}

// NewMemoryProgramCache returns an empty cache safe for concurrent use.
func NewMemoryProgramCache() *MemoryProgramCache {
	return &MemoryProgramCache{programs: map[string]any{}}
}

func (c *MemoryProgramCache) Get(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	program, ok := c.programs[key]
	return program, ok
}

func (c *MemoryProgramCache) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.programs == nil {
		c.programs = map[string]any{}
	}
	c.programs[key] = value
}

// Len reports the number of cached programs.
func (c *MemoryProgramCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.programs)
}

type transformConfig struct {
	cache    ProgramCache
	registry *FunctionRegistry
}

// TransformOption configures a compiled transform.
type TransformOption func(*transformConfig)

// TransformWithProgramCache shares compiled programs between transforms.
func TransformWithProgramCache(cache ProgramCache) TransformOption {
	return func(cfg *transformConfig) {
		cfg.cache = cache
	}
}

// TransformWithFunctionRegistry exposes the registry's functions to the
// expression. Functions registered later are not visible to programs
// compiled before.
func TransformWithFunctionRegistry(registry *FunctionRegistry) TransformOption {
	return func(cfg *transformConfig) {
		cfg.registry = registry
	}
}

func applyTransformOptions(opts []TransformOption) transformConfig {
	cfg := transformConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

func cacheKey(engine string, registry *FunctionRegistry, expression string) string {
	if scope := registry.scope(); scope != "" {
		return engine + "@" + scope + ":" + expression
	}
	return engine + ":" + expression
}

func layerBinding(layer Layer, previous any) map[string]any {
	return map[string]any{
		"name":   layer.Name,
		"type":   layer.Type,
		"source": previous,
	}
}

func transformEngine(t SourceTransform) string {
	switch t.(type) {
	case nil:
		return "none"
	case *exprTransform:
		return EngineExpr
	case *celTransform:
		return EngineCEL
	default:
		if named, ok := t.(interface{ Engine() string }); ok {
			return named.Engine()
		}
		return "custom"
	}
}

func transformExpression(t SourceTransform) string {
	if described, ok := t.(interface{ Expression() string }); ok {
		return described.Expression()
	}
	return ""
}
