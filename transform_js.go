//go:build js_eval

package ngstate

import (
	"fmt"

	"github.com/dop251/goja"
)

type jsTransform struct {
	expression string
	program    *goja.Program
	registry   *FunctionRegistry
}

// NewJSTransform compiles expression with goja. Each call runs in a fresh
// runtime.
func NewJSTransform(expression string, opts ...TransformOption) (SourceTransform, error) {
	if expression == "" {
		return nil, wrapTransformError(EngineJS, "", "", ErrEmptyExpression)
	}
	cfg := applyTransformOptions(opts)
	key := cacheKey(EngineJS, cfg.registry, expression)
	if cfg.cache != nil {
		if cached, ok := cfg.cache.Get(key); ok {
			if program, ok := cached.(*goja.Program); ok {
				return &jsTransform{expression: expression, program: program, registry: cfg.registry}, nil
			}
		}
	}
	program, err := goja.Compile("", wrapJSExpression(expression), false)
	if err != nil {
		return nil, wrapTransformError(EngineJS, expression, "", err)
	}
	if cfg.cache != nil {
		cfg.cache.Set(key, program)
	}
	return &jsTransform{expression: expression, program: program, registry: cfg.registry}, nil
}

func (t *jsTransform) TransformSource(previous any, layer Layer) (any, error) {
	vm := goja.New()
	if err := vm.Set("source", previous); err != nil {
		return nil, wrapTransformError(EngineJS, t.expression, layer.Name, err)
	}
	if err := vm.Set("layer", layerBinding(layer, previous)); err != nil {
		return nil, wrapTransformError(EngineJS, t.expression, layer.Name, err)
	}
	for _, name := range t.registry.Names() {
		if err := vm.Set(name, t.registry.binding(name)); err != nil {
			return nil, wrapTransformError(EngineJS, t.expression, layer.Name, err)
		}
	}
	value, err := vm.RunProgram(t.program)
	if err != nil {
		return nil, wrapTransformError(EngineJS, t.expression, layer.Name, err)
	}
	return value.Export(), nil
}

func (t *jsTransform) Expression() string {
	return t.expression
}

func (t *jsTransform) Engine() string {
	return EngineJS
}

func wrapJSExpression(expression string) string {
	return fmt.Sprintf("(function(){ return (%s); })()", expression)
}

func jsTransformAvailable() bool {
	return true
}
