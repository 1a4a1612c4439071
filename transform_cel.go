package ngstate

import (
	"fmt"

	celgo "github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/google/cel-go/common/types/traits"
)

// Registry functions are exposed to CEL with up to this many arguments.
const celMaxArity = 3

type celTransform struct {
	expression string
	program    celgo.Program
}

// NewCELTransform compiles expression with github.com/google/cel-go.
// source and layer are declared dyn.
func NewCELTransform(expression string, opts ...TransformOption) (SourceTransform, error) {
	if expression == "" {
		return nil, wrapTransformError(EngineCEL, "", "", ErrEmptyExpression)
	}
	cfg := applyTransformOptions(opts)
	key := cacheKey(EngineCEL, cfg.registry, expression)
	if cfg.cache != nil {
		if cached, ok := cfg.cache.Get(key); ok {
			if program, ok := cached.(celgo.Program); ok {
				return &celTransform{expression: expression, program: program}, nil
			}
		}
	}

	env, err := celgo.NewEnv(celEnvOptions(cfg.registry)...)
	if err != nil {
		return nil, wrapTransformError(EngineCEL, expression, "", err)
	}
	ast, issues := env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, wrapTransformError(EngineCEL, expression, "", issues.Err())
	}
	program, err := env.Program(ast)
	if err != nil {
		return nil, wrapTransformError(EngineCEL, expression, "", err)
	}
	if cfg.cache != nil {
		cfg.cache.Set(key, program)
	}
	return &celTransform{expression: expression, program: program}, nil
}

func celEnvOptions(registry *FunctionRegistry) []celgo.EnvOption {
	opts := []celgo.EnvOption{
		celgo.Variable("source", celgo.DynType),
		celgo.Variable("layer", celgo.DynType),
	}
	for _, name := range registry.Names() {
		overloads := make([]celgo.FunctionOpt, 0, celMaxArity+1)
		for arity := 0; arity <= celMaxArity; arity++ {
			args := make([]*celgo.Type, arity)
			for i := range args {
				args[i] = celgo.DynType
			}
			overloads = append(overloads, celgo.Overload(
				fmt.Sprintf("%s_dyn_%d", name, arity),
				args,
				celgo.DynType,
				celgo.FunctionBinding(celBinding(registry, name)),
			))
		}
		opts = append(opts, celgo.Function(name, overloads...))
	}
	return opts
}

func celBinding(registry *FunctionRegistry, name string) func(values ...ref.Val) ref.Val {
	return func(values ...ref.Val) ref.Val {
		args := make([]any, 0, len(values))
		for _, val := range values {
			args = append(args, val.Value())
		}
		result, err := registry.Call(name, args...)
		if err != nil {
			return types.NewErr("%s", err.Error())
		}
		if result == nil {
			return types.NullValue
		}
		return types.DefaultTypeAdapter.NativeToValue(result)
	}
}

func (t *celTransform) TransformSource(previous any, layer Layer) (any, error) {
	out, _, err := t.program.Eval(map[string]any{
		"source": previous,
		"layer":  layerBinding(layer, previous),
	})
	if err != nil {
		return nil, wrapTransformError(EngineCEL, t.expression, layer.Name, err)
	}
	return celNative(out)
}

func (t *celTransform) Expression() string {
	return t.expression
}

// celNative converts a result to plain Go values. Nested maps and lists
// built inside the expression are converted as well.
func celNative(val ref.Val) (any, error) {
	switch v := val.(type) {
	case traits.Mapper:
		out := map[string]any{}
		it := v.Iterator()
		for it.HasNext() == types.True {
			key := it.Next()
			name, ok := key.Value().(string)
			if !ok {
				name = fmt.Sprint(key.Value())
			}
			elem, err := celNative(v.Get(key))
			if err != nil {
				return nil, err
			}
			out[name] = elem
		}
		return out, nil
	case traits.Lister:
		size, ok := v.Size().(types.Int)
		if !ok {
			return nil, fmt.Errorf("ngstate: cel list size is %v", v.Size())
		}
		out := make([]any, 0, int(size))
		for i := types.Int(0); i < size; i++ {
			elem, err := celNative(v.Get(i))
			if err != nil {
				return nil, err
			}
			out = append(out, elem)
		}
		return out, nil
	}
	if val.Type() == types.NullType {
		return nil, nil
	}
	return val.Value(), nil
}
