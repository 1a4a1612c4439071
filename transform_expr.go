package ngstate

import (
	exprlang "github.com/expr-lang/expr"
	exprvm "github.com/expr-lang/expr/vm"
)

type exprTransform struct {
	expression string
	program    *exprvm.Program
}

// NewExprTransform compiles expression with github.com/expr-lang/expr.
func NewExprTransform(expression string, opts ...TransformOption) (SourceTransform, error) {
	if expression == "" {
		return nil, wrapTransformError(EngineExpr, "", "", ErrEmptyExpression)
	}
	cfg := applyTransformOptions(opts)
	key := cacheKey(EngineExpr, cfg.registry, expression)
	if cfg.cache != nil {
		if cached, ok := cfg.cache.Get(key); ok {
			if program, ok := cached.(*exprvm.Program); ok {
				return &exprTransform{expression: expression, program: program}, nil
			}
		}
	}

	options := []exprlang.Option{
		exprlang.Env(map[string]any{}),
		exprlang.AllowUndefinedVariables(),
	}
	for _, name := range cfg.registry.Names() {
		options = append(options, exprlang.Function(name, cfg.registry.binding(name)))
	}
	program, err := exprlang.Compile(expression, options...)
	if err != nil {
		return nil, wrapTransformError(EngineExpr, expression, "", err)
	}
	if cfg.cache != nil {
		cfg.cache.Set(key, program)
	}
	return &exprTransform{expression: expression, program: program}, nil
}

func (t *exprTransform) TransformSource(previous any, layer Layer) (any, error) {
	env := map[string]any{
		"source": previous,
		"layer":  layerBinding(layer, previous),
	}
	result, err := exprlang.Run(t.program, env)
	if err != nil {
		return nil, wrapTransformError(EngineExpr, t.expression, layer.Name, err)
	}
	return result, nil
}

func (t *exprTransform) Expression() string {
	return t.expression
}
