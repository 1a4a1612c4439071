//go:build !js_eval

package ngstate

// NewJSTransform is unavailable without the js_eval build tag.
func NewJSTransform(expression string, opts ...TransformOption) (SourceTransform, error) {
	_ = applyTransformOptions(opts)
	return nil, wrapTransformError(EngineJS, expression, "", ErrEvaluatorUnavailable)
}

func jsTransformAvailable() bool {
	return false
}
