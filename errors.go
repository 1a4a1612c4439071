package ngstate

import (
	"errors"
	"fmt"
)

var (
	// ErrNoLiveSource is returned when an import is attempted without a live
	// source.
	ErrNoLiveSource = errors.New("ngstate: live source not configured")
	// ErrEmptyExpression rejects blank transform expressions.
	ErrEmptyExpression = errors.New("ngstate: expression must not be empty")
	// ErrEvaluatorUnavailable is returned when an engine was compiled out.
	ErrEvaluatorUnavailable = errors.New("ngstate: evaluator unavailable")
)

// TransformError carries the engine and expression of a failed source
// transform.
type TransformError struct {
	Engine string
	Expr   string
	Layer  string
	Err    error
}

func (e *TransformError) Error() string {
	if e == nil {
		return "<nil>"
	}
	expr := "expr=<empty>"
	if e.Expr != "" {
		expr = fmt.Sprintf("expr=%q", e.Expr)
	}
	return fmt.Sprintf("ngstate: %s transform %s layer=%s: %v", e.Engine, expr, e.Layer, e.Err)
}

func (e *TransformError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func wrapTransformError(engine, expr, layer string, err error) error {
	if err == nil {
		return nil
	}
	var transformErr *TransformError
	if errors.As(err, &transformErr) {
		if transformErr.Engine == "" {
			transformErr.Engine = engine
		}
		if transformErr.Expr == "" {
			transformErr.Expr = expr
		}
		if transformErr.Layer == "" {
			transformErr.Layer = layer
		}
		return transformErr
	}
	return &TransformError{Engine: engine, Expr: expr, Layer: layer, Err: err}
}
