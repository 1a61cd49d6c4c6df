package petfinder

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Validator re-fetches a pet page and counts how many expected fields
// failed extraction. The caller applies the removal threshold.
type Validator struct {
	render pageRenderer
	dom    domEvaluator
	logger *zap.Logger
}

// NewValidator wires a Validator.
func NewValidator(render pageRenderer, dom domEvaluator, logger *zap.Logger) *Validator {
	return &Validator{render: render, dom: dom, logger: logger}
}

// Validate fetches key and reports the number of empty fields. A page
// that cannot be fetched at all is an error, not a failed-field count:
// an unreachable source says nothing about the record itself.
func (v *Validator) Validate(ctx context.Context, key string) (int, error) {
	html, err := v.render.Fetch(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("render pet page: %w", err)
	}
	_, failed, err := extractRecord(ctx, v.dom, key, html)
	if err != nil {
		return 0, err
	}
	v.logger.Debug("record verified",
		zap.String("key", key),
		zap.Int("failed_fields", failed))
	return failed, nil
}
