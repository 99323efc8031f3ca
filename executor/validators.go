package executor

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/BaSui01/webpilot/types"
)

// ValidatorContext carries the post-action state a validator handler may
// inspect. Selector is the selector of the candidate that was just acted on;
// handlers use it when the spec does not name its own.
type ValidatorContext struct {
	Driver   Driver
	Selector string
}

// targetSelector resolves the element a spec applies to.
func (v ValidatorContext) targetSelector(spec types.ValidatorSpec) string {
	if spec.Selector != "" {
		return spec.Selector
	}
	return v.Selector
}

// ValidatorHandler is one pure predicate over post-action observable state.
type ValidatorHandler func(ctx context.Context, vctx ValidatorContext, spec types.ValidatorSpec) (bool, error)

var (
	validatorMu       sync.RWMutex
	validatorRegistry = map[types.ValidatorKind]ValidatorHandler{
		types.ValidatorPresence:     validatePresence,
		types.ValidatorValueEquals:  validateValueEquals,
		types.ValidatorURLContains:  validateURLContains,
		types.ValidatorTextContains: validateTextContains,
	}
)

// RegisterValidator adds or replaces the handler for a validator kind.
// Registration is additive: new kinds become available to every step without
// touching the engine's control flow.
func RegisterValidator(kind types.ValidatorKind, handler ValidatorHandler) {
	validatorMu.Lock()
	defer validatorMu.Unlock()
	validatorRegistry[kind] = handler
}

// EvaluateValidator dispatches one spec through the handler table.
func EvaluateValidator(ctx context.Context, vctx ValidatorContext, spec types.ValidatorSpec) types.ValidatorOutcome {
	validatorMu.RLock()
	handler, ok := validatorRegistry[spec.Kind]
	validatorMu.RUnlock()

	outcome := types.ValidatorOutcome{Kind: spec.Kind}
	if !ok {
		outcome.Error = fmt.Sprintf("unknown validator kind: %s", spec.Kind)
		return outcome
	}

	passed, err := handler(ctx, vctx, spec)
	outcome.Passed = passed
	if err != nil {
		outcome.Passed = false
		outcome.Error = err.Error()
	}
	return outcome
}

func validatePresence(ctx context.Context, vctx ValidatorContext, spec types.ValidatorSpec) (bool, error) {
	sel := vctx.targetSelector(spec)
	if sel == "" {
		// No element in scope (e.g. a wait step): the page responding at
		// all counts as presence.
		if _, err := vctx.Driver.PageURL(ctx); err != nil {
			return false, err
		}
		return true, nil
	}
	return vctx.Driver.ElementVisible(ctx, sel)
}

func validateValueEquals(ctx context.Context, vctx ValidatorContext, spec types.ValidatorSpec) (bool, error) {
	value, err := vctx.Driver.ElementValue(ctx, vctx.targetSelector(spec))
	if err != nil {
		return false, err
	}
	return value == spec.Value, nil
}

func validateURLContains(ctx context.Context, vctx ValidatorContext, spec types.ValidatorSpec) (bool, error) {
	url, err := vctx.Driver.PageURL(ctx)
	if err != nil {
		return false, err
	}
	return strings.Contains(strings.ToLower(url), strings.ToLower(spec.Value)), nil
}

func validateTextContains(ctx context.Context, vctx ValidatorContext, spec types.ValidatorSpec) (bool, error) {
	var text string
	var err error
	if spec.Selector != "" {
		text, err = vctx.Driver.ExtractText(ctx, spec.Selector)
	} else {
		text, err = vctx.Driver.PageText(ctx)
	}
	if err != nil {
		return false, err
	}
	return strings.Contains(strings.ToLower(text), strings.ToLower(spec.Value)), nil
}
