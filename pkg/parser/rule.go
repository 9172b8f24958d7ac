package parser

import (
	"context"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/yndnr/confkit-go/pkg/errs"
)

// Rule validates a parsed value. A Rule is built either from a function
// (RuleFunc) or from go-playground/validator constraints (RuleTag,
// RuleStruct); both forms are reduced to the same check when constructed.
type Rule[T any] struct {
	check func(ctx context.Context, v T) error
}

// RuleFunc builds a Rule from a validation function.
func RuleFunc[T any](fn func(ctx context.Context, v T) error) Rule[T] {
	return Rule[T]{check: fn}
}

// RuleTag builds a Rule from a validator tag, e.g. "oneof=dev prod" or
// "min=1,max=65535".
func RuleTag[T any](tag string) Rule[T] {
	return Rule[T]{check: func(ctx context.Context, v T) error {
		return validate().VarCtx(ctx, v, tag)
	}}
}

// RuleStruct builds a Rule that checks the `validate` struct tags of T.
func RuleStruct[T any]() Rule[T] {
	return Rule[T]{check: func(ctx context.Context, v T) error {
		return validate().StructCtx(ctx, v)
	}}
}

var (
	validatorOnce sync.Once
	validatorInst *validator.Validate
)

func validate() *validator.Validate {
	validatorOnce.Do(func() {
		validatorInst = validator.New(validator.WithRequiredStructEnabled())
	})
	return validatorInst
}

func applyRules[T any](ctx context.Context, name string, v T, rules []Rule[T]) error {
	for _, r := range rules {
		if r.check == nil {
			continue
		}
		if err := r.check(ctx, v); err != nil {
			return errs.Validation(name, err)
		}
	}
	return nil
}

// Check runs rules against v and reports the first failure as a
// validation error for the named type.
func Check[T any](ctx context.Context, name string, v T, rules ...Rule[T]) error {
	return applyRules(ctx, name, v, rules)
}
