package tracker

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/rushteam/feedrank/core"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// getValidator 返回单例校验器，并发安全。
func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Validate 校验行为的必填字段与取值范围，失败时返回 core.ErrInvalidBehavior 类错误。
func Validate(b *core.Behavior) error {
	if b == nil {
		return core.WrapDomainError(core.ModuleTracker, core.ErrorCodeInvalidInput, "tracker: behavior is nil", nil)
	}
	err := getValidator().Struct(b)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return core.WrapDomainError(core.ModuleTracker, core.ErrorCodeInvalidInput, "tracker: "+err.Error(), err)
	}
	messages := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		messages = append(messages, translate(fe))
	}
	return core.WrapDomainError(core.ModuleTracker, core.ErrorCodeInvalidInput,
		"tracker: invalid behavior: "+strings.Join(messages, "; "), err)
}

func translate(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}
