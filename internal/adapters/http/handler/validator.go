package handler

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/ogurasousui/employee-management/internal/core/validation"
)

// RequestValidator は go-playground/validator を echo の Validator として使うアダプタです。
// 検証エラーは validation.Errors に変換され、ドメインの検証エラーと同じ形で返却されます。
type RequestValidator struct {
	validate *validator.Validate
}

// NewRequestValidator は JSON のフィールド名でエラーを報告する RequestValidator を生成します。
func NewRequestValidator() *RequestValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &RequestValidator{validate: v}
}

// Validate は echo.Validator を満たします。
func (rv *RequestValidator) Validate(i any) error {
	err := rv.validate.Struct(i)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	out := make(validation.Errors, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, validation.FieldError{
			Field:   fe.Field(),
			Kind:    kindForTag(fe.Tag()),
			Message: messageForTag(fe),
		})
	}
	return out
}

func kindForTag(tag string) validation.Kind {
	switch tag {
	case "required":
		return validation.KindRequired
	case "max":
		return validation.KindTooLong
	case "min":
		return validation.KindTooShort
	case "oneof":
		return validation.KindInvalidEnum
	default:
		return validation.KindInvalidFormat
	}
}

func messageForTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "email":
		return "Enter a valid email address."
	case "max":
		return fmt.Sprintf("Ensure this field has no more than %s characters.", fe.Param())
	case "min":
		return fmt.Sprintf("Ensure this field has at least %s characters.", fe.Param())
	case "oneof":
		return fmt.Sprintf("%q is not a valid choice.", fmt.Sprint(fe.Value()))
	default:
		return "Enter a valid value."
	}
}
