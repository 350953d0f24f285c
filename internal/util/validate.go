package util

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validate checks typed payloads that do not come through gin binding, e.g. JSON column
// elements built inside services.
var Validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// 使用 json 标签名作为错误字段名
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ValidateStruct runs the validator and folds field errors into one ErrValidation.
func ValidateStruct(s interface{}) error {
	if err := Validate.Struct(s); err != nil {
		return Validationf("%s", describeValidation(err))
	}
	return nil
}

// BindingMessage renders gin binding errors as a short, field-oriented message.
func BindingMessage(err error) string {
	return describeValidation(err)
}

func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Namespace()
		if i := strings.Index(field, "."); i >= 0 {
			field = field[i+1:]
		}
		if fe.Param() != "" {
			parts = append(parts, field+" failed "+fe.Tag()+"="+fe.Param())
		} else {
			parts = append(parts, field+" failed "+fe.Tag())
		}
	}
	return strings.Join(parts, "; ")
}
