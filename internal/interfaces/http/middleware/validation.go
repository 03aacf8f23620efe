package middleware

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/flowstart/douyin-web/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// SetupValidator makes binding errors name the json or form key the client
// sent instead of the Go field.
func SetupValidator() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, tag := range []string{"json", "form"} {
			name, _, _ := strings.Cut(f.Tag.Get(tag), ",")
			switch name {
			case "-":
				return ""
			case "":
				continue
			default:
				return name
			}
		}
		return ""
	})
}

// FormatValidationErrors lists one detail per failed field, or nil when err
// did not come from the validator.
func FormatValidationErrors(err error) []dto.ValidationDetail {
	var fields validator.ValidationErrors
	if !errors.As(err, &fields) {
		return nil
	}
	details := make([]dto.ValidationDetail, len(fields))
	for i, fe := range fields {
		details[i] = dto.ValidationDetail{Field: fe.Field(), Message: describe(fe)}
	}
	return details
}

var bounds = map[string]string{
	"gte": "at least",
	"gt":  "greater than",
	"lte": "at most",
	"lt":  "less than",
}

func describe(fe validator.FieldError) string {
	name, param := fe.Field(), fe.Param()
	switch tag := fe.Tag(); tag {
	case "required":
		return name + " is required"
	case "min", "max":
		word := "at least"
		if tag == "max" {
			word = "at most"
		}
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be %s %s characters", name, word, param)
		}
		return fmt.Sprintf("%s must be %s %s", name, word, param)
	case "gte", "gt", "lte", "lt":
		return fmt.Sprintf("%s must be %s %s", name, bounds[tag], param)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", name, param)
	case "datetime":
		return fmt.Sprintf("%s must be a date in the format %s", name, param)
	default:
		return name + " is invalid"
	}
}
