package scan

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/xelth-com/ecklinen/internal/models"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("session_type", func(fl validator.FieldLevel) bool {
		return models.SessionType(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("resolution", func(fl validator.FieldLevel) bool {
		return models.ConflictResolution(fl.Field().String()).Valid()
	})
	return v
}

// validateStruct checks validation tags and reports the first failing field
func validateStruct(op string, in interface{}) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		f := verrs[0]
		field := f.Namespace()
		if i := strings.Index(field, "."); i >= 0 {
			field = field[i+1:]
		}
		return validationError(op, field, fmt.Sprintf("failed %q validation", f.Tag()))
	}
	return validationError(op, "", err.Error())
}
