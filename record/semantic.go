package record

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/tbxark/formpilot/types"
)

var zipPattern = regexp.MustCompile(`^[0-9]{5}(?:-[0-9]{4})?$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	if err := v.RegisterValidation("zipcode", func(fl validator.FieldLevel) bool {
		return zipPattern.MatchString(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	if err := v.RegisterValidation("uscountry", func(fl validator.FieldLevel) bool {
		_, ok := CanonicalCountry(fl.Field().String())
		return ok
	}); err != nil {
		panic(err)
	}
	return v
}

func semanticErrors(rec *Record) types.FieldErrors {
	err := validate.Struct(rec)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return types.FieldErrors{{Field: "", Message: err.Error()}}
	}
	out := make(types.FieldErrors, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Namespace()
		if i := strings.IndexByte(field, '.'); i >= 0 {
			field = field[i+1:]
		}
		out = append(out, types.FieldError{Field: field, Message: semanticMessage(field, fe.Tag())})
	}
	return out
}

func semanticMessage(field, tag string) string {
	switch tag {
	case "required":
		return label(field) + " is required."
	case "email":
		return "Enter a valid email address."
	case "zipcode":
		return "Enter a valid US ZIP code (e.g., 94103 or 94103-1234)."
	case "uscountry":
		return "Country must be the United States (accepted: United States, US, USA)."
	default:
		return label(field) + " is invalid."
	}
}
