package validator

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/brightstay/membership-api/pkg/apperr"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	gvalidator "github.com/go-playground/validator/v10"
)

// Validator wraps go-playground validator and translates binding failures
// into the apperr envelope returned by the route layer.
type Validator struct {
	v           *gvalidator.Validate
	fieldNameFn func(reflect.StructField) string
}

// New creates a Validator and wires Gin's binding engine so reported field
// names come from form/json tags instead of struct field names.
func New() *Validator {
	v := gvalidator.New()

	fieldNameFn := func(f reflect.StructField) string {
		for _, tag := range []string{"form", "json", "uri"} {
			if name := getTagName(f, tag); name != "" {
				return name
			}
		}
		return f.Name
	}

	if be, ok := binding.Validator.Engine().(*gvalidator.Validate); ok {
		be.RegisterTagNameFunc(fieldNameFn)
		registerISODate(be)
	}
	registerISODate(v)

	return &Validator{v: v, fieldNameFn: fieldNameFn}
}

// registerISODate adds the "isodate" tag: a strict YYYY-MM-DD calendar date.
func registerISODate(v *gvalidator.Validate) {
	_ = v.RegisterValidation("isodate", func(fl gvalidator.FieldLevel) bool {
		s := fl.Field().String()
		if s == "" {
			return true // emptiness is the job of "required"
		}
		t, err := time.Parse("2006-01-02", s)
		return err == nil && t.Format("2006-01-02") == s
	})
}

func getTagName(f reflect.StructField, tagName string) string {
	tagValue := f.Tag.Get(tagName)
	if tagValue == "-" {
		return ""
	}
	return strings.SplitN(tagValue, ",", 2)[0]
}

// ParseError converts any binding/validator error into *apperr.AppError
func (vi *Validator) ParseError(err error) *apperr.AppError {
	if err == nil {
		return nil
	}

	if ve, ok := err.(gvalidator.ValidationErrors); ok {
		appErr := apperr.New(apperr.ErrorCodeValidationFail)
		for _, fe := range ve {
			appErr.AddSuggestion(fe.Field(), messageFor(fe))
		}
		return appErr
	}

	appErr := apperr.New(apperr.ErrorCodeInvalidInput)
	appErr.Message = fmt.Sprintf("Invalid input: %v", err.Error())
	return appErr
}

func messageFor(fe gvalidator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "isodate":
		return fmt.Sprintf("%s must be a calendar date in YYYY-MM-DD format", fe.Field())
	}
	if fe.Param() != "" {
		return fmt.Sprintf("field %s failed on '%s' validation (param=%s)", fe.Field(), fe.Tag(), fe.Param())
	}
	return fmt.Sprintf("field %s failed on '%s' validation", fe.Field(), fe.Tag())
}

// BindQuery binds & validates query parameters into T.
func BindQuery[T any](vi *Validator, ctx *gin.Context) (*T, *apperr.AppError) {
	var req T
	if err := ctx.ShouldBindQuery(&req); err != nil {
		return nil, vi.ParseError(err)
	}
	return &req, nil
}
