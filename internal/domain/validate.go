package domain

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// MaxDescriptionLength bounds the free-text description.
const MaxDescriptionLength = 200

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// Normalize validates d and returns it with the category in canonical case and
// the description trimmed. Any problem is reported as a *ValidationError.
func Normalize(d Draft) (Draft, error) {
	d.Kind = Kind(strings.ToLower(strings.TrimSpace(string(d.Kind))))
	d.Category = strings.TrimSpace(d.Category)
	d.Description = strings.TrimSpace(d.Description)

	var problems []FieldError

	if !d.Date.IsValid() {
		problems = append(problems, FieldError{Field: "date", Message: "must be a valid YYYY-MM-DD date"})
	}

	if err := validatorInstance().Struct(d); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return d, fmt.Errorf("Normalize: validate draft: %w", err)
		}
		for _, fe := range verrs {
			problems = append(problems, FieldError{Field: fe.Field(), Message: describe(fe)})
		}
	}

	if math.IsInf(d.Amount, 0) || math.IsNaN(d.Amount) {
		problems = append(problems, FieldError{Field: "amount", Message: "must be a finite number"})
	}

	if d.Kind.Valid() && d.Category != "" {
		canonical, ok := CanonicalCategory(d.Kind, d.Category)
		if !ok {
			problems = append(problems, FieldError{
				Field:   "category",
				Message: fmt.Sprintf("%q is not a %s category (allowed: %s)", d.Category, d.Kind, strings.Join(CategoriesFor(d.Kind), ", ")),
			})
		} else {
			d.Category = canonical
		}
	}

	if len(problems) > 0 {
		return d, &ValidationError{Fields: problems}
	}
	return d, nil
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	}
	return "failed " + fe.Tag() + " check"
}
