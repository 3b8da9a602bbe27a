package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/sahilchouksey/enrollment-api/model"
)

// Validator wraps the go-playground validator
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a new validator instance.
// Field names in errors are the JSON names and the "course" tag checks model.CourseOptions.
func NewValidator() *Validator {
	v := validator.New()

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	// Registering a fixed tag on a fresh instance cannot fail
	_ = v.RegisterValidation("course", func(fl validator.FieldLevel) bool {
		return model.IsCourseOption(fl.Field().String())
	})

	return &Validator{
		validate: v,
	}
}

// ValidateEnrollment checks a candidate form against the enrollment schema.
// It returns the accepted form, or nil and one message per invalid field.
func (v *Validator) ValidateEnrollment(form model.EnrollmentForm) (*model.EnrollmentForm, map[string]string) {
	err := v.validate.Struct(form)
	if err == nil {
		accepted := form
		return &accepted, nil
	}

	fieldErrors := FormatValidationErrors(err)
	if len(fieldErrors) == 0 {
		// not a ValidationErrors value, still reject the whole record
		fieldErrors = map[string]string{"form": err.Error()}
	}
	return nil, fieldErrors
}

// enrollmentMessages maps field -> tag -> message shown next to the input
var enrollmentMessages = map[string]map[string]string{
	"studentName": {
		"min": "Name must be at least 2 characters",
		"max": "Name must be at most 100 characters",
	},
	"email": {
		"email": "Invalid email address",
		"max":   "Email must be at most 255 characters",
	},
	"phone": {
		"min": "Phone number must be at least 10 digits",
		"max": "Phone number must be at most 20 characters",
	},
	"education": {
		"min": "Education is required",
		"max": "Education must be at most 200 characters",
	},
	"interestedCourse": {
		"required": "Please select a course",
		"course":   "Please select a course",
	},
}

// FormatValidationErrors converts validation errors to a user-friendly format.
// Only the first violation per field is kept.
func FormatValidationErrors(err error) map[string]string {
	errs := make(map[string]string)

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return errs
	}

	for _, e := range validationErrs {
		field := e.Field()
		if _, seen := errs[field]; seen {
			continue
		}

		if msg, ok := enrollmentMessages[field][e.Tag()]; ok {
			errs[field] = msg
			continue
		}

		switch e.Tag() {
		case "required":
			errs[field] = fmt.Sprintf("%s is required", field)
		case "email":
			errs[field] = "Invalid email format"
		case "min":
			errs[field] = fmt.Sprintf("%s must be at least %s characters", field, e.Param())
		case "max":
			errs[field] = fmt.Sprintf("%s must be at most %s characters", field, e.Param())
		default:
			errs[field] = fmt.Sprintf("%s is invalid", field)
		}
	}

	return errs
}
