package v1

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/duynhne/user-service/internal/core/domain"
)

// phonePattern accepts an optional leading + and 3 to 15 digits
var phonePattern = regexp.MustCompile(`^\+?[0-9]{3,15}$`)

var registerOnce sync.Once

// RegisterValidators installs the "phone", "role" and "pwbytes" binding rules and reports
// field errors by their JSON names. Safe to call more than once.
func RegisterValidators() error {
	var err error
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			err = errors.New("gin binding validator is not go-playground/validator")
			return
		}

		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
		if err = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
			return phonePattern.MatchString(fl.Field().String())
		}); err != nil {
			return
		}
		if err = v.RegisterValidation("role", func(fl validator.FieldLevel) bool {
			return domain.Role(fl.Field().String()).Valid()
		}); err != nil {
			return
		}
		// max counts runes; bcrypt limits bytes
		err = v.RegisterValidation("pwbytes", func(fl validator.FieldLevel) bool {
			return len(fl.Field().String()) <= domain.MaxPasswordBytes
		})
	})
	return err
}

// sanitizeValidationError returns a user-friendly message for validation/binding errors.
// Never expose raw gin/go validation errors to clients (security + UX).
func sanitizeValidationError(err error) string {
	if err == nil {
		return ""
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, fieldMessage(fe))
		}
		return strings.Join(msgs, "; ")
	}

	msg := err.Error()
	if strings.Contains(msg, "cannot unmarshal") ||
		strings.Contains(msg, "invalid character") ||
		strings.Contains(msg, "Key:") ||
		strings.Contains(msg, "EOF") {
		return "Invalid request body"
	}
	if len(msg) < 100 && !strings.Contains(msg, "Error:") {
		return msg
	}
	return "Invalid request"
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "phone":
		return field + " must be 3 to 15 digits with an optional leading +"
	case "pwbytes":
		return fmt.Sprintf("%s must be at most %d bytes", field, domain.MaxPasswordBytes)
	case "role":
		return fmt.Sprintf("%s must be one of %s, %s", field, domain.RoleAdmin, domain.RoleUser)
	default:
		return field + " is invalid"
	}
}
