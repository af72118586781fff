package validate

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/baechuer/real-time-ressys/services/event-service/internal/domain"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

const maxBodyBytes = 1 << 20

var v = newValidator()

func newValidator() *validator.Validate {
	val := validator.New(validator.WithRequiredStructEnabled())
	// Report json names, not Go field names.
	val.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = val.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	// Any form uuid.Parse accepts; handlers canonicalize before use.
	_ = val.RegisterValidation("id", func(fl validator.FieldLevel) bool {
		_, ok := CanonicalUUID(fl.Field().String())
		return ok
	})
	return val
}

// CanonicalUUID returns s in lowercase hyphenated form.
func CanonicalUUID(s string) (string, bool) {
	id, err := uuid.Parse(s)
	if err != nil {
		return "", false
	}
	return id.String(), true
}

func DecodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// Body decodes and validates a JSON request body, reporting every problem as a validation error.
func Body(r *http.Request, dst any) error {
	if err := DecodeJSON(r, dst); err != nil {
		return domain.ErrValidationMeta("invalid request body", map[string]string{"body": err.Error()})
	}
	return Struct(dst)
}

// Struct runs the `validate` tags of s.
func Struct(s any) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return domain.ErrValidation(err.Error())
	}
	meta := make(map[string]string, len(ves))
	for _, fe := range ves {
		meta[fieldPath(fe)] = fieldMessage(fe)
	}
	return domain.ErrValidationMeta("validation failed", meta)
}

// fieldPath drops the root struct name: "NewEventReq.location.lat" -> "location.lat".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "notblank":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be less than or equal to %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", strings.ReplaceAll(fe.Param(), " ", ", "))
	case "datetime":
		return fmt.Sprintf("must match %s", fe.Param())
	case "id":
		return "must be uuid"
	default:
		return "is invalid"
	}
}
