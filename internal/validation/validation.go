// Package validation checks request payloads with go-playground/validator
// and the business-specific tags registered here:
//
//	ugphone      +256 followed by nine digits
//	producetype  one of models.ProduceTypes
//	ymd          calendar date as YYYY-MM-DD
//	hhmm         24h clock time as HH:MM
//	scale=N      decimal.Decimal with at most N decimal places
//
// decimal.Decimal fields are compared as numbers, so gt/gte/lte work on them.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gcdl-backend/internal/apperr"
	"gcdl-backend/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var phonePattern = regexp.MustCompile(`^\+256\d{9}$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})

	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return d.InexactFloat64()
		}
		return nil
	}, decimal.Decimal{})

	mustRegister(v, "ugphone", func(fl validator.FieldLevel) bool {
		return IsPhone(fl.Field().String())
	})
	mustRegister(v, "producetype", func(fl validator.FieldLevel) bool {
		return models.IsProduceType(fl.Field().String())
	})
	mustRegister(v, "ymd", func(fl validator.FieldLevel) bool {
		_, err := ParseDate(fl.Field().String())
		return err == nil
	})
	mustRegister(v, "hhmm", func(fl validator.FieldLevel) bool {
		_, err := time.Parse("15:04", fl.Field().String())
		return err == nil && len(fl.Field().String()) == 5
	})
	mustRegister(v, "scale", func(fl validator.FieldLevel) bool {
		places, err := strconv.Atoi(fl.Param())
		if err != nil {
			panic(fmt.Sprintf("scale: bad param %q", fl.Param()))
		}
		d, ok := decimalField(fl)
		return !ok || HasScale(d, places)
	})
	return v
}

// decimalField reads the raw decimal behind fl. The custom type func hands
// validators a float64, which has already lost the decimal places.
func decimalField(fl validator.FieldLevel) (decimal.Decimal, bool) {
	parent := reflect.Indirect(fl.Parent())
	if parent.Kind() != reflect.Struct {
		return decimal.Decimal{}, false
	}
	f := parent.FieldByName(fl.StructFieldName())
	if f.Kind() == reflect.Pointer {
		if f.IsNil() {
			return decimal.Decimal{}, false
		}
		f = f.Elem()
	}
	if !f.IsValid() || !f.CanInterface() {
		return decimal.Decimal{}, false
	}
	d, ok := f.Interface().(decimal.Decimal)
	return d, ok
}

// HasScale reports whether d fits in a column with the given number of
// decimal places without rounding. Trailing zeros do not count.
func HasScale(d decimal.Decimal, places int) bool {
	return d.Equal(d.Truncate(int32(places)))
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register %s: %v", tag, err))
	}
}

// Struct validates s and turns the first failure into a validation error.
func Struct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return apperr.Validation("%s", describe(verrs[0]))
	}
	return apperr.Validation("invalid payload: %v", err)
}

func describe(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "ugphone":
		return field + " must be a phone number like +256XXXXXXXXX"
	case "producetype":
		return field + " must be one of: " + strings.Join(models.ProduceTypes, ", ")
	case "ymd":
		return field + " must be a date in YYYY-MM-DD format"
	case "hhmm":
		return field + " must be a time in HH:MM format"
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "gte", "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "lte", "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case "scale":
		return fmt.Sprintf("%s must have at most %s decimal places", field, fe.Param())
	case "email":
		return field + " must be a valid email address"
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}

func IsPhone(s string) bool {
	return phonePattern.MatchString(s)
}

// ParseDate parses a YYYY-MM-DD date in UTC.
func ParseDate(s string) (time.Time, error) {
	if len(s) != 10 {
		return time.Time{}, fmt.Errorf("date %q is not YYYY-MM-DD", s)
	}
	return time.Parse("2006-01-02", s)
}
