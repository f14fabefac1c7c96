// Package params binds raw YAML parameter maps onto typed parameter structs.
//
// Binding runs in three steps: defaults from `default:"..."` tags, then the
// raw map decoded over the struct, then `validate:"..."` rules. Because the
// decode runs after the defaults, an explicit zero value in the raw map
// (false, 0, empty list) always wins over the tag default.
package params

import (
	"bytes"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Raw is an undecoded parameter map as found in config files.
type Raw map[string]any

var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
}

// Bind fills dst (a pointer to struct) from raw.
func Bind(dst any, raw Raw) error {
	if err := defaults.Set(dst); err != nil {
		return fmt.Errorf("set defaults: %w", err)
	}

	if len(raw) > 0 {
		buf, err := yaml.Marshal(map[string]any(raw))
		if err != nil {
			return fmt.Errorf("encode params: %w", err)
		}
		dec := yaml.NewDecoder(bytes.NewReader(buf))
		dec.KnownFields(true)
		if err := dec.Decode(dst); err != nil {
			return fmt.Errorf("decode params: %w", err)
		}
	}

	if err := validate.Struct(dst); err != nil {
		return validationError(err)
	}
	return nil
}

// New allocates a P and binds raw onto it.
func New[P any](raw Raw) (*P, error) {
	p := new(P)
	if err := Bind(p, raw); err != nil {
		return nil, err
	}
	return p, nil
}

// Struct validates an already populated struct.
func Struct(v any) error {
	if err := validate.Struct(v); err != nil {
		return validationError(err)
	}
	return nil
}

func validationError(err error) error {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err
	}
	msgs := make([]string, 0, len(ve))
	for _, fe := range ve {
		msgs = append(msgs, message(fe))
	}
	return errors.New(strings.Join(msgs, "; "))
}

func message(fe validator.FieldError) string {
	field := fe.Namespace()
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "gte", "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "lt":
		return fmt.Sprintf("%s must be less than %s", field, fe.Param())
	case "lte", "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed validation: %s", field, fe.Tag())
	}
}
