package validator

import (
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// Validator provides validation functionality
type Validator interface {
	Validate(interface{}) error
	IsEmail(value string) bool
	Engine() *validator.Validate
}

type playground struct {
	v *validator.Validate
}

var (
	defaultOnce sync.Once
	defaultV    Validator
)

// New builds a validator with the clinic-specific tags registered.
func New() Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	Register(v)
	return &playground{v: v}
}

// Default returns a process-wide validator.
func Default() Validator {
	defaultOnce.Do(func() { defaultV = New() })
	return defaultV
}

// Register installs the custom tags and the json tag-name function on v. It is
// also applied to gin's binding engine.
func Register(v *validator.Validate) {
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range []string{"json", "form"} {
			name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
			if name != "" && name != "-" {
				return name
			}
		}
		return fld.Name
	})
	_ = v.RegisterValidation("slotdate", validateSlotDate)
	_ = v.RegisterValidation("notblank", validateNotBlank)
}

func (p *playground) Validate(obj interface{}) error {
	return p.v.Struct(obj)
}

func (p *playground) IsEmail(value string) bool {
	return p.v.Var(value, "required,email") == nil
}

func (p *playground) Engine() *validator.Validate {
	return p.v
}

// slot dates are day_month_year labels, e.g. 15_1_2024.
func validateSlotDate(fl validator.FieldLevel) bool {
	parts := strings.Split(fl.Field().String(), "_")
	if len(parts) != 3 {
		return false
	}
	for _, p := range parts {
		if p == "" {
			return false
		}
		for _, r := range p {
			if r < '0' || r > '9' {
				return false
			}
		}
	}
	return true
}

func validateNotBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}
