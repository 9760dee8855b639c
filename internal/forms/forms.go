// Package forms validates user input locally before it reaches the
// backend. Errors are keyed by the JSON field name, as the backend keys
// its own.
package forms

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/naukovi-znahidky/client/types"
)

// Rule tags reported by struct-level validations.
const (
	ruleInstitution = "institution_required"
	ruleLink        = "link_required"
)

// ValidationErrors maps a field name to its messages.
type ValidationErrors map[string][]string

func (v ValidationErrors) Error() string {
	return "validation failed: " + strings.ReplaceAll(v.Message(), "\n", "; ")
}

// Message renders one "field: msg, msg" line per field in sorted order.
func (v ValidationErrors) Message() string {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, k+": "+strings.Join(v[k], ", "))
	}
	return strings.Join(lines, "\n")
}

// Has reports whether field has at least one error.
func (v ValidationErrors) Has(field string) bool {
	return len(v[field]) > 0
}

// First returns the first message of field, or "".
func (v ValidationErrors) First(field string) string {
	if msgs := v[field]; len(msgs) > 0 {
		return msgs[0]
	}
	return ""
}

func (v ValidationErrors) add(field, msg string) {
	v[field] = append(v[field], msg)
}

// Validator checks the input types against their validate tags and the
// cross-field rules below.
type Validator struct {
	validate *validator.Validate
}

// New constructs a Validator with the struct-level rules registered.
func New() *Validator {
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	validate.RegisterStructValidation(registrationRules, types.Registration{})
	validate.RegisterStructValidation(contentRules, types.ContentInput{})
	return &Validator{validate: validate}
}

var defaultValidator = New()

// Validate checks v with the package validator. The result is nil or a
// ValidationErrors.
func Validate(v any) error {
	return defaultValidator.Validate(v)
}

// Validate checks v. It returns nil or a ValidationErrors.
func (fv *Validator) Validate(v any) error {
	err := fv.validate.Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("validate: %w", err)
	}
	out := ValidationErrors{}
	for _, fe := range fieldErrs {
		out.add(fe.Field(), message(fe))
	}
	return out
}

func registrationRules(sl validator.StructLevel) {
	reg := sl.Current().Interface().(types.Registration)
	if reg.Institution.IsZero() {
		sl.ReportError(reg.Institution, "institution", "Institution", ruleInstitution, "")
	}
}

func contentRules(sl validator.StructLevel) {
	in := sl.Current().Interface().(types.ContentInput)
	if in.ContentType.RequiresLink() && strings.TrimSpace(in.Link) == "" {
		sl.ReportError(in.Link, "link", "Link", ruleLink, "")
	}
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "Це поле обов'язкове."
	case "email":
		return "Введіть правильну адресу електронної пошти."
	case "url":
		return "Введіть правильний URL."
	case "min":
		return fmt.Sprintf("Щонайменше %s символів.", fe.Param())
	case "max":
		return fmt.Sprintf("Не більше %s символів.", fe.Param())
	case "eqfield":
		return "Паролі не співпадають."
	case "oneof":
		return "Неприпустиме значення."
	case ruleInstitution:
		return "Оберіть або додайте навчальний заклад."
	case ruleLink:
		return "Посилання обов'язкове для цього типу матеріалу."
	default:
		return "Неправильне значення."
	}
}
