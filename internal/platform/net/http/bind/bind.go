// Package bind provides JSON bind and validation helpers for handlers
package bind

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strings"
	"sync"

	perr "churnlearn/internal/platform/errors"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

// MaxBytes caps request bodies; a full scoring batch fits comfortably
const MaxBytes = 8 << 20

// FieldLevel aliases validator.FieldLevel
type FieldLevel = validator.FieldLevel

// ValidatorSvc holds a singleton validator and translator
type ValidatorSvc struct {
	Validator  *validator.Validate
	Translator ut.Translator
}

var (
	vOnce sync.Once
	vSvc  *ValidatorSvc
)

// Get returns the validator singleton with english messages that name
// fields by their json tag
func Get() *ValidatorSvc {
	vOnce.Do(func() {
		enLoc := en.New()
		trans, _ := ut.New(enLoc, enLoc).GetTranslator("en")

		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			tag, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
			if tag == "-" || tag == "" {
				return fld.Name
			}
			return tag
		})
		_ = en_translations.RegisterDefaultTranslations(v, trans)
		shortMessage(v, trans, "min", "{0} must be at least {1}")
		shortMessage(v, trans, "max", "{0} must be at most {1}")

		vSvc = &ValidatorSvc{Validator: v, Translator: trans}
	})
	return vSvc
}

// RegisterValidation registers a custom tag
func RegisterValidation(tag string, fn validator.Func) error {
	return Get().Validator.RegisterValidation(tag, fn)
}

// ParseJSON decodes one JSON document into T and validates it
// Unknown fields, trailing data, empty and oversized bodies are ErrorCodeJSON;
// failed tags are ErrorCodeValidation
func ParseJSON[T any](r *http.Request) (T, error) {
	var dst, zero T
	defer r.Body.Close()

	body := &io.LimitedReader{R: r.Body, N: MaxBytes + 1}
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&dst); err != nil {
		switch {
		case body.N <= 0:
			return zero, perr.JSONErrf("body larger than %d bytes", MaxBytes)
		case errors.Is(err, io.EOF):
			return zero, perr.JSONErrf("empty body")
		default:
			return zero, perr.JSONErrf("invalid JSON: %v", err)
		}
	}
	if dec.More() {
		return zero, perr.JSONErrf("unexpected trailing data")
	}
	if err := Struct(dst); err != nil {
		return zero, err
	}
	return dst, nil
}

// Struct validates v outside of a request; failures are ErrorCodeValidation
// carrying the first failing field
func Struct(v any) error {
	err := Get().Validator.Struct(v)
	if err == nil {
		return nil
	}
	var inv *validator.InvalidValidationError
	if errors.As(err, &inv) {
		return perr.Wrap(inv, perr.ErrorCodeUnknown, "validator internal error")
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return perr.WithField(perr.Newf(perr.ErrorCodeValidation, "%s", fe.Translate(Get().Translator)), fe.Field())
	}
	return perr.Newf(perr.ErrorCodeValidation, "%s", err.Error())
}

func shortMessage(v *validator.Validate, trans ut.Translator, tag, text string) {
	_ = v.RegisterTranslation(tag, trans,
		func(ut ut.Translator) error { return ut.Add(tag, text, true) },
		func(ut ut.Translator, fe validator.FieldError) string {
			msg, _ := ut.T(tag, fe.Field(), fe.Param())
			return msg
		},
	)
}
