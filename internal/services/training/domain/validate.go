package domain

import (
	"sync"

	"churnlearn/internal/core/metrics"
	"churnlearn/internal/platform/net/http/bind"
)

var registerOnce sync.Once

// Validate checks a request with the shared validator; failures are
// perr.ErrorCodeValidation naming the field
func (r RunRequest) Validate() error {
	registerOnce.Do(func() {
		_ = bind.RegisterValidation("scorer", func(fl bind.FieldLevel) bool {
			_, err := metrics.Lookup(fl.Field().String())
			return err == nil
		})
	})
	return bind.Struct(r)
}
