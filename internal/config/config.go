// Package config holds the process-wide knobs a caller supplies to
// the build pipeline. It is deliberately small: cross-recipe
// scheduling and repository configuration belong to the caller, not
// to this core.
package config

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// Config describes where a single recipe build reads from, writes
// to, and how long it may run before being canceled.
type Config struct {
	// WorkRoot is the directory a recipe's sources are fetched into
	// and its scripts are run from.
	WorkRoot string `validate:"required"`
	// DistRoot is the directory finished .ipk archives are written to.
	DistRoot string `validate:"required"`
	// Timeout bounds the whole pipeline run; zero means no timeout.
	Timeout time.Duration `validate:"gte=0"`
	// HookModulePaths lists compiled Go plugin (.so) files to load
	// into the hook registry before the pipeline starts.
	HookModulePaths []string `validate:"dive,required"`
}

var validate = validator.New()

// Validate checks the struct tags above and returns a descriptive
// error listing every violation.
func (c Config) Validate() error {
	return validate.Struct(c)
}
