package state

import (
	"errors"
	"time"

	"rgbafb/fallback"
)

// newLocalEnv creates a new LocalEnv instance with default values
func newLocalEnv() *LocalEnv {
	return &LocalEnv{start: time.Now()}
}

// PrepareGenerator resolves fallback configuration once and makes generator
// available to commands. Configuration and logger must be already set.
func (e *LocalEnv) PrepareGenerator() error {
	if e.Cfg == nil {
		return errors.New("configuration is not loaded")
	}
	e.Gen = fallback.New(e.Cfg.Fallback.Options(), e.Log)
	return nil
}
