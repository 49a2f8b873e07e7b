package state

import (
	"time"

	"go.uber.org/zap"

	"plumber/transform"
)

// newLocalEnv creates a new LocalEnv instance with default values
func newLocalEnv() *LocalEnv {
	return &LocalEnv{
		Log:   zap.NewNop(),
		start: time.Now(),
	}
}

// TransformOptions builds transformer options from loaded configuration.
func (e *LocalEnv) TransformOptions() transform.Options {
	if e.Cfg == nil {
		return transform.Options{}
	}
	return transform.Options{
		Params: e.Cfg.Grid.Params(),
		Strict: e.Cfg.Grid.Strict,
	}
}

// MinifyOutput reports whether results have to be minified either by request
// or by configuration.
func (e *LocalEnv) MinifyOutput() bool {
	return e.Minify || (e.Cfg != nil && e.Cfg.Output.Minify)
}
