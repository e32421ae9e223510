// Package logging builds the structured logger shared across the pipeline.
package logging

import (
	"fmt"

	"go.uber.org/zap"
)

// New returns a sugared zap logger. Verbose selects the development config
// at debug level for humans watching a run; otherwise the production JSON
// config writes to stderr, keeping stdout free for command output.
func New(verbose bool) (*zap.SugaredLogger, error) {
	var cfg zap.Config
	if verbose {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
		cfg.DisableCaller = true
	}

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}
	return logger.Sugar(), nil
}

// Nop returns a logger that discards everything.
func Nop() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}
