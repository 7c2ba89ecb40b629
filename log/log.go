// Package log builds the process-wide zap logger.
package log

import (
	"github.com/Laisky/errors/v2"
	"github.com/Laisky/zap"
)

// New returns a development logger when debug is set, a JSON production
// logger otherwise.
func New(debug bool) (*zap.Logger, error) {
	var (
		logger *zap.Logger
		err    error
	)
	if debug {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return nil, errors.Wrap(err, "new logger")
	}
	return logger.Named("hot"), nil
}
