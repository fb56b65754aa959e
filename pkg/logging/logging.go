// Package logging provides the single zap.Logger constructor every
// component in this repo is handed at construction time, rather than
// reaching for a global logger.
package logging

import "go.uber.org/zap"

// New builds a production-shaped zap logger, or a more verbose development
// logger when verbose is set.
func New(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
