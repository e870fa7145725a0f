// cmd/app/main.go
package main

import (
	"os"

	"github.com/charmbracelet/log"
	"github.com/julian-richter/ComposerBackend/internal/config"
	"github.com/spf13/cobra"
)

// app carries what every subcommand needs once startup is done.
type app struct {
	configPath string
	cfg        config.Config
	logger     *log.Logger
	closer     func() error
}

func main() {
	a := &app{}
	if err := newRootCmd(a).Execute(); err != nil {
		logger := a.logger
		if logger == nil {
			// Fallback logger for config errors
			logger = log.NewWithOptions(os.Stderr, log.Options{Level: log.ErrorLevel})
		}
		logger.Error("application error", "err", err)
		a.close()
		os.Exit(1)
	}
	a.close()
}

// setup loads the config and installs the logger.
func (a *app) setup(*cobra.Command, []string) error {
	var err error
	if a.configPath != "" {
		a.cfg, err = config.LoadFrom(a.configPath)
	} else {
		a.cfg, err = config.Load()
	}
	if err != nil {
		return err
	}

	handle, err := config.NewLogger(a.cfg)
	if err != nil {
		return err
	}
	a.logger = handle.Logger
	a.closer = handle.Closer
	log.SetDefault(handle.Logger)
	return nil
}

func (a *app) close() {
	if a.closer == nil {
		return
	}
	if err := a.closer(); err != nil {
		// Log but don't fail on close error
		log.Error("failed to close log file", "err", err)
	}
	a.closer = nil
}
