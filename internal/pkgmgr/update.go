package pkgmgr

import (
	"context"

	"github.com/charmbracelet/log"
	"github.com/julian-richter/ComposerBackend/internal/config"
)

// RunUpdate re-resolves every requirement; without a lock file this is an
// install from scratch.
func RunUpdate(ctx context.Context, logger *log.Logger, cfg config.Config) error {
	logger.Info("composer update - running install")
	return RunInstall(ctx, logger, cfg)
}
