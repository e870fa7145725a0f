package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/julian-richter/ComposerBackend/internal/actions"
	"github.com/julian-richter/ComposerBackend/internal/backend"
	"github.com/julian-richter/ComposerBackend/internal/bootstrap"
	"github.com/julian-richter/ComposerBackend/internal/config"
	"github.com/julian-richter/ComposerBackend/internal/environment"
	"github.com/julian-richter/ComposerBackend/internal/notice"
	"github.com/julian-richter/ComposerBackend/internal/pkgmgr"
	"github.com/julian-richter/ComposerBackend/internal/selfupdate"
	"github.com/julian-richter/ComposerBackend/internal/store"
	"github.com/julian-richter/ComposerBackend/internal/web"
	"github.com/spf13/cobra"
)

var errEnvironment = errors.New("environment is not usable")

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:               "composer-backend",
		Short:             "Composer client backend for the CMS",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/composer-backend/config.yml)")

	root.AddCommand(
		newServeCmd(a),
		newCheckCmd(a),
		newSelfUpdateCmd(a),
		newPkgmgrCmd(a, "install", "Install the packages required by the project", pkgmgr.RunInstall),
		newPkgmgrCmd(a, "update", "Re-resolve and install every requirement", pkgmgr.RunUpdate),
		newPkgmgrCmd(a, "dump-autoload", "Regenerate vendor/autoload.php", pkgmgr.RunDumpAutoload),
	)
	return root
}

func newServeCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the Composer client over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if addr != "" {
				a.cfg.Server.Addr = addr
			}

			// Handlers change the working directory, so every path derived
			// from the root is anchored before serving.
			root, err := filepath.Abs(a.cfg.Backend.Root)
			if err != nil {
				return fmt.Errorf("resolve backend root: %w", err)
			}
			a.cfg.Backend.Root = root
			composerDir, err := a.cfg.ComposerDirAbs()
			if err != nil {
				return err
			}

			st, err := store.Open(a.cfg.Database.Path)
			if err != nil {
				return err
			}
			defer st.Close()

			registry := actions.Registry(actions.Deps{Config: a.cfg, Store: st, Logger: a.logger})
			dispatcher, err := backend.NewDispatcher(registry, root, a.logger)
			if err != nil {
				return err
			}
			b := backend.New(
				environment.NewChecker(a.cfg.Environment, composerDir, environment.RealSystem{}, a.logger),
				selfupdate.New(a.cfg.SelfUpdate, composerDir, st, a.logger),
				bootstrap.New(a.cfg, st, a.logger),
				dispatcher,
				a.cfg.Backend.DispatchMode,
				a.logger,
			)

			srv, err := web.New(b, a.cfg.Server, a.logger)
			if err != nil {
				return err
			}
			return srv.Run(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	return cmd
}

func newCheckCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check PHP, extensions and the composer directory",
		RunE: func(cmd *cobra.Command, _ []string) error {
			composerDir, err := a.cfg.ComposerDirAbs()
			if err != nil {
				return err
			}
			checker := environment.NewChecker(a.cfg.Environment, composerDir, environment.RealSystem{}, a.logger)
			problems := checker.Check(cmd.Context())
			out := cmd.OutOrStdout()
			for _, p := range problems {
				_, _ = fmt.Fprintf(out, "%s: %s\n", p.Name, p.Message)
			}
			if len(problems) > 0 {
				return fmt.Errorf("%w: %d problem(s)", errEnvironment, len(problems))
			}
			_, _ = fmt.Fprintln(out, "ok")
			return nil
		},
	}
}

func newSelfUpdateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "self-update",
		Short: "Download composer.phar into the composer directory",
		RunE: func(cmd *cobra.Command, _ []string) error {
			composerDir, err := a.cfg.ComposerDirAbs()
			if err != nil {
				return err
			}
			st, err := store.Open(a.cfg.Database.Path)
			if err != nil {
				return err
			}
			defer st.Close()

			var n notice.Notices
			err = selfupdate.New(a.cfg.SelfUpdate, composerDir, st, a.logger).Install(cmd.Context(), &n)
			for _, msg := range n.Confirmations {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), msg)
			}
			return err
		},
	}
}

// newPkgmgrCmd runs a package manager operation inside the composer directory.
func newPkgmgrCmd(a *app, use, short string, run func(ctx context.Context, logger *log.Logger, cfg config.Config) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, _ []string) error {
			composerDir, err := a.cfg.ComposerDirAbs()
			if err != nil {
				return err
			}
			if err := os.Chdir(composerDir); err != nil {
				return fmt.Errorf("enter composer dir: %w", err)
			}
			return run(cmd.Context(), a.logger, a.cfg)
		},
	}
}
