// Package backend is the controller of the Composer client: it checks the
// environment, keeps composer.phar installed, loads the project and hands
// the request to the one action the request asks for.
package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/julian-richter/ComposerBackend/internal/bootstrap"
	"github.com/julian-richter/ComposerBackend/internal/config"
	"github.com/julian-richter/ComposerBackend/internal/environment"
	"github.com/julian-richter/ComposerBackend/internal/notice"
	"github.com/julian-richter/ComposerBackend/internal/view"
)

// ErrArtifactMissing marks a request answered with the install prompt
// because composer.phar is absent.
var ErrArtifactMissing = errors.New("composer.phar is not installed")

type EnvironmentChecker interface {
	Check(ctx context.Context) []environment.Problem
}

type SelfUpdater interface {
	Installed() bool
	Install(ctx context.Context, n *notice.Notices) error
}

type Loader interface {
	Load(ctx context.Context) (bootstrap.Collaborators, notice.Notices, error)
	SyncCMSVersion(c bootstrap.Collaborators) (bool, error)
}

// Response is handed to the transport. Either Body or Redirect is set.
type Response struct {
	Status   int
	Body     string
	Redirect *Redirect
	Notices  notice.Notices
	Action   Action
	// Halt is set when the request stopped before dispatch, wrapping
	// ErrArtifactMissing for the install prompt.
	Halt error
}

// Backend wires the request pipeline.
type Backend struct {
	env        EnvironmentChecker
	updater    SelfUpdater
	loader     Loader
	dispatcher *Dispatcher
	mode       config.DispatchMode
	logger     *log.Logger
}

func New(env EnvironmentChecker, updater SelfUpdater, loader Loader, dispatcher *Dispatcher, mode config.DispatchMode, logger *log.Logger) *Backend {
	if logger == nil {
		logger = log.Default()
	}
	return &Backend{env: env, updater: updater, loader: loader, dispatcher: dispatcher, mode: mode, logger: logger}
}

// Generate serves one request.
func (b *Backend) Generate(ctx context.Context, req *Request) (Response, error) {
	logger := b.logger.With("request", req.ID)

	if problems := b.env.Check(ctx); len(problems) > 0 {
		logger.Warn("Environment not usable", "problems", len(problems))
		body, err := view.Render("environment_errors.html", problems)
		if err != nil {
			return Response{}, err
		}
		return Response{Status: http.StatusServiceUnavailable, Body: body}, nil
	}

	if !b.updater.Installed() {
		var n notice.Notices
		if req.IsPost() && Truthy(req.Post("install")) {
			_ = b.updater.Install(ctx, &n)
			return Response{Status: http.StatusSeeOther, Redirect: &Redirect{Query: req.Query}, Notices: n}, nil
		}
		body, err := view.Render("install_composer.html", nil)
		if err != nil {
			return Response{}, err
		}
		return Response{Status: http.StatusOK, Body: body, Halt: ErrArtifactMissing}, nil
	}

	if req.Get("update") == "composer" {
		var n notice.Notices
		_ = b.updater.Install(ctx, &n)
		return Response{Status: http.StatusSeeOther, Redirect: RedirectTo(), Notices: n}, nil
	}

	collab, n, err := b.loader.Load(ctx)
	if err != nil {
		return Response{}, fmt.Errorf("bootstrap: %w", err)
	}

	changed, err := b.loader.SyncCMSVersion(collab)
	if err != nil {
		return Response{}, fmt.Errorf("sync cms version: %w", err)
	}
	if changed {
		n.AppendOutput(collab.IO.Output())
		return Response{Status: http.StatusSeeOther, Redirect: RedirectTo("update", "database"), Notices: n}, nil
	}

	action := Resolve(req, collab.Composer.Package().Migrated(), b.mode)
	logger.Info("Resolved action", "action", action)

	out, err := b.dispatcher.Dispatch(ctx, action, collab, req)
	if err != nil {
		return Response{Action: action}, fmt.Errorf("%s: %w", action, err)
	}

	n.Merge(out.Notices)
	resp := Response{Status: http.StatusOK, Body: out.Body, Redirect: out.Redirect, Notices: n, Action: action}
	if out.Redirect != nil {
		resp.Status = http.StatusSeeOther
	}
	return resp, nil
}
