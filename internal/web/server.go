// Package web serves the backend over HTTP. Notices produced before a
// redirect are parked in the session and shown once on the next page.
package web

import (
	"context"
	"embed"
	"errors"
	htmltemplate "html/template"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/flamego/flamego"
	"github.com/flamego/session"
	"github.com/flamego/template"
	"github.com/google/uuid"
	"github.com/julian-richter/ComposerBackend/internal/backend"
	"github.com/julian-richter/ComposerBackend/internal/config"
	"github.com/julian-richter/ComposerBackend/internal/notice"
)

//go:embed templates
var templates embed.FS

const noticesKey = "composer.notices"

// Generator produces the response for one backend request.
type Generator interface {
	Generate(ctx context.Context, req *backend.Request) (backend.Response, error)
}

type requestID string

type Server struct {
	flame  *flamego.Flame
	gen    Generator
	prefix string
	addr   string
	logger *log.Logger
}

func New(gen Generator, cfg config.ServerConfig, logger *log.Logger) (*Server, error) {
	if logger == nil {
		logger = log.Default()
	}
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "/"
	}

	fs, err := template.EmbedFS(templates, "templates", []string{".tmpl"})
	if err != nil {
		return nil, err
	}

	s := &Server{flame: flamego.New(), gen: gen, prefix: prefix, addr: cfg.Addr, logger: logger}
	s.flame.Use(flamego.Recovery())
	s.flame.Use(s.requestLogger)
	s.flame.Use(session.Sessioner(session.Options{}))
	s.flame.Use(template.Templater(template.Options{FileSystem: fs}))

	s.flame.Get("/healthz", func(c flamego.Context) {
		if _, err := c.ResponseWriter().Write([]byte("ok")); err != nil {
			s.logger.Error("failed to write response", "error", err)
		}
	})
	s.flame.Combo(prefix).Get(s.handle).Post(s.handle)
	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.flame.ServeHTTP(w, r)
}

// Run listens on the configured address until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{Addr: s.addr, Handler: s, ReadHeaderTimeout: 10 * time.Second}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("Listening", "addr", s.addr, "prefix", s.prefix)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) requestLogger(c flamego.Context) {
	id := uuid.NewString()
	c.Map(requestID(id))
	c.ResponseWriter().Header().Set("X-Request-Id", id)

	start := time.Now()
	c.Next()
	s.logger.Debug("Handled request",
		"request", id,
		"method", c.Request().Method,
		"path", c.Request().URL.Path,
		"status", c.ResponseWriter().Status(),
		"took", time.Since(start))
}

func (s *Server) handle(c flamego.Context, id requestID, sess session.Session, t template.Template, data template.Data) {
	r := c.Request()
	if err := r.ParseForm(); err != nil {
		http.Error(c.ResponseWriter(), "malformed form", http.StatusBadRequest)
		return
	}

	resp, err := s.gen.Generate(r.Context(), backend.NewRequest(r.Request, string(id)))
	if err != nil {
		// Parked notices stay in the session for the next page.
		s.logger.Error("Request failed", "request", id, "action", resp.Action, "error", err)
		http.Error(c.ResponseWriter(), http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	n := takeNotices(sess)
	n.Merge(resp.Notices)

	if resp.Redirect != nil {
		if !n.Empty() {
			sess.Set(noticesKey, n)
		}
		c.Redirect(resp.Redirect.Location(s.prefix), http.StatusSeeOther)
		return
	}
	if errors.Is(resp.Halt, backend.ErrArtifactMissing) {
		s.logger.Info("Prompting for Composer install", "request", id)
	}

	status := resp.Status
	if status == 0 {
		status = http.StatusOK
	}
	data["RequestID"] = string(id)
	data["Prefix"] = s.prefix
	data["Notices"] = n
	data["Body"] = htmltemplate.HTML(resp.Body)
	t.HTML(status, "layout")
}

// takeNotices reads and clears the notices parked by the previous request.
func takeNotices(sess session.Session) notice.Notices {
	n, ok := sess.Get(noticesKey).(notice.Notices)
	if !ok {
		return notice.Notices{}
	}
	sess.Delete(noticesKey)
	return n
}
