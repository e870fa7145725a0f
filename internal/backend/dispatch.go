package backend

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/julian-richter/ComposerBackend/internal/bootstrap"
	"github.com/julian-richter/ComposerBackend/internal/notice"
)

// ErrUnknownAction is returned for actions without a registered factory.
var ErrUnknownAction = errors.New("no handler registered for action")

var chdir = os.Chdir

// Redirect asks the transport to re-issue the request with Query.
type Redirect struct {
	Query url.Values
}

// RedirectTo builds a redirect from key/value pairs.
func RedirectTo(pairs ...string) *Redirect {
	q := url.Values{}
	for i := 0; i+1 < len(pairs); i += 2 {
		q.Set(pairs[i], pairs[i+1])
	}
	return &Redirect{Query: q}
}

// Location is the redirect target relative to base.
func (r *Redirect) Location(base string) string {
	if len(r.Query) == 0 {
		return base
	}
	return base + "?" + r.Query.Encode()
}

// Output is what a handler produces: an HTML fragment or a redirect, plus
// notices for the next render.
type Output struct {
	Body     string
	Redirect *Redirect
	Notices  notice.Notices
}

// Handler serves one action.
type Handler interface {
	Handle(ctx context.Context, req *Request) (Output, error)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, req *Request) (Output, error)

func (f HandlerFunc) Handle(ctx context.Context, req *Request) (Output, error) { return f(ctx, req) }

// Factory builds the handler for one request with its collaborators.
type Factory func(c bootstrap.Collaborators) Handler

// Dispatcher runs handlers from a registry covering every action. The
// working directory is process-wide, so dispatches are serialized and the
// backend root is restored after each handler returns or panics.
type Dispatcher struct {
	registry map[Action]Factory
	root     string
	logger   *log.Logger
	mu       sync.Mutex
}

// NewDispatcher validates that registry has a factory for every action.
func NewDispatcher(registry map[Action]Factory, root string, logger *log.Logger) (*Dispatcher, error) {
	var missing []string
	for _, a := range AllActions() {
		if registry[a] == nil {
			missing = append(missing, a.String())
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %v", ErrUnknownAction, missing)
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve backend root: %w", err)
	}
	if logger == nil {
		logger = log.Default()
	}
	reg := make(map[Action]Factory, len(registry))
	for a, f := range registry {
		reg[a] = f
	}
	return &Dispatcher{registry: reg, root: abs, logger: logger}, nil
}

// Dispatch builds the handler for action and runs it. Handler errors are
// returned as they are.
func (d *Dispatcher) Dispatch(ctx context.Context, action Action, c bootstrap.Collaborators, req *Request) (out Output, err error) {
	factory, ok := d.registry[action]
	if !ok {
		return Output{}, fmt.Errorf("%w: %s", ErrUnknownAction, action)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if err := chdir(d.root); err != nil {
		return Output{}, fmt.Errorf("enter backend root: %w", err)
	}
	defer func() {
		if cerr := chdir(d.root); cerr != nil {
			d.logger.Error("Failed to restore working directory", "root", d.root, "error", cerr)
			if err == nil {
				err = fmt.Errorf("restore working directory: %w", cerr)
			}
		}
	}()

	d.logger.Debug("Dispatching", "action", action, "request", req.ID)
	return factory(c).Handle(ctx, req)
}
