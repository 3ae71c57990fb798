// Package view renders the API greeting page as text.
//
// A View starts in the loading state. Mount fetches the greeting once; the
// outcome moves the view to either the error or the loaded state, both
// terminal. Unmount, or cancelling the context given to Mount, abandons an
// in-flight fetch and leaves the state unchanged.
package view

import (
	"context"
	"errors"
	"io"
	"sync"
	"text/template"

	"go.uber.org/zap"

	"github.com/janisto/gitops-demo/internal/apiclient"
	applog "github.com/janisto/gitops-demo/internal/platform/logging"
)

// Fetcher loads the greeting. *apiclient.Client implements it.
type Fetcher interface {
	GetHello(ctx context.Context) (*apiclient.Hello, error)
}

// State is a snapshot of what the view shows.
type State struct {
	Loading bool
	Data    *apiclient.Hello
	Error   string
}

var page = template.Must(template.New("page").Parse(`K8s GitOps Demo
API Response
{{if .Loading}}Loading...
{{end}}{{if .Error}}Error: {{.Error}}
{{end}}{{with .Data}}Message: {{.Message}}
Environment: {{.Environment}}
Timestamp: {{.Timestamp}}
{{end}}Deployed with ArgoCD
`))

// View holds the render state for one mounted page.
type View struct {
	fetcher Fetcher

	mu       sync.Mutex
	state    State
	mounted  bool
	disposed bool
	cancel   context.CancelFunc
	done     chan struct{}
	doneOnce sync.Once
}

// New returns a view in the loading state.
func New(f Fetcher) *View {
	return &View{
		fetcher: f,
		state:   State{Loading: true},
		done:    make(chan struct{}),
	}
}

// Mount starts the single fetch on its own goroutine. Calls after the first,
// or after Unmount, do nothing.
func (v *View) Mount(ctx context.Context) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.mounted || v.disposed {
		return
	}
	v.mounted = true

	ctx, cancel := context.WithCancel(ctx)
	v.cancel = cancel
	go v.fetch(ctx, cancel)
}

func (v *View) fetch(ctx context.Context, cancel context.CancelFunc) {
	defer v.closeDone()
	defer cancel()

	hello, err := v.fetcher.GetHello(ctx)

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.disposed || ctx.Err() != nil {
		applog.LogDebug(ctx, "fetch cancelled, dropping result")
		return
	}
	v.state.Loading = false
	if err != nil {
		v.state.Error = err.Error()
		var statusErr *apiclient.StatusError
		if errors.As(err, &statusErr) {
			applog.LogWarn(ctx, "hello fetch failed", zap.Int("status", statusErr.Status))
		} else {
			applog.LogWarn(ctx, "hello fetch failed", zap.Error(err))
		}
		return
	}
	v.state.Data = hello
}

// Unmount cancels an in-flight fetch. Its result, if any, is discarded.
func (v *View) Unmount() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.disposed {
		return
	}
	v.disposed = true
	if v.cancel != nil {
		v.cancel()
	}
	if !v.mounted {
		v.closeDone()
	}
}

// Done is closed once the fetch goroutine has finished, or immediately on
// Unmount of a view that was never mounted.
func (v *View) Done() <-chan struct{} {
	return v.done
}

func (v *View) closeDone() {
	v.doneOnce.Do(func() { close(v.done) })
}

// State returns a copy of the current state.
func (v *View) State() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	s := v.state
	if s.Data != nil {
		data := *s.Data
		s.Data = &data
	}
	return s
}

// Render writes the current state as text.
func (v *View) Render(w io.Writer) error {
	return page.Execute(w, v.State())
}
