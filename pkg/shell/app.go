package shell

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/go-go-golems/kbassist/pkg/api"
	"github.com/go-go-golems/kbassist/pkg/events"
	"github.com/go-go-golems/kbassist/pkg/store"
	"github.com/go-go-golems/kbassist/pkg/toast"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	ClearPrompt         = "Are you sure you want to clear all documents?"
	ClearSuccessMessage = "All documents cleared successfully"
	ClearErrorMessage   = "Error clearing documents"
	LoadErrorMessage    = "Unable to load documents"
)

type Panel int

const (
	PanelWelcome Panel = iota
	PanelChat
)

func (p Panel) String() string {
	if p == PanelChat {
		return "chat"
	}
	return "welcome"
}

type State struct {
	Documents    []string
	ShowUploader bool
	// Loaded is set after the first successful load.
	Loaded bool
}

// MainPanel shows onboarding until at least one document is indexed.
func (s State) MainPanel() Panel {
	if len(s.Documents) == 0 {
		return PanelWelcome
	}
	return PanelChat
}

// Confirmer asks the user a yes/no question.
type Confirmer interface {
	Confirm(ctx context.Context, message string) (bool, error)
}

type Registry interface {
	api.DocumentLister
	api.DocumentClearer
}

// App is the document registry behind the main screen.
type App struct {
	backend   Registry
	toasts    *toast.Manager
	confirmer Confirmer
	bus       *events.Bus

	store     *store.Store[State]
	mountOnce sync.Once
	closed    atomic.Bool
}

type Option func(*App)

func WithConfirmer(c Confirmer) Option {
	return func(a *App) {
		a.confirmer = c
	}
}

func WithToasts(m *toast.Manager) Option {
	return func(a *App) {
		a.toasts = m
	}
}

// WithBus shares document changes with other instances.
func WithBus(b *events.Bus) Option {
	return func(a *App) {
		a.bus = b
	}
}

func New(backend Registry, options ...Option) *App {
	a := &App{
		backend: backend,
		store:   store.New(State{Documents: []string{}}),
	}
	for _, o := range options {
		o(a)
	}
	if a.toasts == nil {
		a.toasts = toast.NewManager()
	}
	return a
}

func (a *App) Store() *store.Store[State] {
	return a.store
}

func (a *App) State() State {
	return a.store.Get()
}

func (a *App) Toasts() *toast.Manager {
	return a.toasts
}

// Mount loads the document list the first time it is called.
func (a *App) Mount(ctx context.Context) {
	a.mountOnce.Do(func() {
		_ = a.LoadDocuments(ctx)
	})
}

// LoadDocuments refreshes the list. On failure the list is left as it was and
// a warning toast is shown.
func (a *App) LoadDocuments(ctx context.Context) error {
	res, err := a.backend.GetDocuments(ctx)
	if a.closed.Load() {
		return nil
	}
	if err != nil {
		log.Error().Err(err).Str("component", "shell").Msg("could not load documents")
		a.toasts.Show(LoadErrorMessage, toast.KindWarning)
		return errors.Wrap(err, "load documents")
	}

	docs := slices.Clone(res.Documents)
	if docs == nil {
		docs = []string{}
	}
	a.store.Update(func(st State) (State, bool) {
		st.Documents = docs
		st.Loaded = true
		return st, true
	})
	return nil
}

func (a *App) ToggleUploader() {
	a.store.Update(func(st State) (State, bool) {
		st.ShowUploader = !st.ShowUploader
		return st, true
	})
}

// OnUploadSuccess is the uploader's success callback.
func (a *App) OnUploadSuccess(ctx context.Context) {
	err := a.LoadDocuments(ctx)
	a.store.Update(func(st State) (State, bool) {
		if !st.ShowUploader {
			return st, false
		}
		st.ShowUploader = false
		return st, true
	})
	if err == nil {
		a.publish(events.EventDocumentUploaded)
	}
}

// ClearDocuments asks for confirmation and removes every document. It reports
// whether the backend was cleared.
func (a *App) ClearDocuments(ctx context.Context) bool {
	logger := log.With().Str("component", "shell").Logger()

	if a.confirmer == nil {
		logger.Warn().Msg("no confirmer configured, not clearing documents")
		return false
	}
	ok, err := a.confirmer.Confirm(ctx, ClearPrompt)
	if err != nil {
		logger.Warn().Err(err).Msg("confirmation failed")
		return false
	}
	if !ok {
		logger.Debug().Msg("clear cancelled")
		return false
	}

	err = a.backend.ClearDocuments(ctx)
	if a.closed.Load() {
		return err == nil
	}
	if err != nil {
		logger.Error().Err(err).Msg("could not clear documents")
		a.toasts.Show(ClearErrorMessage, toast.KindError)
		return false
	}

	a.store.Update(func(st State) (State, bool) {
		st.Documents = []string{}
		return st, true
	})
	a.toasts.Show(ClearSuccessMessage, toast.KindSuccess)
	a.publish(events.EventDocumentsCleared)
	return true
}

// Run reloads the list whenever another instance reports a change. It returns
// when ctx is done; without a bus it returns immediately.
func (a *App) Run(ctx context.Context) error {
	if a.bus == nil {
		return nil
	}
	ch, err := a.bus.Subscribe(ctx)
	if err != nil {
		return err
	}
	for ev := range ch {
		if ev.Origin == a.bus.Origin() {
			continue
		}
		log.Debug().Str("component", "shell").Str("type", string(ev.Type)).Str("origin", ev.Origin).Msg("documents changed elsewhere")
		_ = a.LoadDocuments(ctx)
	}
	return nil
}

// Close unmounts the app: results of calls still in flight are dropped.
func (a *App) Close() {
	a.closed.Store(true)
	a.store.Close()
}

func (a *App) publish(t events.EventType) {
	if a.bus == nil {
		return
	}
	ev := events.Event{Type: t, Count: len(a.store.Get().Documents)}
	if err := a.bus.Publish(ev); err != nil {
		log.Warn().Err(err).Str("component", "shell").Msg("could not publish documents event")
	}
}
