package uploader

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-go-golems/kbassist/pkg/api"
	"github.com/go-go-golems/kbassist/pkg/schedule"
	"github.com/go-go-golems/kbassist/pkg/store"
	"github.com/rs/zerolog/log"
)

type Phase string

const (
	PhaseIdle         Phase = "idle"
	PhaseFileSelected Phase = "file_selected"
	PhaseUploading    Phase = "uploading"
	PhaseSuccess      Phase = "success"
	PhaseError        Phase = "error"
)

const (
	StatusUploading = "Uploading and processing your document..."
	StatusError     = "Error uploading file. Please try again."
)

// SuccessDelay is how long the success status stays visible before the
// success callback runs.
const SuccessDelay = 1500 * time.Millisecond

type State struct {
	Phase    Phase
	File     *api.File
	Dragging bool
	Status   string
	Chunks   int
}

func (s State) Uploading() bool {
	return s.Phase == PhaseUploading
}

func SuccessStatus(chunks int) string {
	return fmt.Sprintf("Success! Processed %d text chunks from your document.", chunks)
}

type Uploader struct {
	backend   api.DocumentUploader
	store     *store.Store[State]
	scheduler schedule.Scheduler
	delay     time.Duration
	onSuccess func()

	mu     sync.Mutex
	task   schedule.Task
	closed bool
}

type Option func(*Uploader)

func WithScheduler(s schedule.Scheduler) Option {
	return func(u *Uploader) {
		u.scheduler = s
	}
}

// WithOnSuccess is called once per successful upload, SuccessDelay after
// the result arrived.
func WithOnSuccess(f func()) Option {
	return func(u *Uploader) {
		u.onSuccess = f
	}
}

func WithSuccessDelay(d time.Duration) Option {
	return func(u *Uploader) {
		u.delay = d
	}
}

func New(backend api.DocumentUploader, options ...Option) *Uploader {
	u := &Uploader{
		backend:   backend,
		store:     store.New(State{Phase: PhaseIdle}),
		scheduler: schedule.Real{},
		delay:     SuccessDelay,
	}
	for _, o := range options {
		o(u)
	}
	return u
}

func (u *Uploader) Store() *store.Store[State] {
	return u.store
}

func (u *Uploader) State() State {
	return u.store.Get()
}

// Select picks a file from the file picker.
func (u *Uploader) Select(file api.File) bool {
	return u.choose(file)
}

// Drop picks a file that was dragged onto the drop zone.
func (u *Uploader) Drop(file api.File) bool {
	return u.choose(file)
}

func (u *Uploader) choose(file api.File) bool {
	_, ok := u.store.Update(func(st State) (State, bool) {
		if st.Uploading() {
			return st, false
		}
		f := file
		return State{Phase: PhaseFileSelected, File: &f}, true
	})
	return ok
}

func (u *Uploader) DragOver() {
	u.setDragging(true)
}

func (u *Uploader) DragLeave() {
	u.setDragging(false)
}

func (u *Uploader) setDragging(v bool) {
	u.store.Update(func(st State) (State, bool) {
		if st.Dragging == v {
			return st, false
		}
		st.Dragging = v
		return st, true
	})
}

func (u *Uploader) CanUpload() bool {
	st := u.store.Get()
	return st.File != nil && !st.Uploading()
}

// Upload sends the selected file. It blocks until the backend answered and
// reports whether an upload was started at all.
func (u *Uploader) Upload(ctx context.Context) bool {
	var file api.File
	_, started := u.store.Update(func(st State) (State, bool) {
		if st.File == nil || st.Uploading() {
			return st, false
		}
		file = *st.File
		st.Phase = PhaseUploading
		st.Status = StatusUploading
		st.Chunks = 0
		return st, true
	})
	if !started {
		return false
	}

	logger := log.With().Str("component", "uploader").Str("file", file.Name).Logger()
	logger.Debug().Int64("size", file.Size).Msg("uploading document")

	res, err := u.backend.UploadDocument(ctx, file)

	u.mu.Lock()
	defer u.mu.Unlock()
	if u.closed {
		logger.Debug().Msg("uploader closed, discarding result")
		return true
	}

	if err != nil {
		logger.Error().Err(err).Msg("upload failed")
		u.store.Update(func(st State) (State, bool) {
			st.Phase = PhaseError
			st.Status = StatusError
			return st, true
		})
		return true
	}

	logger.Info().Int("chunks", res.Chunks).Msg("document uploaded")
	u.store.Update(func(st State) (State, bool) {
		return State{Phase: PhaseSuccess, Status: SuccessStatus(res.Chunks), Chunks: res.Chunks, Dragging: st.Dragging}, true
	})
	if u.onSuccess != nil {
		if u.task != nil {
			u.task.Cancel()
		}
		u.task = u.scheduler.AfterFunc(u.delay, u.fireSuccess)
	}
	return true
}

func (u *Uploader) fireSuccess() {
	u.mu.Lock()
	if u.closed {
		u.mu.Unlock()
		return
	}
	u.task = nil
	cb := u.onSuccess
	u.mu.Unlock()
	cb()
}

// Close cancels a pending success callback and drops in-flight results.
func (u *Uploader) Close() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.closed = true
	if u.task != nil {
		u.task.Cancel()
		u.task = nil
	}
	u.store.Close()
}
