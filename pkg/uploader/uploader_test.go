package uploader

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-go-golems/kbassist/pkg/api"
	"github.com/go-go-golems/kbassist/pkg/schedule"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

type stubUploader struct {
	calls  atomic.Int32
	chunks int
	err    error
	block  chan struct{}
}

func (s *stubUploader) UploadDocument(ctx context.Context, file api.File) (*api.UploadResult, error) {
	s.calls.Add(1)
	if s.block != nil {
		<-s.block
	}
	if s.err != nil {
		return nil, s.err
	}
	return &api.UploadResult{Chunks: s.chunks, Filename: file.Name}, nil
}

func newTestUploader(backend api.DocumentUploader) (*Uploader, *schedule.Manual, *atomic.Int32) {
	clock := schedule.NewManual()
	var fired atomic.Int32
	u := New(backend,
		WithScheduler(clock),
		WithOnSuccess(func() { fired.Add(1) }),
	)
	return u, clock, &fired
}

func TestSelectAndDropConverge(t *testing.T) {
	u, _, _ := newTestUploader(&stubUploader{})

	require.True(t, u.Select(api.BytesFile("a.txt", []byte("a"))))
	require.Equal(t, PhaseFileSelected, u.State().Phase)
	require.Equal(t, "a.txt", u.State().File.Name)

	u.DragOver()
	require.True(t, u.State().Dragging)
	require.True(t, u.Drop(api.BytesFile("b.pdf", []byte("b"))))
	st := u.State()
	require.Equal(t, PhaseFileSelected, st.Phase)
	require.Equal(t, "b.pdf", st.File.Name)
	require.False(t, st.Dragging)
	require.Empty(t, st.Status)
}

func TestDragLeaveClearsFlag(t *testing.T) {
	u, _, _ := newTestUploader(&stubUploader{})
	u.DragOver()
	u.DragLeave()
	require.False(t, u.State().Dragging)
	require.Equal(t, PhaseIdle, u.State().Phase)
}

func TestUploadWithoutFileIsNoop(t *testing.T) {
	backend := &stubUploader{}
	u, _, _ := newTestUploader(backend)
	require.False(t, u.CanUpload())
	require.False(t, u.Upload(context.Background()))
	require.Zero(t, backend.calls.Load())
}

func TestUploadSuccessFiresCallbackOnceAfterDelay(t *testing.T) {
	backend := &stubUploader{chunks: 12}
	u, clock, fired := newTestUploader(backend)

	var phases []Phase
	u.Store().Subscribe(func(st State) { phases = append(phases, st.Phase) })

	u.Select(api.BytesFile("report.pdf", make([]byte, 9800)))
	require.True(t, u.Upload(context.Background()))

	st := u.State()
	require.Equal(t, PhaseSuccess, st.Phase)
	require.Equal(t, "Success! Processed 12 text chunks from your document.", st.Status)
	require.Contains(t, st.Status, "12")
	require.Nil(t, st.File)
	require.Equal(t, []Phase{PhaseFileSelected, PhaseUploading, PhaseSuccess}, phases)

	clock.Advance(SuccessDelay - time.Millisecond)
	require.Zero(t, fired.Load())
	clock.Advance(time.Millisecond)
	require.EqualValues(t, 1, fired.Load())
	clock.Advance(time.Hour)
	require.EqualValues(t, 1, fired.Load())
}

func TestUploadFailureKeepsFile(t *testing.T) {
	backend := &stubUploader{err: errors.New("boom")}
	u, clock, fired := newTestUploader(backend)

	u.Select(api.BytesFile("notes.txt", []byte("hello")))
	require.True(t, u.Upload(context.Background()))

	st := u.State()
	require.Equal(t, PhaseError, st.Phase)
	require.Equal(t, StatusError, st.Status)
	require.NotNil(t, st.File)
	require.Equal(t, "notes.txt", st.File.Name)
	require.True(t, u.CanUpload())

	clock.Advance(time.Hour)
	require.Zero(t, fired.Load())
	require.Zero(t, clock.Pending())
}

func TestNoSecondUploadWhileUploading(t *testing.T) {
	backend := &stubUploader{chunks: 1, block: make(chan struct{})}
	u, _, _ := newTestUploader(backend)
	u.Select(api.BytesFile("a.txt", []byte("a")))

	done := make(chan bool)
	go func() { done <- u.Upload(context.Background()) }()
	require.Eventually(t, func() bool { return u.State().Uploading() }, time.Second, time.Millisecond)

	require.False(t, u.Upload(context.Background()))
	require.False(t, u.Select(api.BytesFile("b.txt", []byte("b"))))
	require.Equal(t, StatusUploading, u.State().Status)

	close(backend.block)
	require.True(t, <-done)
	require.EqualValues(t, 1, backend.calls.Load())
}

func TestCloseCancelsPendingSuccess(t *testing.T) {
	u, clock, fired := newTestUploader(&stubUploader{chunks: 3})
	u.Select(api.BytesFile("a.txt", []byte("a")))
	u.Upload(context.Background())
	require.Equal(t, 1, clock.Pending())

	u.Close()
	require.Zero(t, clock.Pending())
	clock.Advance(time.Hour)
	require.Zero(t, fired.Load())
}

func TestResultAfterCloseIsDiscarded(t *testing.T) {
	backend := &stubUploader{chunks: 3, block: make(chan struct{})}
	u, clock, fired := newTestUploader(backend)
	u.Select(api.BytesFile("a.txt", []byte("a")))

	done := make(chan bool)
	go func() { done <- u.Upload(context.Background()) }()
	require.Eventually(t, func() bool { return u.State().Uploading() }, time.Second, time.Millisecond)

	u.Close()
	close(backend.block)
	<-done

	require.Equal(t, PhaseUploading, u.State().Phase)
	require.Zero(t, clock.Pending())
	require.Zero(t, fired.Load())
}
