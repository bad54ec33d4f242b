package api_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/go-go-golems/kbassist/pkg/api"
	"github.com/go-go-golems/kbassist/pkg/mockbackend"
	"github.com/stretchr/testify/require"
)

func newMockServer(t *testing.T) (*mockbackend.Server, *api.Client) {
	t.Helper()
	backend := mockbackend.New()
	srv := httptest.NewServer(backend.Router())
	t.Cleanup(srv.Close)
	return backend, api.NewClient(srv.URL + "/")
}

func TestClientRoundTripAgainstMockBackend(t *testing.T) {
	_, client := newMockServer(t)
	ctx := context.Background()

	docs, err := client.GetDocuments(ctx)
	require.NoError(t, err)
	require.Empty(t, docs.Documents)
	require.NotNil(t, docs.Documents)

	res, err := client.UploadDocument(ctx, api.BytesFile("report.pdf", []byte("the quarterly summary")))
	require.NoError(t, err)
	require.Equal(t, 1, res.Chunks)
	require.Equal(t, "report.pdf", res.Filename)
	require.Equal(t, "File processed successfully", res.Message)

	docs, err = client.GetDocuments(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"report.pdf"}, docs.Documents)

	answer, err := client.AskQuestion(ctx, "What is the summary?", nil)
	require.NoError(t, err)
	require.Equal(t, []string{"report.pdf"}, answer.Sources)
	require.Contains(t, answer.Answer, "summary")

	require.NoError(t, client.ClearDocuments(ctx))
	// clearing an empty set is not an error
	require.NoError(t, client.ClearDocuments(ctx))

	docs, err = client.GetDocuments(ctx)
	require.NoError(t, err)
	require.Empty(t, docs.Documents)

	health, err := client.Health(ctx)
	require.NoError(t, err)
	require.True(t, health.RAGReady)
}

func TestClientAskSendsQuestionAndHistory(t *testing.T) {
	var got api.AskRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/ask", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NotEmpty(t, r.Header.Get("X-Request-ID"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = io.WriteString(w, `{"answer":"42"}`)
	}))
	defer srv.Close()

	history := []api.ChatTurn{
		{Role: api.RoleAssistant, Content: "hello"},
		{Role: api.RoleUser, Content: "hi"},
		{Role: api.RoleAssistant, Content: "yes", Sources: []string{"a.pdf"}},
	}
	res, err := api.NewClient(srv.URL).AskQuestion(context.Background(), "why?", history)
	require.NoError(t, err)
	require.Equal(t, "42", res.Answer)
	require.NotNil(t, res.Sources)
	require.Empty(t, res.Sources)

	require.Equal(t, "why?", got.Question)
	require.Equal(t, history, got.ConversationHistory)
}

func TestClientAskEncodesEmptyHistoryAsArray(t *testing.T) {
	var raw map[string]json.RawMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		_, _ = io.WriteString(w, `{"answer":"ok","sources":[]}`)
	}))
	defer srv.Close()

	_, err := api.NewClient(srv.URL).AskQuestion(context.Background(), "q", nil)
	require.NoError(t, err)
	require.Equal(t, "[]", string(raw["conversation_history"]))
}

func TestClientUploadSendsMultipartFileField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.True(t, strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data"))
		f, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer func() {
			_ = f.Close()
		}()
		content, err := io.ReadAll(f)
		require.NoError(t, err)
		require.Equal(t, "notes.txt", header.Filename)
		require.Equal(t, "hello world", string(content))
		_, _ = io.WriteString(w, `{"chunks": 3, "collection": "default"}`)
	}))
	defer srv.Close()

	res, err := api.NewClient(srv.URL).UploadDocument(context.Background(), api.BytesFile("notes.txt", []byte("hello world")))
	require.NoError(t, err)
	require.Equal(t, 3, res.Chunks)
	require.Equal(t, "default", res.Extra["collection"])
}

func TestClientDocumentsDefaultsMissingField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{}`)
	}))
	defer srv.Close()

	docs, err := api.NewClient(srv.URL).GetDocuments(context.Background())
	require.NoError(t, err)
	require.NotNil(t, docs.Documents)
	require.Empty(t, docs.Documents)
}

func TestClientHTTPError(t *testing.T) {
	backend, client := newMockServer(t)
	backend.FailNext(http.MethodPost, "/ask")

	_, err := client.AskQuestion(context.Background(), "q", nil)
	require.Error(t, err)

	var he *api.HTTPError
	require.ErrorAs(t, err, &he)
	require.Equal(t, http.StatusInternalServerError, he.StatusCode)
	require.Equal(t, "injected failure", he.Detail)
	require.Equal(t, http.StatusInternalServerError, api.StatusCode(err))
	require.False(t, api.IsTransportError(err))
}

func TestClientUploadRejectedByBackend(t *testing.T) {
	_, client := newMockServer(t)

	_, err := client.UploadDocument(context.Background(), api.BytesFile("image.png", []byte("png")))
	require.Error(t, err)
	require.Equal(t, http.StatusBadRequest, api.StatusCode(err))
}

// trackedBody counts reads that happen after Close.
type trackedBody struct {
	remaining      int
	closed         atomic.Bool
	readAfterClose atomic.Int32
}

func (b *trackedBody) Read(p []byte) (int, error) {
	if b.closed.Load() {
		b.readAfterClose.Add(1)
		return 0, io.ErrClosedPipe
	}
	if b.remaining == 0 {
		return 0, io.EOF
	}
	n := min(len(p), b.remaining)
	for i := range p[:n] {
		p[i] = 'x'
	}
	b.remaining -= n
	return n, nil
}

func (b *trackedBody) Close() error {
	b.closed.Store(true)
	return nil
}

func TestClientUploadFinishesWritingBeforeClosingFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	body := &trackedBody{remaining: 8 << 20}
	file := api.File{Name: "big.txt", Size: 8 << 20, Open: func() (io.ReadCloser, error) {
		return body, nil
	}}

	_, err := api.NewClient(srv.URL).UploadDocument(context.Background(), file)
	require.Error(t, err)
	require.True(t, body.closed.Load())
	require.Zero(t, body.readAfterClose.Load())
}

func TestClientTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := api.NewClient(url).GetDocuments(context.Background())
	require.Error(t, err)
	require.True(t, api.IsTransportError(err))
	require.Equal(t, 0, api.StatusCode(err))
}

func TestNewClientDefaultsBaseURL(t *testing.T) {
	require.Equal(t, api.DefaultBaseURL, api.NewClient("").BaseURL())
	require.Equal(t, "http://example.com", api.NewClient(" http://example.com// ").BaseURL())
}
