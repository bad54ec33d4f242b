package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const DefaultBaseURL = "http://localhost:8000"

// AcceptedExtensions are advertised to the user. The client never enforces
// them; the backend is the only validator of content types.
var AcceptedExtensions = []string{".pdf", ".docx", ".txt", ".xlsx"}

type DocumentUploader interface {
	UploadDocument(ctx context.Context, file File) (*UploadResult, error)
}

type QuestionAsker interface {
	AskQuestion(ctx context.Context, question string, history []ChatTurn) (*AskResult, error)
}

type DocumentLister interface {
	GetDocuments(ctx context.Context) (*DocumentList, error)
}

type DocumentClearer interface {
	ClearDocuments(ctx context.Context) error
}

// Backend is everything the client needs from the document Q&A service.
type Backend interface {
	DocumentUploader
	QuestionAsker
	DocumentLister
	DocumentClearer
}

// Client talks to the backend over HTTP. There is no retry and no timeout
// beyond what the underlying http.Client does; errors are returned untouched
// as *TransportError or *HTTPError.
type Client struct {
	baseURL    string
	httpClient *http.Client
	userAgent  string
}

var _ Backend = (*Client)(nil)

type ClientOption func(*Client)

func WithHTTPClient(c *http.Client) ClientOption {
	return func(client *Client) {
		client.httpClient = c
	}
}

func WithUserAgent(ua string) ClientOption {
	return func(client *Client) {
		client.userAgent = ua
	}
}

// NewClient returns a client for baseURL. An empty baseURL falls back to DefaultBaseURL.
func NewClient(baseURL string, options ...ClientOption) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:    baseURL,
		httpClient: http.DefaultClient,
		userAgent:  "kbassist",
	}
	for _, o := range options {
		o(c)
	}
	return c
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) UploadDocument(ctx context.Context, file File) (*UploadResult, error) {
	if file.Open == nil {
		return nil, errors.Errorf("file %q has no content", file.Name)
	}
	rc, err := file.Open()
	if err != nil {
		return nil, errors.Wrapf(err, "could not open %s", file.Name)
	}
	defer func() {
		_ = rc.Close()
	}()

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	var eg errgroup.Group
	eg.Go(func() error {
		part, err := mw.CreateFormFile("file", file.Name)
		if err == nil {
			_, err = io.Copy(part, rc)
		}
		if err == nil {
			err = mw.Close()
		}
		return pw.CloseWithError(err)
	})

	var raw map[string]any
	err = c.do(ctx, http.MethodPost, "/upload", pr, mw.FormDataContentType(), &raw)
	// unblocks the writer if the request ended before the body was consumed
	_ = pr.Close()
	_ = eg.Wait()
	if err != nil {
		return nil, err
	}
	return uploadResultFromMap(raw), nil
}

func (c *Client) AskQuestion(ctx context.Context, question string, history []ChatTurn) (*AskResult, error) {
	if history == nil {
		history = []ChatTurn{}
	}
	body, err := json.Marshal(AskRequest{Question: question, ConversationHistory: history})
	if err != nil {
		return nil, errors.Wrap(err, "could not encode question")
	}
	res := &AskResult{}
	if err := c.do(ctx, http.MethodPost, "/ask", bytes.NewReader(body), "application/json", res); err != nil {
		return nil, err
	}
	if res.Sources == nil {
		res.Sources = []string{}
	}
	return res, nil
}

func (c *Client) GetDocuments(ctx context.Context) (*DocumentList, error) {
	res := &DocumentList{}
	if err := c.do(ctx, http.MethodGet, "/documents", nil, "", res); err != nil {
		return nil, err
	}
	if res.Documents == nil {
		res.Documents = []string{}
	}
	return res, nil
}

func (c *Client) ClearDocuments(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/documents", nil, "", nil)
}

func (c *Client) Health(ctx context.Context) (*HealthStatus, error) {
	res := &HealthStatus{}
	if err := c.do(ctx, http.MethodGet, "/health", nil, "", res); err != nil {
		return nil, err
	}
	return res, nil
}

// do sends one request and decodes a JSON body into out (skipped when out is nil).
func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, out any) error {
	url := c.baseURL + path
	op := method
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return &TransportError{Op: op, URL: url, Err: err}
	}
	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	logger := log.With().
		Str("component", "api").
		Str("method", method).
		Str("url", url).
		Str("request_id", requestID).
		Logger()
	logger.Debug().Msg("sending request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.Debug().Err(err).Msg("request failed")
		return &TransportError{Op: op, URL: url, Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Op: op, URL: url, Err: errors.Wrap(err, "could not read response body")}
	}
	logger.Debug().Int("status", resp.StatusCode).Int("bytes", len(data)).Msg("received response")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &HTTPError{Op: op, URL: url, StatusCode: resp.StatusCode, Detail: errorDetail(data)}
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &TransportError{Op: op, URL: url, Err: errors.Wrap(err, "could not decode response")}
	}
	return nil
}

func errorDetail(data []byte) string {
	var body struct {
		Detail any `json:"detail"`
	}
	if err := json.Unmarshal(data, &body); err == nil && body.Detail != nil {
		if s, ok := body.Detail.(string); ok {
			return s
		}
		if b, err := json.Marshal(body.Detail); err == nil {
			return string(b)
		}
	}
	s := strings.TrimSpace(string(data))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}

func uploadResultFromMap(raw map[string]any) *UploadResult {
	res := &UploadResult{Extra: map[string]any{}}
	for k, v := range raw {
		switch k {
		case "chunks":
			if n, ok := v.(float64); ok {
				res.Chunks = int(n)
			}
		case "message":
			res.Message, _ = v.(string)
		case "filename":
			res.Filename, _ = v.(string)
		default:
			res.Extra[k] = v
		}
	}
	return res
}
