package api

import (
	"bytes"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatTurn is one entry of the transcript, in the shape the backend expects
// inside conversation_history.
type ChatTurn struct {
	Role    Role     `json:"role"`
	Content string   `json:"content"`
	Sources []string `json:"sources,omitempty"`
}

// File is something that can be uploaded: a name for the multipart part and
// a way to (re)open its content. Open is called once per upload attempt, so a
// failed upload can be retried without selecting the file again.
type File struct {
	Name string
	Size int64
	Open func() (io.ReadCloser, error)
}

// LocalFile builds a File from a path on disk.
func LocalFile(path string) (File, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return File{}, errors.Wrapf(err, "could not stat %s", path)
	}
	if fi.IsDir() {
		return File{}, errors.Errorf("%s is a directory", path)
	}
	return File{
		Name: filepath.Base(path),
		Size: fi.Size(),
		Open: func() (io.ReadCloser, error) {
			return os.Open(path)
		},
	}, nil
}

// BytesFile builds a File from in-memory content.
func BytesFile(name string, content []byte) File {
	return File{
		Name: name,
		Size: int64(len(content)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(content)), nil
		},
	}
}

// UploadResult is the backend's answer to an upload. Fields the client does
// not know about are kept in Extra.
type UploadResult struct {
	Chunks   int            `json:"chunks"`
	Message  string         `json:"message,omitempty"`
	Filename string         `json:"filename,omitempty"`
	Extra    map[string]any `json:"-"`
}

type AskRequest struct {
	Question            string     `json:"question"`
	ConversationHistory []ChatTurn `json:"conversation_history"`
}

type AskResult struct {
	Answer  string   `json:"answer"`
	Sources []string `json:"sources"`
}

type DocumentList struct {
	Documents []string `json:"documents"`
}

type HealthStatus struct {
	Status   string `json:"status"`
	RAGReady bool   `json:"rag_ready"`
}
