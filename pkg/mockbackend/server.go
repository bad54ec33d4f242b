// Package mockbackend is an in-memory stand-in for the document Q&A backend.
// It speaks the same HTTP contract as the real service so the client can be
// developed and tested without parsing, embeddings or a language model.
package mockbackend

import (
	"encoding/json"
	"io"
	"net/http"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-go-golems/kbassist/pkg/api"
	"github.com/rs/zerolog/log"
)

const (
	ChunkSize    = 1000
	ChunkOverlap = 200
	TopK         = 3
)

var allowedExtensions = map[string]bool{
	".pdf":  true,
	".docx": true,
	".xlsx": true,
	".txt":  true,
	".csv":  true,
}

type document struct {
	name    string
	content string
}

// Server keeps uploaded documents in memory. The zero value is not usable,
// use New.
type Server struct {
	mu        sync.Mutex
	documents []document

	// FailNext makes the next request to the given path answer with a 500.
	failNext map[string]bool
}

func New() *Server {
	return &Server{failNext: map[string]bool{}}
}

// FailNext arms a single 500 response for method+path, e.g. ("POST", "/ask").
func (s *Server) FailNext(method, path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext[method+" "+path] = true
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.injectFailures)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"message": "AI Knowledge Base Assistant API", "status": "running"})
	})
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, api.HealthStatus{Status: "healthy", RAGReady: true})
	})
	r.Post("/upload", s.handleUpload)
	r.Post("/ask", s.handleAsk)
	r.Get("/documents", s.handleListDocuments)
	r.Delete("/documents", s.handleClearDocuments)
	return r
}

func (s *Server) injectFailures(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + r.URL.Path
		s.mu.Lock()
		fail := s.failNext[key]
		delete(s.failNext, key)
		s.mu.Unlock()
		if fail {
			writeDetail(w, http.StatusInternalServerError, "injected failure")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	f, header, err := r.FormFile("file")
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer func() {
		_ = f.Close()
	}()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !allowedExtensions[ext] {
		writeDetail(w, http.StatusBadRequest, "File type "+ext+" not supported")
		return
	}
	content, err := io.ReadAll(f)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "Error processing file: "+err.Error())
		return
	}

	s.mu.Lock()
	s.documents = append(s.documents, document{name: header.Filename, content: string(content)})
	s.mu.Unlock()

	chunks := CountChunks(len(content))
	log.Debug().Str("component", "mockbackend").Str("filename", header.Filename).Int("chunks", chunks).Msg("ingested document")
	writeJSON(w, http.StatusOK, map[string]any{
		"message":  "File processed successfully",
		"filename": header.Filename,
		"chunks":   chunks,
	})
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req api.AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid request body")
		return
	}

	s.mu.Lock()
	docs := append([]document(nil), s.documents...)
	s.mu.Unlock()

	sources := rank(docs, req.Question)
	answer := "I could not find anything about that in your documents."
	if len(sources) > 0 {
		answer = "Based on " + strings.Join(sources, ", ") + ", here is what I found about: " + req.Question
	}
	writeJSON(w, http.StatusOK, api.AskResult{Answer: answer, Sources: sources})
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	names := make([]string, 0, len(s.documents))
	for _, d := range s.documents {
		names = append(names, d.name)
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, api.DocumentList{Documents: names})
}

func (s *Server) handleClearDocuments(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.documents = nil
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"message": "All documents cleared successfully"})
}

// CountChunks is the number of ChunkSize windows, advancing by
// ChunkSize-ChunkOverlap, needed to cover n characters.
func CountChunks(n int) int {
	if n <= 0 {
		return 0
	}
	if n <= ChunkSize {
		return 1
	}
	step := ChunkSize - ChunkOverlap
	return 1 + (n-ChunkSize+step-1)/step
}

func rank(docs []document, question string) []string {
	terms := strings.Fields(strings.ToLower(question))
	type scored struct {
		name  string
		score int
	}
	var hits []scored
	for _, d := range docs {
		content := strings.ToLower(d.content)
		score := 0
		for _, t := range terms {
			t = strings.Trim(t, "?!.,;:\"'")
			if len(t) < 3 {
				continue
			}
			score += strings.Count(content, t)
		}
		if score > 0 {
			hits = append(hits, scored{name: d.name, score: score})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })

	sources := []string{}
	for i, h := range hits {
		if i == TopK {
			break
		}
		sources = append(sources, h.name)
	}
	return sources
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]any{"detail": detail})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Str("component", "mockbackend").Msg("could not write response")
	}
}
