package chat

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync/atomic"

	"github.com/go-go-golems/kbassist/pkg/api"
	"github.com/go-go-golems/kbassist/pkg/store"
	"github.com/rs/zerolog/log"
)

const (
	Greeting        = "Hello! I am your AI Knowledge Base Assistant. Upload documents and ask me questions about them."
	FallbackMessage = "Sorry, I encountered an error. Please try again."
)

// State is one snapshot of the chat. Transcript is append-only and always
// starts with the greeting turn.
type State struct {
	Transcript []api.ChatTurn
	Draft      string
	Awaiting   bool
}

type Session struct {
	asker  api.QuestionAsker
	store  *store.Store[State]
	closed atomic.Bool
}

func NewSession(asker api.QuestionAsker) *Session {
	return &Session{
		asker: asker,
		store: store.New(State{
			Transcript: []api.ChatTurn{{Role: api.RoleAssistant, Content: Greeting}},
		}),
	}
}

func (s *Session) Store() *store.Store[State] {
	return s.store
}

func (s *Session) State() State {
	return s.store.Get()
}

func (s *Session) SetDraft(draft string) {
	s.store.Update(func(st State) (State, bool) {
		if st.Draft == draft {
			return st, false
		}
		st.Draft = draft
		return st, true
	})
}

// InsertNewline appends a literal newline to the draft (Shift+Enter).
func (s *Session) InsertNewline() {
	s.store.Update(func(st State) (State, bool) {
		st.Draft += "\n"
		return st, true
	})
}

// Submit sends the current draft.
func (s *Session) Submit(ctx context.Context) bool {
	return s.Send(ctx, s.store.Get().Draft)
}

// Send appends draft as a user turn and asks the backend, passing the
// transcript as it was before that turn as history. It blocks until the
// answer (or the fallback turn) has been appended and reports whether the
// draft was accepted: empty drafts and sends while a request is in flight
// are dropped.
func (s *Session) Send(ctx context.Context, draft string) bool {
	if strings.TrimSpace(draft) == "" {
		return false
	}

	var history []api.ChatTurn
	_, accepted := s.store.Update(func(st State) (State, bool) {
		if st.Awaiting {
			return st, false
		}
		history = st.Transcript
		st.Transcript = appendTurn(st.Transcript, api.ChatTurn{Role: api.RoleUser, Content: draft})
		st.Draft = ""
		st.Awaiting = true
		return st, true
	})
	if !accepted {
		return false
	}

	defer s.store.Update(func(st State) (State, bool) {
		st.Awaiting = false
		return st, true
	})

	reply := s.ask(ctx, draft, history)
	if s.closed.Load() {
		log.Debug().Str("component", "chat").Msg("session closed, discarding answer")
		return true
	}
	s.store.Update(func(st State) (State, bool) {
		st.Transcript = appendTurn(st.Transcript, reply)
		return st, true
	})
	return true
}

func (s *Session) ask(ctx context.Context, question string, history []api.ChatTurn) (reply api.ChatTurn) {
	reply = api.ChatTurn{Role: api.RoleAssistant, Content: FallbackMessage}
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("component", "chat").Str("panic", fmt.Sprint(r)).Msg("ask panicked")
			reply = api.ChatTurn{Role: api.RoleAssistant, Content: FallbackMessage}
		}
	}()

	res, err := s.asker.AskQuestion(ctx, question, history)
	if err != nil {
		log.Error().Err(err).Str("component", "chat").Msg("could not get an answer")
		return reply
	}
	sources := res.Sources
	if sources == nil {
		sources = []string{}
	}
	return api.ChatTurn{Role: api.RoleAssistant, Content: res.Answer, Sources: slices.Clone(sources)}
}

// Close unmounts the session: answers still in flight are dropped.
func (s *Session) Close() {
	s.closed.Store(true)
	s.store.Close()
}

func appendTurn(transcript []api.ChatTurn, turn api.ChatTurn) []api.ChatTurn {
	next := make([]api.ChatTurn, len(transcript), len(transcript)+1)
	copy(next, transcript)
	return append(next, turn)
}
