package chat

import "github.com/go-go-golems/kbassist/pkg/api"

type KeyAction int

const (
	KeyActionNone KeyAction = iota
	KeyActionSend
	KeyActionNewline
)

// Key is the part of a key press the composer cares about.
type Key struct {
	Enter bool
	Shift bool
}

// ClassifyKey maps a key press in the composer to an action. Plain Enter
// sends (and must not insert a newline), Shift+Enter inserts one.
func ClassifyKey(k Key) KeyAction {
	switch {
	case k.Enter && k.Shift:
		return KeyActionNewline
	case k.Enter:
		return KeyActionSend
	default:
		return KeyActionNone
	}
}

type RowKind int

const (
	RowUser RowKind = iota
	RowAssistant
	RowTyping
)

type Row struct {
	// Index is the turn's position in the transcript, -1 for the typing row.
	Index   int
	Kind    RowKind
	Content string
	Sources []string
}

// HasCitations reports whether the row shows a source strip.
func (r Row) HasCitations() bool {
	return r.Kind == RowAssistant && len(r.Sources) > 0
}

// Rows is the render model of a snapshot. The typing row is only a
// placeholder and never part of the transcript.
func Rows(st State) []Row {
	rows := make([]Row, 0, len(st.Transcript)+1)
	for i, turn := range st.Transcript {
		kind := RowAssistant
		if turn.Role == api.RoleUser {
			kind = RowUser
		}
		rows = append(rows, Row{Index: i, Kind: kind, Content: turn.Content, Sources: turn.Sources})
	}
	if st.Awaiting {
		rows = append(rows, Row{Index: -1, Kind: RowTyping})
	}
	return rows
}
