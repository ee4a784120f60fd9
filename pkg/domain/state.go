package domain

// Sender tags who produced a transcript message.
type Sender string

const (
	SenderBot  Sender = "bot"
	SenderUser Sender = "user"
)

// EntryKind distinguishes messages from option blocks in a transcript.
type EntryKind string

const (
	EntryMessage EntryKind = "message"
	EntryOptions EntryKind = "options"
)

// Entry is one rendered item of the transcript.
type Entry struct {
	Kind    EntryKind `json:"kind"`
	Sender  Sender    `json:"sender,omitempty"`
	Text    string    `json:"text,omitempty"`
	Options []Option  `json:"options,omitempty"`
}

// ConversationState is the snapshot of one open widget.
// It is owned by a single widget and passed through the engine's pure
// transition functions.
type ConversationState struct {
	SessionID string `json:"session_id,omitempty"`

	// CurrentNodeID is the last rendered node. Empty until the first render.
	CurrentNodeID string `json:"current_node_id,omitempty"`

	// Open reports whether the widget is visible.
	Open bool `json:"open"`

	// Epoch is bumped on every close so that deferred work scheduled before
	// the close can detect it is stale.
	Epoch uint64 `json:"epoch"`

	Transcript []Entry `json:"transcript"`
}

// NewConversation returns an empty, closed conversation.
func NewConversation(sessionID string) *ConversationState {
	return &ConversationState{
		SessionID:  sessionID,
		Transcript: []Entry{},
	}
}

// Snapshot returns a deep copy safe for independent mutation.
func (s *ConversationState) Snapshot() *ConversationState {
	if s == nil {
		return nil
	}
	next := *s
	next.Transcript = make([]Entry, len(s.Transcript))
	for i, e := range s.Transcript {
		if e.Options != nil {
			e.Options = append([]Option(nil), e.Options...)
		}
		next.Transcript[i] = e
	}
	return &next
}

// VisibleOptions returns the options of the single rendered option block,
// or nil when none is shown.
func (s *ConversationState) VisibleOptions() []Option {
	for i := len(s.Transcript) - 1; i >= 0; i-- {
		if s.Transcript[i].Kind == EntryOptions {
			return s.Transcript[i].Options
		}
	}
	return nil
}

// OptionBlocks counts rendered option blocks.
func (s *ConversationState) OptionBlocks() int {
	n := 0
	for _, e := range s.Transcript {
		if e.Kind == EntryOptions {
			n++
		}
	}
	return n
}

// Messages returns only the message entries, in order.
func (s *ConversationState) Messages() []Entry {
	out := make([]Entry, 0, len(s.Transcript))
	for _, e := range s.Transcript {
		if e.Kind == EntryMessage {
			out = append(out, e)
		}
	}
	return out
}

// LastMessage returns the most recent message, if any.
func (s *ConversationState) LastMessage() (Entry, bool) {
	for i := len(s.Transcript) - 1; i >= 0; i-- {
		if s.Transcript[i].Kind == EntryMessage {
			return s.Transcript[i], true
		}
	}
	return Entry{}, false
}
