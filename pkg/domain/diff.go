package domain

import (
	"reflect"
)

// StateDiff represents the changes between two conversation states.
// It is designed to be serialized to JSON for partial updates on the client.
type StateDiff struct {
	// SessionID is always present to identify the target.
	SessionID string `json:"session_id"`

	CurrentNodeID *string `json:"current_node_id,omitempty"`
	Open          *bool   `json:"open,omitempty"`

	// Appended holds entries added at the end of the transcript.
	Appended []Entry `json:"appended,omitempty"`

	// Transcript is the full transcript, sent instead of Appended when the
	// old transcript is not a prefix of the new one (an option block was
	// removed, for instance).
	Transcript []Entry `json:"transcript,omitempty"`
}

// Diff calculates the difference between oldState and newState.
// If oldState is nil, it returns a diff representing the entire newState (initial load).
func Diff(oldState, newState *ConversationState) *StateDiff {
	if newState == nil {
		return nil
	}

	diff := &StateDiff{
		SessionID: newState.SessionID,
	}

	if oldState == nil || oldState.CurrentNodeID != newState.CurrentNodeID {
		diff.CurrentNodeID = &newState.CurrentNodeID
	}
	if oldState == nil || oldState.Open != newState.Open {
		diff.Open = &newState.Open
	}

	diffTranscript(oldState, newState, diff)

	if diff.IsEmpty() {
		return nil
	}
	return diff
}

func diffTranscript(old, new *ConversationState, diff *StateDiff) {
	if old == nil {
		if len(new.Transcript) > 0 {
			diff.Transcript = new.Transcript
		}
		return
	}

	oldLen := len(old.Transcript)
	if oldLen <= len(new.Transcript) && reflect.DeepEqual(old.Transcript, new.Transcript[:oldLen]) {
		if len(new.Transcript) > oldLen {
			diff.Appended = new.Transcript[oldLen:]
		}
		return
	}

	// Rewrite: send everything.
	diff.Transcript = new.Transcript
	if diff.Transcript == nil {
		diff.Transcript = []Entry{}
	}
}

// IsEmpty checks if the diff contains any actionable changes.
func (d *StateDiff) IsEmpty() bool {
	return d.CurrentNodeID == nil &&
		d.Open == nil &&
		len(d.Appended) == 0 &&
		d.Transcript == nil
}
