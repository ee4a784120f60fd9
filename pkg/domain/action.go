package domain

import (
	"encoding/json"
	"fmt"
)

// Action is what happens when an option is selected.
// It is a closed set: Next, OpenLink, Navigate and OpenMessaging.
type Action interface {
	// Kind returns the wire name of the action ("next", "link", "goto", "whatsapp").
	Kind() string
	isAction()
}

// Action kinds as they appear in graph files.
const (
	KindNext      = "next"
	KindLink      = "link"
	KindGoto      = "goto"
	KindMessaging = "whatsapp"
)

// Next moves the conversation to another node.
type Next struct {
	NodeID string
}

// OpenLink opens URL in a new browsing context. The conversation stays put.
type OpenLink struct {
	URL string
}

// Navigate replaces the current page with URL, leaving the conversation.
type Navigate struct {
	URL string
}

// OpenMessaging opens the messaging deep link prefilled with Text.
type OpenMessaging struct {
	Text string
}

func (Next) Kind() string          { return KindNext }
func (OpenLink) Kind() string      { return KindLink }
func (Navigate) Kind() string      { return KindGoto }
func (OpenMessaging) Kind() string { return KindMessaging }

func (Next) isAction()          {}
func (OpenLink) isAction()      {}
func (Navigate) isAction()      {}
func (OpenMessaging) isAction() {}

// Option is a selectable choice attached to a node.
type Option struct {
	Label  string
	Action Action
}

// RawOption is the flat, file-friendly shape of an Option.
// Exactly one of Next or Action must be set.
type RawOption struct {
	Text    string `json:"text" yaml:"text" mapstructure:"text"`
	Next    string `json:"next,omitempty" yaml:"next,omitempty" mapstructure:"next"`
	Action  string `json:"action,omitempty" yaml:"action,omitempty" mapstructure:"action"`
	URL     string `json:"url,omitempty" yaml:"url,omitempty" mapstructure:"url"`
	Message string `json:"message,omitempty" yaml:"message,omitempty" mapstructure:"message"`
}

// Raw converts the option to its flat form.
func (o Option) Raw() RawOption {
	raw := RawOption{Text: o.Label}
	switch a := o.Action.(type) {
	case Next:
		raw.Next = a.NodeID
	case OpenLink:
		raw.Action, raw.URL = KindLink, a.URL
	case Navigate:
		raw.Action, raw.URL = KindGoto, a.URL
	case OpenMessaging:
		raw.Action, raw.Message = KindMessaging, a.Text
	}
	return raw
}

// Option builds a typed Option, rejecting ambiguous or incomplete definitions.
func (r RawOption) Option() (Option, error) {
	if r.Text == "" {
		return Option{}, fmt.Errorf("option missing text")
	}
	if r.Next != "" && r.Action != "" {
		return Option{}, fmt.Errorf("option %q sets both next and action", r.Text)
	}

	opt := Option{Label: r.Text}
	switch r.Action {
	case "", KindNext:
		if r.Next == "" {
			return Option{}, fmt.Errorf("option %q has neither next nor action", r.Text)
		}
		opt.Action = Next{NodeID: r.Next}
	case KindLink:
		if r.URL == "" {
			return Option{}, fmt.Errorf("option %q: link action requires url", r.Text)
		}
		opt.Action = OpenLink{URL: r.URL}
	case KindGoto:
		if r.URL == "" {
			return Option{}, fmt.Errorf("option %q: goto action requires url", r.Text)
		}
		opt.Action = Navigate{URL: r.URL}
	case KindMessaging:
		if r.Message == "" {
			return Option{}, fmt.Errorf("option %q: whatsapp action requires message", r.Text)
		}
		opt.Action = OpenMessaging{Text: r.Message}
	default:
		return Option{}, fmt.Errorf("option %q: unknown action %q", r.Text, r.Action)
	}
	return opt, nil
}

func (o Option) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.Raw())
}

func (o *Option) UnmarshalJSON(data []byte) error {
	var raw RawOption
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	opt, err := raw.Option()
	if err != nil {
		return err
	}
	*o = opt
	return nil
}
