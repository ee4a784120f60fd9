package domain

// ActionRequest represents a side-effect that the engine asks the host to perform.
type ActionRequest struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// Standard Action Types
const (
	// ActionOpenWindow asks the host to open a URL in a new browsing context.
	// Payload: string (the URL)
	ActionOpenWindow = "OPEN_WINDOW"

	// ActionNavigate asks the host to replace the current page with a URL.
	// Payload: string (the URL)
	ActionNavigate = "NAVIGATE"
)

// URL returns the payload as a URL string, or "" when it is not one.
func (a ActionRequest) URL() string {
	s, _ := a.Payload.(string)
	return s
}
