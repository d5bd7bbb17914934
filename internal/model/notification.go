package model

// Severity ranks a Notice for display.
type Severity int

const (
	SeverityInfo Severity = iota
	SeveritySuccess
	SeverityWarning
	SeverityError
)

// String returns the lower-case severity name.
func (s Severity) String() string {
	switch s {
	case SeveritySuccess:
		return "success"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "info"
	}
}

// Notice is a short, non-blocking message surfaced to the user after a
// board operation completes or fails.
type Notice struct {
	Severity Severity `json:"severity"`

	// Title is a one-word heading such as "Saved" or "Error".
	Title string `json:"title"`

	// Message is the human-readable body.
	Message string `json:"message"`
}
