package models

import (
	"strings"
	"time"
)

// Status is the canonical lifecycle state of a support thread.
type Status string

const (
	StatusOpen    Status = "open"
	StatusPending Status = "pending"
	StatusSolved  Status = "solved"
)

// ParseStatus normalizes a source-system status into the canonical enum.
// Plain uses done/snoozed/waiting; Zendesk statuses pass through when they
// already match. Anything unrecognized is treated as open.
func ParseStatus(s string) Status {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "solved", "done", "closed":
		return StatusSolved
	case "pending", "snoozed", "waiting", "hold":
		return StatusPending
	default:
		return StatusOpen
	}
}

// Priority is the canonical priority enum shared by threads and analyses.
type Priority string

const (
	PriorityUrgent Priority = "urgent"
	PriorityHigh   Priority = "high"
	PriorityNormal Priority = "normal"
	PriorityLow    Priority = "low"
)

// ParsePriority maps an upstream priority string onto the enum. AI backends
// sometimes answer "Medium"; unknown or empty values fall back to normal,
// never to an error.
func ParsePriority(s string) Priority {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "urgent":
		return PriorityUrgent
	case "high":
		return PriorityHigh
	case "low":
		return PriorityLow
	default:
		return PriorityNormal
	}
}

// ParseNumericPriority maps Plain's 0..3 priority scale onto the enum.
func ParseNumericPriority(n *int) Priority {
	if n == nil {
		return PriorityNormal
	}
	switch *n {
	case 0:
		return PriorityUrgent
	case 1:
		return PriorityHigh
	case 3:
		return PriorityLow
	default:
		return PriorityNormal
	}
}

// Customer identifies the requester of a thread.
type Customer struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Author identifies the writer of a single comment.
type Author struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	IsAgent bool   `json:"is_agent"`
}

// Comment is one entry of a thread's conversation history, in the order
// the source system returned it. Public distinguishes customer-visible
// replies from internal notes.
type Comment struct {
	ID        string    `json:"id"`
	Author    Author    `json:"author"`
	Body      string    `json:"body"`
	Public    bool      `json:"public"`
	CreatedAt time.Time `json:"created_at"`
}

// Thread is the canonical support conversation fetched from a source
// system. It is built once by a source connector and not mutated after.
type Thread struct {
	ID           string    `json:"id"`
	Subject      string    `json:"subject"`
	Description  string    `json:"description"`
	Status       Status    `json:"status"`
	Priority     Priority  `json:"priority"`
	Organization string    `json:"organization,omitempty"`
	Customer     Customer  `json:"customer"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Comments     []Comment `json:"comments"`
}

// Source is a reference cited by a search-backed analysis.
type Source struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Analysis is the structured AI output for a thread.
type Analysis struct {
	Title               string   `json:"title"`
	Description         string   `json:"description"`
	Priority            Priority `json:"priority"`
	EstimatedComplexity int      `json:"estimated_complexity"`
	Components          []string `json:"components"`
	OriginalSubject     string   `json:"original_subject"`
	Thread              *Thread  `json:"-"`

	// Present only for search-backed analysis.
	Sources            []Source `json:"sources,omitempty"`
	SuggestedFollowups []string `json:"suggested_followups,omitempty"`
}

// Issue is the tracker-side result of a transfer.
type Issue struct {
	ID         string `json:"id"`
	Identifier string `json:"identifier"`
	Title      string `json:"title"`
	URL        string `json:"url"`
}
