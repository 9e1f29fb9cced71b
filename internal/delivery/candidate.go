// Package delivery tracks which documents each pro subscriber should
// receive: picking candidates via semantic search, summarizing them,
// and recording what has gone out.
package delivery

import "time"

// State is the lifecycle stage of one delivery candidate.
type State string

const (
	// StateCandidate means picked but not yet summarized.
	StateCandidate State = "candidate"
	// StateSummarized means ready to send.
	StateSummarized State = "summarized"
	// StateSent means delivered.
	StateSent State = "sent"
)

// Candidate is one (subscriber, document, period) delivery row.
type Candidate struct {
	CandidateID       int64
	ProSubscriptionID int64
	DocumentID        int64
	PeriodDate        time.Time
	Summary           *string
	SentAt            *time.Time
}

// State derives the lifecycle stage from the row's nullable columns.
// Callers go through this accessor instead of checking Summary or
// SentAt themselves.
func (c Candidate) State() State {
	switch {
	case c.SentAt != nil:
		return StateSent
	case c.Summary != nil:
		return StateSummarized
	default:
		return StateCandidate
	}
}

// SummaryTask is one candidate waiting for its personalized summary,
// joined with the fields the summarizer needs.
type SummaryTask struct {
	CandidateID int64
	DocumentID  int64
	Title       string
	HTMLURL     *string
	CompanyType string
	Keywords    []string
}

// PendingItem is one summarized, unsent candidate ready for a pro
// digest.
type PendingItem struct {
	CandidateID int64
	DocumentID  int64
	Title       string
	Summary     string
	DetailsURL  *string
	HTMLURL     *string
	PDFURL      *string
}
