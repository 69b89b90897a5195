package services

import (
	"errors"
	"time"
)

// Frequency is a loop's publication cadence.
type Frequency string

const (
	FrequencyWeekly   Frequency = "weekly"
	FrequencyBiweekly Frequency = "biweekly"
	FrequencyMonthly  Frequency = "monthly"
)

// Next returns the send date following from, given the cadence.
// Monthly advances by one calendar month, not a fixed day count.
func (f Frequency) Next(from time.Time) time.Time {
	switch f {
	case FrequencyBiweekly:
		return from.AddDate(0, 0, 14)
	case FrequencyMonthly:
		return from.AddDate(0, 1, 0)
	default:
		return from.AddDate(0, 0, 7)
	}
}

// Valid reports whether f is a known cadence.
func (f Frequency) Valid() bool {
	switch f {
	case FrequencyWeekly, FrequencyBiweekly, FrequencyMonthly:
		return true
	}
	return false
}

// CollationMode selects how a cycle's responses are rendered: grouped
// verbatim Q&A or an AI-synthesized narrative.
type CollationMode string

const (
	CollationVerbatim CollationMode = "verbatim"
	CollationAI       CollationMode = "ai"
)

func (m CollationMode) Valid() bool {
	switch m {
	case CollationVerbatim, CollationAI:
		return true
	}
	return false
}

type Member struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Avatar string `json:"avatar,omitempty"`
}

type Question struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Response references its member and question by id only. A removed member
// or question leaves the response dangling; aggregation filters it out.
type Response struct {
	ID         string `json:"id"`
	MemberID   string `json:"member_id"`
	QuestionID string `json:"question_id"`
	Answer     string `json:"answer"`
}

// Draft is the generated working content for the next edition. A loop with a
// nil Draft has nothing curated yet; a non-nil Draft is publishable.
type Draft struct {
	GeneratedAt   time.Time `json:"generated_at"`
	HeaderImage   string    `json:"header_image,omitempty"`
	IntroText     string    `json:"intro_text,omitempty"`
	NarrativeText string    `json:"narrative_text,omitempty"`
}

// Edition is an immutable archived snapshot of a published draft.
type Edition struct {
	ID            string        `json:"id"`
	IssueNumber   int           `json:"issue_number"`
	PublishDate   time.Time     `json:"publish_date"`
	HeaderImage   string        `json:"header_image,omitempty"`
	IntroText     string        `json:"intro_text,omitempty"`
	NarrativeText string        `json:"narrative_text,omitempty"`
	Responses     []Response    `json:"responses"`
	CollationMode CollationMode `json:"collation_mode"`
}

// Loop is a private group with members, prompts, a mutable working set
// (Responses + Draft) and an append-only archive (Editions, newest first).
type Loop struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	Description   string        `json:"description,omitempty"`
	Category      string        `json:"category,omitempty"`
	Frequency     Frequency     `json:"frequency"`
	Members       []Member      `json:"members"`
	Questions     []Question    `json:"questions"`
	Responses     []Response    `json:"responses"`
	Editions      []Edition     `json:"editions"`
	CollationMode CollationMode `json:"collation_mode"`
	Draft         *Draft        `json:"draft,omitempty"`
	NextSendDate  *time.Time    `json:"next_send_date,omitempty"`
}

// Clone returns a deep copy so callers can never reach back into the
// gateway's collection through a shared slice. Empty slices stay non-nil so
// migrated loops serialize their collections as [] rather than null.
func (l Loop) Clone() Loop {
	out := l
	out.Members = make([]Member, len(l.Members))
	copy(out.Members, l.Members)
	out.Questions = make([]Question, len(l.Questions))
	copy(out.Questions, l.Questions)
	out.Responses = make([]Response, len(l.Responses))
	copy(out.Responses, l.Responses)
	out.Editions = make([]Edition, len(l.Editions))
	for i, e := range l.Editions {
		responses := make([]Response, len(e.Responses))
		copy(responses, e.Responses)
		e.Responses = responses
		out.Editions[i] = e
	}
	if l.Draft != nil {
		d := *l.Draft
		out.Draft = &d
	}
	if l.NextSendDate != nil {
		t := *l.NextSendDate
		out.NextSendDate = &t
	}
	return out
}

type ErrorCode string

const (
	ErrorInvalid    ErrorCode = "invalid"
	ErrorNotFound   ErrorCode = "not_found"
	ErrorConflict   ErrorCode = "conflict"
	ErrorBadGateway ErrorCode = "bad_gateway"
)

type ServiceError struct {
	Code    ErrorCode
	Message string
}

func (e *ServiceError) Error() string { return e.Message }

func NewInvalidError(msg string) error  { return &ServiceError{Code: ErrorInvalid, Message: msg} }
func NewNotFoundError(msg string) error { return &ServiceError{Code: ErrorNotFound, Message: msg} }
func NewConflictError(msg string) error { return &ServiceError{Code: ErrorConflict, Message: msg} }

func NewBadGatewayError(msg string) error {
	return &ServiceError{Code: ErrorBadGateway, Message: msg}
}

func AsServiceError(err error) (*ServiceError, bool) {
	var se *ServiceError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}
