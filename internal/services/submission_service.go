package services

import (
	"errors"
	"strings"
)

// SubmissionStore is the slice of the gateway the intake workflow needs.
type SubmissionStore interface {
	Get(id string) (*Loop, error)
	AppendResponses(loopID string, responses []Response) error
}

var (
	// ErrNoMemberSelected is returned when a submission names no member.
	ErrNoMemberSelected = errors.New("select a member before submitting")
	// ErrEmptySubmission is returned when every answer is blank.
	ErrEmptySubmission = errors.New("at least one answer is required")
)

// SubmitRequest carries one member's answers for the current cycle, keyed by
// question id. Blank answers are skipped, not stored.
type SubmitRequest struct {
	LoopID   string
	MemberID string
	Answers  map[string]string
}

// SubmissionService validates intake submissions before anything reaches the
// gateway; no partial response set is ever created.
type SubmissionService struct {
	store       SubmissionStore
	idGenerator func() string
}

func NewSubmissionService(store SubmissionStore) *SubmissionService {
	return &SubmissionService{store: store, idGenerator: shortID}
}

// Submit appends one response per answered question to the loop's working
// set. Duplicate submissions for the same (member, question) pair are
// additive history, not overwrites.
func (s *SubmissionService) Submit(req SubmitRequest) ([]Response, error) {
	if strings.TrimSpace(req.MemberID) == "" {
		return nil, ErrNoMemberSelected
	}
	loop, err := s.store.Get(req.LoopID)
	if err != nil {
		return nil, err
	}
	memberOK := false
	for _, m := range loop.Members {
		if m.ID == req.MemberID {
			memberOK = true
			break
		}
	}
	if !memberOK {
		return nil, NewNotFoundError("member not in loop")
	}

	// Iterate questions in stored order so responses land in prompt order.
	responses := make([]Response, 0, len(req.Answers))
	for _, q := range loop.Questions {
		answer, ok := req.Answers[q.ID]
		if !ok || strings.TrimSpace(answer) == "" {
			continue
		}
		responses = append(responses, Response{
			ID:         s.idGenerator(),
			MemberID:   req.MemberID,
			QuestionID: q.ID,
			Answer:     answer,
		})
	}
	if len(responses) == 0 {
		return nil, ErrEmptySubmission
	}
	if err := s.store.AppendResponses(req.LoopID, responses); err != nil {
		return nil, err
	}
	return responses, nil
}
