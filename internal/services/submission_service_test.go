package services

import (
	"errors"
	"fmt"
	"testing"
)

type stubSubmissionStore struct {
	loop     *Loop
	appended []Response
}

func (s *stubSubmissionStore) Get(id string) (*Loop, error) {
	if s.loop == nil || s.loop.ID != id {
		return nil, ErrLoopNotFound
	}
	l := s.loop.Clone()
	return &l, nil
}

func (s *stubSubmissionStore) AppendResponses(loopID string, responses []Response) error {
	s.appended = append(s.appended, responses...)
	return nil
}

func newTestSubmissionService(store *stubSubmissionStore) *SubmissionService {
	svc := NewSubmissionService(store)
	n := 0
	svc.idGenerator = func() string {
		n++
		return fmt.Sprintf("r-%d", n)
	}
	return svc
}

func submissionLoop() Loop {
	loop := baseLoop()
	loop.Questions = []Question{
		{ID: "q1", Text: "First?"},
		{ID: "q2", Text: "Second?"},
	}
	return loop
}

func TestSubmitRequiresMemberSelection(t *testing.T) {
	loop := submissionLoop()
	svc := newTestSubmissionService(&stubSubmissionStore{loop: &loop})

	_, err := svc.Submit(SubmitRequest{LoopID: "l1", MemberID: "  ", Answers: map[string]string{"q1": "x"}})
	if !errors.Is(err, ErrNoMemberSelected) {
		t.Fatalf("error = %v, want ErrNoMemberSelected", err)
	}
}

func TestSubmitRejectsMemberOutsideLoop(t *testing.T) {
	loop := submissionLoop()
	svc := newTestSubmissionService(&stubSubmissionStore{loop: &loop})

	_, err := svc.Submit(SubmitRequest{LoopID: "l1", MemberID: "stranger", Answers: map[string]string{"q1": "x"}})
	if se, ok := AsServiceError(err); !ok || se.Code != ErrorNotFound {
		t.Fatalf("error = %v, want not_found", err)
	}
}

func TestSubmitRejectsAllBlankAnswers(t *testing.T) {
	loop := submissionLoop()
	store := &stubSubmissionStore{loop: &loop}
	svc := newTestSubmissionService(store)

	_, err := svc.Submit(SubmitRequest{
		LoopID:   "l1",
		MemberID: "m1",
		Answers:  map[string]string{"q1": "   ", "q2": ""},
	})
	if !errors.Is(err, ErrEmptySubmission) {
		t.Fatalf("error = %v, want ErrEmptySubmission", err)
	}
	if len(store.appended) != 0 {
		t.Fatalf("blank submission reached the store")
	}
}

func TestSubmitSkipsBlanksAndKeepsQuestionOrder(t *testing.T) {
	loop := submissionLoop()
	store := &stubSubmissionStore{loop: &loop}
	svc := newTestSubmissionService(store)

	got, err := svc.Submit(SubmitRequest{
		LoopID:   "l1",
		MemberID: "m1",
		Answers:  map[string]string{"q2": "second answer", "q1": "  ", "ghost": "ignored"},
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("responses = %v", got)
	}
	r := got[0]
	if r.QuestionID != "q2" || r.MemberID != "m1" || r.Answer != "second answer" {
		t.Fatalf("response = %+v", r)
	}
	if r.ID != "r-1" {
		t.Fatalf("id = %q, want generated", r.ID)
	}
	if len(store.appended) != 1 {
		t.Fatalf("appended = %v", store.appended)
	}
}

func TestSubmitIsAdditiveForRepeatSubmissions(t *testing.T) {
	loop := submissionLoop()
	store := &stubSubmissionStore{loop: &loop}
	svc := newTestSubmissionService(store)

	req := SubmitRequest{LoopID: "l1", MemberID: "m1", Answers: map[string]string{"q1": "take one"}}
	if _, err := svc.Submit(req); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	req.Answers["q1"] = "take two"
	if _, err := svc.Submit(req); err != nil {
		t.Fatalf("second submit: %v", err)
	}
	if len(store.appended) != 2 {
		t.Fatalf("appended = %d, want both takes kept", len(store.appended))
	}
}
