package services

import (
	"reflect"
	"testing"
)

func sampleMembers() []Member {
	return []Member{
		{ID: "m1", Name: "Alex", Email: "alex@example.com"},
		{ID: "m2", Name: "Jordan", Email: "jordan@example.com"},
	}
}

func TestGroupByQuestionOrderAndEntries(t *testing.T) {
	questions := []Question{
		{ID: "q1", Text: "Highlight of the week?"},
		{ID: "q2", Text: "Reading or watching?"},
	}
	responses := []Response{
		{ID: "r1", MemberID: "m1", QuestionID: "q1", Answer: "Ran a 10k"},
		{ID: "r2", MemberID: "m2", QuestionID: "q1", Answer: "New coffee shop"},
	}

	groups := GroupByQuestion(questions, responses, sampleMembers())
	if len(groups) != 1 {
		t.Fatalf("groups = %d, want 1 (q2 has no responses)", len(groups))
	}
	g := groups[0]
	if g.QuestionText != "Highlight of the week?" {
		t.Fatalf("question text = %q", g.QuestionText)
	}
	if len(g.Entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(g.Entries))
	}
	if g.Entries[0].Member.Name != "Alex" || g.Entries[1].Member.Name != "Jordan" {
		t.Fatalf("entries out of submission order: %v", g.Entries)
	}
}

func TestGroupByQuestionDeterministic(t *testing.T) {
	questions := []Question{
		{ID: "q2", Text: "Second"},
		{ID: "q1", Text: "First"},
	}
	responses := []Response{
		{ID: "r1", MemberID: "m1", QuestionID: "q1", Answer: "a"},
		{ID: "r2", MemberID: "m2", QuestionID: "q2", Answer: "b"},
	}
	members := sampleMembers()

	first := GroupByQuestion(questions, responses, members)
	second := GroupByQuestion(questions, responses, members)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("identical inputs produced different output:\n%v\n%v", first, second)
	}
	// Output follows stored question order, not response order.
	if first[0].QuestionID != "q2" || first[1].QuestionID != "q1" {
		t.Fatalf("question order not preserved: %v", first)
	}
}

func TestGroupByQuestionDropsDanglingReferences(t *testing.T) {
	questions := []Question{{ID: "q1", Text: "Q"}}
	responses := []Response{
		{ID: "r1", MemberID: "m1", QuestionID: "q1", Answer: "kept"},
		{ID: "r2", MemberID: "gone", QuestionID: "q1", Answer: "dropped member"},
		{ID: "r3", MemberID: "m1", QuestionID: "deleted-q", Answer: "dropped question"},
	}

	groups := GroupByQuestion(questions, responses, sampleMembers())
	if len(groups) != 1 || len(groups[0].Entries) != 1 {
		t.Fatalf("dangling references not filtered: %v", groups)
	}
	if groups[0].Entries[0].Answer != "kept" {
		t.Fatalf("wrong entry survived: %v", groups[0].Entries)
	}
}

func TestGroupByQuestionAllDanglingYieldsEmpty(t *testing.T) {
	questions := []Question{{ID: "q1", Text: "Q"}}
	responses := []Response{{ID: "r1", MemberID: "gone", QuestionID: "q1", Answer: "x"}}

	groups := GroupByQuestion(questions, responses, nil)
	if len(groups) != 0 {
		t.Fatalf("expected no groups, got %v", groups)
	}
}
