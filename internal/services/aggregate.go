package services

// GroupEntry is one member's answer inside a question group.
type GroupEntry struct {
	Member Member `json:"member"`
	Answer string `json:"answer"`
}

// QuestionGroup collects every resolvable answer to a single question.
type QuestionGroup struct {
	QuestionID   string       `json:"question_id"`
	QuestionText string       `json:"question_text"`
	Entries      []GroupEntry `json:"entries"`
}

// GroupByQuestion groups responses under their questions, in stored question
// order, resolving member ids to live member records. Responses whose member
// or question no longer exists are dropped, and questions with no resolvable
// responses are omitted. The function is pure: it serves both the live
// working set and an archived edition's frozen responses.
func GroupByQuestion(questions []Question, responses []Response, members []Member) []QuestionGroup {
	byMember := make(map[string]Member, len(members))
	for _, m := range members {
		byMember[m.ID] = m
	}

	out := make([]QuestionGroup, 0, len(questions))
	for _, q := range questions {
		group := QuestionGroup{QuestionID: q.ID, QuestionText: q.Text}
		for _, r := range responses {
			if r.QuestionID != q.ID {
				continue
			}
			m, ok := byMember[r.MemberID]
			if !ok {
				continue
			}
			group.Entries = append(group.Entries, GroupEntry{Member: m, Answer: r.Answer})
		}
		if len(group.Entries) > 0 {
			out = append(out, group)
		}
	}
	return out
}
