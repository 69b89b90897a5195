package services

import (
	"bytes"
	"encoding/csv"
	"strconv"
	"time"
)

// ExportEditionCSV renders a frozen edition as a long-format CSV, one row per
// resolvable answer. Questions and members resolve against the loop's current
// sets; answers whose prompt or author has since been removed are skipped,
// the same tolerance aggregation applies.
func ExportEditionCSV(loop *Loop, edition *Edition) ([]byte, error) {
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	_ = w.Write([]string{"issue_number", "publish_date", "question", "member", "answer"})

	issue := strconv.Itoa(edition.IssueNumber)
	published := edition.PublishDate.Format(time.RFC3339)
	for _, group := range GroupByQuestion(loop.Questions, edition.Responses, loop.Members) {
		for _, entry := range group.Entries {
			rec := []string{issue, published, group.QuestionText, entry.Member.Name, entry.Answer}
			if err := w.Write(rec); err != nil {
				return nil, err
			}
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}
