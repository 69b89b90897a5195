package services

import "time"

// DefaultLoops is the built-in collection used on first start and whenever
// the persisted collection cannot be read back.
func DefaultLoops() []Loop {
	now := time.Now().UTC()
	next := now.AddDate(0, 0, 7)
	return []Loop{
		{
			ID:          "l1",
			Name:        "The Sunday Social",
			Description: "Weekly catchup for our inner circle of friends.",
			Category:    "friends",
			Frequency:   FrequencyWeekly,
			Members: []Member{
				{ID: "1", Name: "Alex Rivera", Email: "alex@example.com", Avatar: "https://i.pravatar.cc/150?u=alex"},
				{ID: "2", Name: "Jordan Smith", Email: "jordan@example.com", Avatar: "https://i.pravatar.cc/150?u=jordan"},
				{ID: "3", Name: "Sam Taylor", Email: "sam@example.com", Avatar: "https://i.pravatar.cc/150?u=sam"},
			},
			Questions: []Question{
				{ID: "q1", Text: "What was the highlight of your week?"},
				{ID: "q2", Text: "What are you currently reading or watching?"},
			},
			Responses: []Response{
				{ID: "r1", MemberID: "1", QuestionID: "q1", Answer: "I finally finished that 10k run!"},
				{ID: "r2", MemberID: "2", QuestionID: "q1", Answer: "Found a hidden gem of a coffee shop in downtown."},
				{ID: "r3", MemberID: "3", QuestionID: "q2", Answer: "Started watching \"The Bear\". It is intense but great."},
			},
			Editions:      []Edition{},
			CollationMode: CollationVerbatim,
			Draft: &Draft{
				GeneratedAt: now,
				HeaderImage: "https://images.unsplash.com/photo-1517048676732-d65bc937f952?auto=format&fit=crop&q=80&w=1200",
				IntroText: "Welcome to our very first edition of The Sunday Social. It's been a week of small victories " +
					"and new discoveries. From finishing long-distance runs to finding the perfect shot of espresso, " +
					"we're celebrating the little things that make life grand. Grab a coffee and settle in—here is " +
					"what our circle has been up to.",
			},
			NextSendDate: &next,
		},
	}
}
