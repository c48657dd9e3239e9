package domain

import "time"

func seedDay(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

func seedPtr(t time.Time) *time.Time { return &t }

// SeedReviews is the approved collection shown before anything was ever
// approved on this store.
func SeedReviews() []Review {
	return []Review{
		{
			ID:           "review_default_1",
			FullName:     "Mary Asante",
			Email:        "mary.asante@example.com",
			Relationship: "Parent of 4th Grader",
			Text:         "Salve Regina School has exceeded our expectations. The teachers are caring and dedicated, and my daughter loves going to school every day. The facilities are excellent and the environment is very nurturing.",
			Timestamp:    seedDay(2024, time.December, 15),
			Status:       StatusApproved,
			ApprovedAt:   seedPtr(seedDay(2024, time.December, 16)),
		},
		{
			ID:           "review_default_2",
			FullName:     "Dr. Kwame Boateng",
			Email:        "k.boateng@example.com",
			Relationship: "Parent of 7th Grader",
			Text:         "The academic standards at SRS are impressive. My son has shown remarkable improvement in his studies and confidence. The STEM program is particularly outstanding.",
			Timestamp:    seedDay(2024, time.December, 20),
			Status:       StatusApproved,
			ApprovedAt:   seedPtr(seedDay(2024, time.December, 21)),
		},
		{
			ID:           "review_default_3",
			FullName:     "Grace Mensah",
			Email:        "grace.mensah@example.com",
			Relationship: "Parent of 2nd Grader",
			Text:         "The school facilities are excellent and the staff truly cares about each child's development. The communication with parents is outstanding. Highly recommended!",
			Timestamp:    seedDay(2024, time.December, 25),
			Status:       StatusApproved,
			ApprovedAt:   seedPtr(seedDay(2024, time.December, 26)),
		},
	}
}
