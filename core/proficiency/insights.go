package proficiency

import (
	"math"
	"sort"
	"time"
)

// Content types
const (
	ContentChallenge     = "challenge"
	ContentReinforcement = "reinforcement"
	ContentFoundational  = "foundational"
)

// Badges
const (
	BadgeGold   = "gold"
	BadgeSilver = "silver"
	BadgeBronze = "bronze"
)

type (
	ContentDetails struct {
		Label         string   `json:"label"`
		Description   string   `json:"description"`
		EstimatedTime string   `json:"estimated_time"`
		Activities    []string `json:"activities"`
	}

	Recommendation struct {
		OutcomeID   string  `json:"outcome_id"`
		OutcomeName string  `json:"outcome_name"`
		SubjectName string  `json:"subject_name"`
		Percentage  float64 `json:"percentage"`
		Level       string  `json:"level"`
		ContentType string  `json:"content_type"`
		ContentDetails
		Priority int `json:"priority"`
	}

	Badge struct {
		OutcomeID   string    `json:"outcome_id"`
		OutcomeName string    `json:"outcome_name"`
		Type        string    `json:"type"`
		AchievedAt  time.Time `json:"achieved_at"`
	}

	Stats struct {
		Mastery       int `json:"mastery"`
		Satisfactory  int `json:"satisfactory"`
		Developmental int `json:"developmental"`
		AverageScore  int `json:"average_score"`
	}

	Insights struct {
		Recommendations []Recommendation `json:"recommendations"`
		Badges          []Badge          `json:"badges"`
		Stats           Stats            `json:"stats"`
	}

	// Label names an outcome and its subject for display.
	Label struct {
		Outcome string
		Subject string
	}
)

var contentDetails = map[string]ContentDetails{
	ContentChallenge: {
		Label:         "Challenge Mode",
		Description:   "Push your limits with advanced content",
		EstimatedTime: "20-30 min",
		Activities:    []string{"Advanced worksheets", "Critical thinking tasks", "Peer-teaching exercises", "Complex problem solving"},
	},
	ContentReinforcement: {
		Label:         "Reinforcement",
		Description:   "Strengthen your understanding",
		EstimatedTime: "15-20 min",
		Activities:    []string{"Standard practice tests", "Mid-level exercises", "Review quizzes", "Application problems"},
	},
	ContentFoundational: {
		Label:         "Back to Basics",
		Description:   "Build a strong foundation",
		EstimatedTime: "25-35 min",
		Activities:    []string{"Video tutorials", "Step-by-step worksheets", "Flashcard practice", "Guided examples"},
	},
}

var contentPriorities = map[string]int{
	ContentFoundational:  3,
	ContentReinforcement: 2,
	ContentChallenge:     1,
}

// ContentTypeFor picks the kind of remediation content suited to a mastery percentage.
func ContentTypeFor(percentage float64) string {
	switch Classify(percentage) {
	case LevelMastery:
		return ContentChallenge
	case LevelSatisfactory:
		return ContentReinforcement
	default:
		return ContentFoundational
	}
}

// BadgeFor returns the badge earned at `percentage`, or "" below mastery.
func BadgeFor(percentage float64) string {
	switch {
	case percentage >= 95:
		return BadgeGold
	case percentage >= 90:
		return BadgeSilver
	case percentage >= MasteryThreshold:
		return BadgeBronze
	default:
		return ""
	}
}

// BuildInsights derives recommendations, badges and stats from a student's records.
// Labels are keyed by outcome ID; missing labels fall back to placeholders.
func BuildInsights(records []Record, labels map[string]Label) Insights {
	ins := Insights{
		Recommendations: make([]Recommendation, 0, len(records)),
		Badges:          make([]Badge, 0),
	}
	if len(records) == 0 {
		return ins
	}

	var total float64
	for _, rec := range records {
		lbl, ok := labels[rec.OutcomeID]
		if !ok {
			lbl = Label{Outcome: "Unknown outcome", Subject: "Unknown subject"}
		}

		ct := ContentTypeFor(rec.Percentage)
		ins.Recommendations = append(ins.Recommendations, Recommendation{
			OutcomeID:      rec.OutcomeID,
			OutcomeName:    lbl.Outcome,
			SubjectName:    lbl.Subject,
			Percentage:     rec.Percentage,
			Level:          Classify(rec.Percentage),
			ContentType:    ct,
			ContentDetails: contentDetails[ct],
			Priority:       contentPriorities[ct],
		})

		if b := BadgeFor(rec.Percentage); b != "" {
			ins.Badges = append(ins.Badges, Badge{
				OutcomeID:   rec.OutcomeID,
				OutcomeName: lbl.Outcome,
				Type:        b,
				AchievedAt:  rec.UpdatedAt,
			})
		}

		switch Classify(rec.Percentage) {
		case LevelMastery:
			ins.Stats.Mastery++
		case LevelSatisfactory:
			ins.Stats.Satisfactory++
		default:
			ins.Stats.Developmental++
		}
		total += rec.Percentage
	}

	sort.SliceStable(ins.Recommendations, func(i, j int) bool {
		return ins.Recommendations[i].Priority > ins.Recommendations[j].Priority
	})
	ins.Stats.AverageScore = int(math.Round(total / float64(len(records))))
	return ins
}
