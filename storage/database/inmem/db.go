// Package inmemdb implements the repositories in memory, for tests and local runs.
package inmemdb

import (
	"sync"

	"github.com/trezcool/kipimo/core/assessment"
	"github.com/trezcool/kipimo/core/attempt"
	"github.com/trezcool/kipimo/core/outcome"
	"github.com/trezcool/kipimo/core/proficiency"
	"github.com/trezcool/kipimo/core/profile"
	"github.com/trezcool/kipimo/core/report"
)

// DB holds every table behind a single lock.
type DB struct {
	mutex sync.RWMutex

	profiles    map[string]profile.Profile
	subjects    map[string]outcome.Subject
	outcomes    map[string]outcome.Outcome
	assessments map[string]assessment.Assessment
	questions   map[string][]assessment.Question // by assessment ID
	sessions    map[string]attempt.Session
	attempts    map[string]attempt.Attempt
	records     map[proficiency.Key]proficiency.Record
	updates     map[string]proficiency.PendingUpdate
	reports     map[string]report.Report
}

func Open() *DB {
	return &DB{
		profiles:    make(map[string]profile.Profile),
		subjects:    make(map[string]outcome.Subject),
		outcomes:    make(map[string]outcome.Outcome),
		assessments: make(map[string]assessment.Assessment),
		questions:   make(map[string][]assessment.Question),
		sessions:    make(map[string]attempt.Session),
		attempts:    make(map[string]attempt.Attempt),
		records:     make(map[proficiency.Key]proficiency.Record),
		updates:     make(map[string]proficiency.PendingUpdate),
		reports:     make(map[string]report.Report),
	}
}

func contains(ids []string, id string) bool {
	for _, i := range ids {
		if i == id {
			return true
		}
	}
	return false
}
