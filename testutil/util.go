// Package testutil holds fixtures shared by the package tests.
package testutil

import (
	"context"
	"io"
	"log"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/kipimo/core"
	"github.com/trezcool/kipimo/core/assessment"
	"github.com/trezcool/kipimo/core/outcome"
	"github.com/trezcool/kipimo/core/profile"
	logsvc "github.com/trezcool/kipimo/services/logger"
)

// NewLogger returns a logger that neither prints nor reports.
func NewLogger() core.Logger {
	l := logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), core.NewTestConfig())
	l.Enable(false)
	return l
}

func CreateProfile(t *testing.T, repo profile.Repository, name, email, role string) profile.Profile {
	t.Helper()
	p, err := repo.CreateProfile(context.Background(), profile.Profile{
		ID:        uuid.NewString(),
		FullName:  name,
		Email:     email,
		Role:      role,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateProfile() failed: %v", err)
	}
	return p
}

func CreateSubject(t *testing.T, repo outcome.Repository, teacherID, name string) outcome.Subject {
	t.Helper()
	s, err := repo.CreateSubject(context.Background(), outcome.Subject{
		ID:        uuid.NewString(),
		TeacherID: teacherID,
		Name:      name,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateSubject() failed: %v", err)
	}
	return s
}

func CreateOutcome(t *testing.T, repo outcome.Repository, subjectID, desc string) outcome.Outcome {
	t.Helper()
	o, err := repo.CreateOutcome(context.Background(), outcome.Outcome{
		ID:                uuid.NewString(),
		SubjectID:         subjectID,
		Description:       desc,
		TargetProficiency: outcome.DefaultTargetProficiency,
		CreatedAt:         time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateOutcome() failed: %v", err)
	}
	return o
}

// Q builds a short-answer question. Mappings alternate outcome ID and contribution: Q("q1", "4", 4, "o1", 3.0, "o2", 1.0).
func Q(id, answer string, maxMarks float64, mappings ...interface{}) assessment.Question {
	q := assessment.Question{
		ID:            id,
		Text:          "question " + id,
		Type:          assessment.TypeShortAnswer,
		CorrectAnswer: answer,
		MaxMarks:      maxMarks,
	}
	for i := 0; i+1 < len(mappings); i += 2 {
		q.Mappings = append(q.Mappings, assessment.Mapping{
			QuestionID:   id,
			OutcomeID:    mappings[i].(string),
			Contribution: mappings[i+1].(float64),
		})
	}
	return q
}

// CreateAssessment stores a published assessment with `questions` as is, bypassing authoring checks.
func CreateAssessment(
	t *testing.T,
	repo assessment.Repository,
	subject outcome.Subject,
	title string,
	duration *int,
	questions ...assessment.Question,
) assessment.Assessment {
	t.Helper()
	a := assessment.Assessment{
		ID:              uuid.NewString(),
		SubjectID:       subject.ID,
		TeacherID:       subject.TeacherID,
		Title:           title,
		IsPublished:     true,
		DurationMinutes: duration,
		CreatedAt:       time.Now().UTC(),
	}
	for i, q := range questions {
		q.AssessmentID = a.ID
		q.Position = i + 1
		a.TotalMarks += q.MaxMarks
		a.Questions = append(a.Questions, q)
	}
	a, err := repo.CreateAssessment(context.Background(), a)
	if err != nil {
		t.Fatalf("CreateAssessment() failed: %v", err)
	}
	return a
}

func IntPtr(i int) *int { return &i }
