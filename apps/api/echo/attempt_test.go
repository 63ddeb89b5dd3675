package echoapi_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/kipimo/core/assessment"
	"github.com/trezcool/kipimo/core/attempt"
	"github.com/trezcool/kipimo/core/outcome"
	"github.com/trezcool/kipimo/core/proficiency"
	"github.com/trezcool/kipimo/testutil"
)

type examFixture struct {
	subject outcome.Subject
	o1, o2  outcome.Outcome
	exam    assessment.Assessment
}

// createExam authors, through the API, a 6-mark exam: q1 (4 marks, split 3/1 over o1/o2) and q2 (2 marks on o2).
func createExam(t *testing.T, app *testApp) examFixture {
	var f examFixture
	f.subject = testutil.CreateSubject(t, app.outcomes, app.teacher.ID, "Biology")
	f.o1 = testutil.CreateOutcome(t, app.outcomes, f.subject.ID, "Explain photosynthesis")
	f.o2 = testutil.CreateOutcome(t, app.outcomes, f.subject.ID, "Label a cell")

	body := fmt.Sprintf(`{
		"subject_id": %q,
		"title": "Cells",
		"questions": [
			{"text": "Green pigment?", "type": "short_answer", "correct_answer": "chlorophyll", "max_marks": 4,
			 "mappings": [{"outcome_id": %q, "contribution": 3}, {"outcome_id": %q, "contribution": 1}]},
			{"text": "Control center?", "type": "multiple_choice", "options": ["nucleus", "ribosome"],
			 "correct_answer": "nucleus", "max_marks": 2, "mappings": [{"outcome_id": %q, "contribution": 2}]}
		]
	}`, f.subject.ID, f.o1.ID, f.o2.ID, f.o2.ID)

	rec := app.do(http.MethodPost, "/v1/assessments", app.teacherToken, []byte(body))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	unmarshall(t, rec, &f.exam)
	require.Len(t, f.exam.Questions, 2)
	return f
}

func Test_assessmentApi_create(t *testing.T) {
	app := setup(t)
	f := createExam(t, app)

	assert.Equal(t, 6.0, f.exam.TotalMarks)
	assert.True(t, f.exam.IsPublished)
	assert.Equal(t, "chlorophyll", f.exam.Questions[0].CorrectAnswer)
	assert.Len(t, f.exam.Questions[0].Mappings, 2)

	badSum := fmt.Sprintf(`{"subject_id": %q, "title": "Bad", "questions": [
		{"text": "Q", "type": "short_answer", "correct_answer": "a", "max_marks": 4,
		 "mappings": [{"outcome_id": %q, "contribution": 3}]}
	]}`, f.subject.ID, f.o1.ID)
	foreignOutcome := fmt.Sprintf(`{"subject_id": %q, "title": "Bad", "questions": [
		{"text": "Q", "type": "short_answer", "correct_answer": "a", "max_marks": 1,
		 "mappings": [{"outcome_id": "elsewhere", "contribution": 1}]}
	]}`, f.subject.ID)
	badTrueFalse := fmt.Sprintf(`{"subject_id": %q, "title": "Bad", "questions": [
		{"text": "Q", "type": "true_false", "correct_answer": "maybe", "max_marks": 1}
	]}`, f.subject.ID)

	runHTTPTests(t, app, []httpTest{
		{
			name:     "students cannot author",
			method:   http.MethodPost,
			path:     "/v1/assessments",
			body:     []byte(badSum),
			token:    app.studentToken,
			wantCode: http.StatusForbidden,
		},
		{
			name:     "contributions must add up",
			method:   http.MethodPost,
			path:     "/v1/assessments",
			body:     []byte(badSum),
			token:    app.teacherToken,
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"questions[0].mappings":"mark contributions (3) must add up to max marks (4)"}`),
		},
		{
			name:     "outcomes must belong to the subject",
			method:   http.MethodPost,
			path:     "/v1/assessments",
			body:     []byte(foreignOutcome),
			token:    app.teacherToken,
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"questions":"mapped outcomes must belong to the assessment's subject"}`),
		},
		{
			name:     "true_false answers",
			method:   http.MethodPost,
			path:     "/v1/assessments",
			body:     []byte(badTrueFalse),
			token:    app.teacherToken,
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"questions[0].correct_answer":"must be true or false"}`),
		},
		{
			name:     "unknown assessment",
			method:   http.MethodGet,
			path:     "/v1/assessments/nope",
			token:    app.studentToken,
			wantCode: http.StatusNotFound,
			wantData: marshallObj(t, httpErr{Error: assessment.ErrNotFound.Error()}),
		},
	})

	t.Run("students do not see answers", func(t *testing.T) {
		rec := app.do(http.MethodGet, "/v1/assessments/"+f.exam.ID, app.studentToken)
		require.Equal(t, http.StatusOK, rec.Code)
		var got assessment.Assessment
		unmarshall(t, rec, &got)
		require.Len(t, got.Questions, 2)
		for _, q := range got.Questions {
			assert.Empty(t, q.CorrectAnswer)
			assert.Empty(t, q.Mappings)
		}
	})
}

func Test_attemptApi_flow(t *testing.T) {
	app := setup(t)
	f := createExam(t, app)
	q1, q2 := f.exam.Questions[0].ID, f.exam.Questions[1].ID

	rec := app.do(http.MethodPost, "/v1/assessments/"+f.exam.ID+"/sessions", app.studentToken)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var sess attempt.Session
	unmarshall(t, rec, &sess)

	rec = app.do(http.MethodPut, "/v1/sessions/"+sess.ID+"/answers", app.studentToken,
		marshallObj(t, map[string]interface{}{"answers": map[string]string{q1: "Chlorophyll"}}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	runHTTPTests(t, app, []httpTest{
		{
			name:     "teachers do not take tests",
			method:   http.MethodPost,
			path:     "/v1/assessments/" + f.exam.ID + "/sessions",
			token:    app.teacherToken,
			wantCode: http.StatusForbidden,
		},
		{
			name:     "another student's session",
			method:   http.MethodGet,
			path:     "/v1/sessions/" + sess.ID,
			token:    app.otherToken,
			wantCode: http.StatusNotFound,
			wantData: marshallObj(t, httpErr{Error: attempt.ErrSessionNotFound.Error()}),
		},
		{
			name:     "incomplete manual submission",
			method:   http.MethodPost,
			path:     "/v1/sessions/" + sess.ID + "/submit",
			body:     []byte(`{}`),
			token:    app.studentToken,
			wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, map[string]interface{}{"error": "incomplete submission", "missing": []string{q2}}),
		},
		{
			name:     "unknown reason",
			method:   http.MethodPost,
			path:     "/v1/sessions/" + sess.ID + "/submit",
			body:     []byte(`{"reason":"bored"}`),
			token:    app.studentToken,
			wantCode: http.StatusBadRequest,
		},
	})

	rec = app.do(http.MethodPost, "/v1/sessions/"+sess.ID+"/submit", app.studentToken,
		marshallObj(t, map[string]interface{}{"answers": map[string]string{q2: "ribosome"}}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var sub attempt.Submission
	unmarshall(t, rec, &sub)
	assert.Equal(t, 4.0, sub.Attempt.RawScore)
	assert.Equal(t, 6.0, sub.Attempt.TotalPossible)
	assert.Equal(t, attempt.StatusAggregated, sub.Attempt.Status)
	assert.Equal(t, 0, sub.Pending)
	assert.Len(t, sub.Records, 2)

	runHTTPTests(t, app, []httpTest{
		{
			name:     "submitting twice",
			method:   http.MethodPost,
			path:     "/v1/sessions/" + sess.ID + "/submit",
			body:     []byte(`{}`),
			token:    app.studentToken,
			wantCode: http.StatusConflict,
			wantData: marshallObj(t, httpErr{Error: attempt.ErrAlreadySubmitted.Error()}),
		},
		{
			name:     "saving after submission",
			method:   http.MethodPut,
			path:     "/v1/sessions/" + sess.ID + "/answers",
			body:     []byte(`{"answers":{}}`),
			token:    app.studentToken,
			wantCode: http.StatusConflict,
		},
		{
			name:     "own attempts",
			method:   http.MethodGet,
			path:     "/v1/attempts",
			token:    app.studentToken,
			wantCode: http.StatusOK,
			wantData: marshallObj(t, []attempt.Attempt{sub.Attempt}),
		},
		{
			name:     "students never see other attempts",
			method:   http.MethodGet,
			path:     "/v1/attempts?student_id=" + app.student.ID,
			token:    app.otherToken,
			wantCode: http.StatusOK,
			wantData: []byte(`[]`),
		},
		{
			name:     "teachers filter attempts",
			method:   http.MethodGet,
			path:     "/v1/attempts?assessment_id=" + f.exam.ID,
			token:    app.teacherToken,
			wantCode: http.StatusOK,
			wantData: marshallObj(t, []attempt.Attempt{sub.Attempt}),
		},
		{
			name:     "bad time filter",
			method:   http.MethodGet,
			path:     "/v1/attempts?from=yesterday",
			token:    app.teacherToken,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "another student's attempt",
			method:   http.MethodGet,
			path:     "/v1/attempts/" + sub.Attempt.ID,
			token:    app.otherToken,
			wantCode: http.StatusNotFound,
		},
		{
			name:     "another student's proficiency",
			method:   http.MethodGet,
			path:     "/v1/students/" + app.student.ID + "/proficiency",
			token:    app.otherToken,
			wantCode: http.StatusForbidden,
		},
	})

	t.Run("proficiency", func(t *testing.T) {
		rec := app.do(http.MethodGet, "/v1/students/"+app.student.ID+"/proficiency", app.teacherToken)
		require.Equal(t, http.StatusOK, rec.Code)
		var recs []proficiency.Record
		unmarshall(t, rec, &recs)
		require.Len(t, recs, 2)

		byOutcome := map[string]proficiency.Record{recs[0].OutcomeID: recs[0], recs[1].OutcomeID: recs[1]}
		assert.Equal(t, proficiency.LevelMastery, byOutcome[f.o1.ID].Level)
		assert.Equal(t, 3.0, byOutcome[f.o1.ID].MarksAttempted)
		assert.Equal(t, proficiency.LevelDevelopmental, byOutcome[f.o2.ID].Level) // 1/3
	})

	t.Run("insights", func(t *testing.T) {
		rec := app.do(http.MethodGet, "/v1/students/"+app.student.ID+"/insights", app.studentToken)
		require.Equal(t, http.StatusOK, rec.Code)
		var ins proficiency.Insights
		unmarshall(t, rec, &ins)
		assert.Len(t, ins.Recommendations, 2)
		if assert.Len(t, ins.Badges, 1) {
			assert.Equal(t, proficiency.BadgeGold, ins.Badges[0].Type)
			assert.Equal(t, "Explain photosynthesis", ins.Badges[0].OutcomeName)
		}
		assert.Equal(t, 1, ins.Stats.Mastery)
		assert.Equal(t, 1, ins.Stats.Developmental)
	})
}

func Test_assessmentApi_submitOneShot(t *testing.T) {
	app := setup(t)
	f := createExam(t, app)
	q1, q2 := f.exam.Questions[0].ID, f.exam.Questions[1].ID

	path := "/v1/assessments/" + f.exam.ID + "/attempts"
	rec := app.do(http.MethodPost, path, app.studentToken,
		marshallObj(t, map[string]interface{}{"answers": map[string]string{q1: "chlorophyll", q2: "nucleus"}}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var sub attempt.Submission
	unmarshall(t, rec, &sub)
	assert.Equal(t, 6.0, sub.Attempt.RawScore)
	assert.False(t, sub.Attempt.AutoSubmitted)

	// a second one-shot opens a fresh session
	rec = app.do(http.MethodPost, path, app.studentToken, []byte(`{"answers":{}}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
