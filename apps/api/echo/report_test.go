package echoapi_test

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/trezcool/kipimo/apps/api/echo"
	"github.com/trezcool/kipimo/core/profile"
	"github.com/trezcool/kipimo/core/report"
)

func Test_reportApi(t *testing.T) {
	app := setup(t)
	f := createExam(t, app)

	rec := app.do(http.MethodPost, "/v1/assessments/"+f.exam.ID+"/attempts", app.studentToken,
		marshallObj(t, AnswersRequest{Answers: map[string]string{
			f.exam.Questions[0].ID: "chlorophyll",
			f.exam.Questions[1].ID: "ribosome",
		}}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = app.do(http.MethodPost, "/v1/reports", app.teacherToken, marshallObj(t, ReportRequest{StudentID: app.student.ID}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp ReportResponse
	unmarshall(t, rec, &resp)

	assert.True(t, resp.Success)
	rep := resp.Data
	assert.Equal(t, app.teacher.ID, rep.GeneratedBy)
	assert.True(t, strings.HasPrefix(rep.Path, app.student.ID+"/report_"))
	assert.Equal(t, 1, rep.Data.Statistics.TotalAttempts)
	assert.Equal(t, "66.7", rep.Data.Statistics.AveragePercentage)
	assert.Equal(t, map[string]int{"mastery": 1, "developmental": 1}, rep.Data.Statistics.ProficiencyCounts)
	if assert.Len(t, rep.Data.Attempts, 1) {
		assert.Equal(t, "Cells", rep.Data.Attempts[0].AssessmentTitle)
		assert.Equal(t, "Biology", rep.Data.Attempts[0].SubjectName)
	}

	runHTTPTests(t, app, []httpTest{
		{
			name:     "students report on themselves",
			method:   http.MethodPost,
			path:     "/v1/reports",
			body:     marshallObj(t, ReportRequest{StudentID: app.student.ID}),
			token:    app.studentToken,
			wantCode: http.StatusCreated,
		},
		{
			name:     "not on others",
			method:   http.MethodPost,
			path:     "/v1/reports",
			body:     marshallObj(t, ReportRequest{StudentID: app.student.ID}),
			token:    app.otherToken,
			wantCode: http.StatusForbidden,
		},
		{
			name:     "student is required",
			method:   http.MethodPost,
			path:     "/v1/reports",
			body:     []byte(`{}`),
			token:    app.teacherToken,
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"studentId":"this field is required"}`),
		},
		{
			name:     "teachers get no report",
			method:   http.MethodPost,
			path:     "/v1/reports",
			body:     marshallObj(t, ReportRequest{StudentID: app.teacher.ID}),
			token:    app.teacherToken,
			wantCode: http.StatusNotFound,
			wantData: marshallObj(t, httpErr{Error: profile.ErrNotFound.Error()}),
		},
		{
			name:     "another student's reports",
			method:   http.MethodGet,
			path:     "/v1/students/" + app.student.ID + "/reports",
			token:    app.otherToken,
			wantCode: http.StatusForbidden,
		},
	})

	t.Run("archive", func(t *testing.T) {
		rec := app.do(http.MethodGet, "/v1/students/"+app.student.ID+"/reports", app.teacherToken)
		require.Equal(t, http.StatusOK, rec.Code)
		var reps []report.Report
		unmarshall(t, rec, &reps)
		assert.Len(t, reps, 2)
	})
}
