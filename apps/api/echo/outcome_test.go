package echoapi_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/kipimo/core/outcome"
	"github.com/trezcool/kipimo/testutil"
)

func Test_outcomeApi(t *testing.T) {
	app := setup(t)

	rec := app.do(http.MethodPost, "/v1/subjects", app.teacherToken, []byte(`{"name":"  Biology ","description":"Cells and plants"}`))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var subj outcome.Subject
	unmarshall(t, rec, &subj)
	assert.Equal(t, "Biology", subj.Name)
	assert.Equal(t, app.teacher.ID, subj.TeacherID)

	rec = app.do(http.MethodPost, "/v1/subjects/"+subj.ID+"/outcomes", app.teacherToken, []byte(`{"description":"Explain photosynthesis"}`))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var o outcome.Outcome
	unmarshall(t, rec, &o)
	assert.Equal(t, subj.ID, o.SubjectID)
	assert.Equal(t, outcome.DefaultTargetProficiency, o.TargetProficiency)

	otherTeacher := testutil.CreateProfile(t, app.profiles, "Other Teacher", "ot@example.com", "teacher")
	otherTeacherToken := getToken(t, app.conf, otherTeacher)

	runHTTPTests(t, app, []httpTest{
		{
			name:     "no token",
			method:   http.MethodGet,
			path:     "/v1/subjects",
			wantCode: http.StatusUnauthorized,
			wantData: marshallObj(t, errMissingToken),
		},
		{
			name:     "students cannot create subjects",
			method:   http.MethodPost,
			path:     "/v1/subjects",
			body:     []byte(`{"name":"Chemistry"}`),
			token:    app.studentToken,
			wantCode: http.StatusForbidden,
			wantData: marshallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name:     "name is required",
			method:   http.MethodPost,
			path:     "/v1/subjects",
			body:     []byte(`{"name":"  "}`),
			token:    app.teacherToken,
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"name":"this field is required"}`),
		},
		{
			name:     "target out of range",
			method:   http.MethodPost,
			path:     "/v1/subjects/" + subj.ID + "/outcomes",
			body:     []byte(`{"description":"Label a cell","target_proficiency":120}`),
			token:    app.teacherToken,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "outcomes of another teacher's subject",
			method:   http.MethodPost,
			path:     "/v1/subjects/" + subj.ID + "/outcomes",
			body:     []byte(`{"description":"Label a cell"}`),
			token:    otherTeacherToken,
			wantCode: http.StatusForbidden,
		},
		{
			name:     "unknown subject",
			method:   http.MethodGet,
			path:     "/v1/subjects/nope/outcomes",
			token:    app.studentToken,
			wantCode: http.StatusNotFound,
			wantData: marshallObj(t, httpErr{Error: outcome.ErrSubjectNotFound.Error()}),
		},
		{
			name:     "teachers only list their own subjects",
			method:   http.MethodGet,
			path:     "/v1/subjects",
			token:    otherTeacherToken,
			wantCode: http.StatusOK,
			wantData: []byte(`[]`),
		},
		{
			name:     "students list every subject",
			method:   http.MethodGet,
			path:     "/v1/subjects",
			token:    app.studentToken,
			wantCode: http.StatusOK,
			wantData: marshallObj(t, []outcome.Subject{subj}),
		},
		{
			name:     "list outcomes",
			method:   http.MethodGet,
			path:     "/v1/subjects/" + subj.ID + "/outcomes",
			token:    app.studentToken,
			wantCode: http.StatusOK,
			wantData: marshallObj(t, []outcome.Outcome{o}),
		},
	})
}
