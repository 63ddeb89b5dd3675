package echoapi_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"

	. "github.com/trezcool/kipimo/apps/api/echo"
	"github.com/trezcool/kipimo/core"
	"github.com/trezcool/kipimo/core/assessment"
	"github.com/trezcool/kipimo/core/attempt"
	"github.com/trezcool/kipimo/core/outcome"
	"github.com/trezcool/kipimo/core/practice"
	"github.com/trezcool/kipimo/core/proficiency"
	"github.com/trezcool/kipimo/core/profile"
	"github.com/trezcool/kipimo/core/report"
	emailsvc "github.com/trezcool/kipimo/services/email"
	"github.com/trezcool/kipimo/services/llm"
	inmemdb "github.com/trezcool/kipimo/storage/database/inmem"
	"github.com/trezcool/kipimo/testutil"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type testApp struct {
	conf   *core.Config
	server Server
	llm    *llm.MockProvider

	profiles    profile.Repository
	outcomes    outcome.Repository
	assessments assessment.Repository

	teacher, student, other                profile.Profile
	teacherToken, studentToken, otherToken string
}

func setup(t *testing.T) *testApp {
	conf := core.NewTestConfig()
	conf.Debug = false
	logger := testutil.NewLogger()

	// set up DB & repos
	db := inmemdb.Open()
	app := &testApp{
		conf:        conf,
		llm:         llm.NewMockProvider(),
		profiles:    inmemdb.NewProfileRepository(db),
		outcomes:    inmemdb.NewOutcomeRepository(db),
		assessments: inmemdb.NewAssessmentRepository(db),
	}
	attempts := inmemdb.NewAttemptRepository(db)
	records := inmemdb.NewProficiencyRepository(db)

	validate, translator := core.NewValidator()
	profile.RegisterValidators(validate, translator)
	assessment.RegisterValidators(validate, translator)

	// set up services
	mailSvc := emailsvc.NewConsoleServiceMock(conf, logger)
	profSvc := proficiency.NewService(conf, records, app.profiles, app.outcomes, mailSvc, logger)

	// set up server
	app.server = NewServer(ServerDeps{
		Conf:           conf,
		Logger:         logger,
		Validate:       validate,
		Translator:     translator,
		DisableReqLogs: true,
		ProfileSvc:     profile.NewService(app.profiles),
		OutcomeSvc:     outcome.NewService(app.outcomes),
		AssessmentSvc:  assessment.NewService(app.assessments, app.outcomes),
		AttemptSvc:     attempt.NewService(conf, attempts, app.assessments, profSvc, logger),
		ProficiencySvc: profSvc,
		PracticeSvc:    practice.NewService(conf, app.llm, validate, logger),
		ReportSvc:      report.NewService(inmemdb.NewReportRepository(db), app.profiles, attempts, app.assessments, records, app.outcomes),
	})

	app.teacher = testutil.CreateProfile(t, app.profiles, "Teacher", "teacher@example.com", profile.RoleTeacher)
	app.student = testutil.CreateProfile(t, app.profiles, "Student", "student@example.com", profile.RoleStudent)
	app.other = testutil.CreateProfile(t, app.profiles, "Other", "other@example.com", profile.RoleStudent)
	app.teacherToken = getToken(t, conf, app.teacher)
	app.studentToken = getToken(t, conf, app.student)
	app.otherToken = getToken(t, conf, app.other)
	return app
}

func (app *testApp) do(method, path, token string, body ...[]byte) *httptest.ResponseRecorder {
	req, rec := newAuthRequest(method, path, token, body...)
	app.server.ServeHTTP(rec, req)
	return rec
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func getToken(t *testing.T, conf *core.Config, p profile.Profile) string {
	token, err := GenerateToken(conf, NewClaims(conf, p))
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marshallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshallObj() failed: %v", err)
	}
	return data
}

func unmarshall(t *testing.T, rec *httptest.ResponseRecorder, dest interface{}) {
	if err := json.Unmarshal(rec.Body.Bytes(), dest); err != nil {
		t.Fatalf("unmarshall() failed: %v; body %s", err, rec.Body.String())
	}
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if j1 == nil || j2 == nil {
		return false, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func runHTTPTests(t *testing.T, app *testApp, tests []httpTest) {
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.do(tt.method, tt.path, tt.token, tt.body)
			checkCodeAndData(t, tt, rec)
		})
	}
}
