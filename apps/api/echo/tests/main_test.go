package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	. "github.com/trezcool/kazi/apps/api/echo"
	"github.com/trezcool/kazi/core"
	"github.com/trezcool/kazi/core/assignment"
	"github.com/trezcool/kazi/core/auth"
	"github.com/trezcool/kazi/core/classroom"
	"github.com/trezcool/kazi/core/submission"
	"github.com/trezcool/kazi/core/testutil"
	"github.com/trezcool/kazi/core/user"
	"github.com/trezcool/kazi/services/extract"
	"github.com/trezcool/kazi/services/filestore"
	"github.com/trezcool/kazi/storage/database/inmem"
)

var refTime = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

// fakeOracle grades every answer with the same score and finds every trend rising.
type fakeOracle struct {
	mu      sync.Mutex
	score   null.Int
	calls   int
	content string // last graded
}

func (o *fakeOracle) Grade(_ context.Context, _, content string) (null.Int, string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls++
	o.content = content
	if !o.score.Valid {
		return null.Int{}, "AI批改出错: unavailable"
	}
	return o.score, "写得不错"
}

func (o *fakeOracle) AnalyzeTrend(_ context.Context, className string, points []submission.TrendPoint) (string, bool) {
	return className + "成绩稳步上升", true
}

type env struct {
	app       *Server
	conf      *core.Config
	tokens    *auth.TokenService
	oracle    *fakeOracle
	clock     *clock
	logger    *testutil.Logger
	userRepo  user.Repository
	classRepo classroom.Repository
	asgRepo   assignment.Repository
}

// clock is a settable time source for the token service.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Add(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func setup(t *testing.T) *env {
	t.Helper()

	conf := new(core.Config)
	conf.TestMode = true
	conf.AppName = "Kazi"
	conf.SecretKey = "test-secret"
	conf.Server.JWTExpirationDelta = 24 * time.Hour
	conf.Uploads.Dir = t.TempDir()
	conf.Uploads.URLPrefix = "/uploads"
	conf.Uploads.MaxSize = "64K"

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	logger := new(testutil.Logger)
	db := inmemdb.Open()
	e := &env{
		conf:      conf,
		oracle:    &fakeOracle{score: null.IntFrom(80)},
		clock:     &clock{now: time.Now().UTC()},
		logger:    logger,
		userRepo:  inmemdb.NewUserRepository(db),
		classRepo: inmemdb.NewClassRepository(db),
		asgRepo:   inmemdb.NewAssignmentRepository(db),
	}

	files, err := filestore.NewDisk(conf)
	if err != nil {
		t.Fatalf("setup() failed: %v", err)
	}
	usrSvc := user.NewService(e.userRepo)
	classSvc := classroom.NewService(nil, e.classRepo)
	asgSvc := assignment.NewService(e.asgRepo, classSvc)
	subSvc := submission.NewService(submission.Deps{
		Repo:        inmemdb.NewSubmissionRepository(db),
		Assignments: asgSvc,
		Classes:     classSvc,
		Files:       files,
		Extractor:   extract.NewExtractor(logger),
		Grader:      e.oracle,
		Analyzer:    e.oracle,
		Logger:      logger,
	})
	e.tokens = auth.NewTokenService(conf, usrSvc, auth.NewMemoryRevoker())
	e.tokens.SetClock(e.clock.Now)

	e.app = NewServer(ServerDeps{
		Conf:          conf,
		Logger:        logger,
		Validate:      validate,
		Translator:    translator,
		Tokens:        e.tokens,
		UserSvc:       usrSvc,
		ClassSvc:      classSvc,
		AssignmentSvc: asgSvc,
		SubmissionSvc: subSvc,
		UploadsDir:    conf.Uploads.Dir,
	})
	t.Cleanup(func() { _ = e.app.Close() })
	return e
}

func (e *env) serve(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.app.ServeHTTP(rec, req)
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

func newAuthRequest(method, path, token string, data ...[]byte) *http.Request {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func newRequest(method, path string, data ...[]byte) *http.Request {
	return newAuthRequest(method, path, "", data...)
}

// newSubmitRequest builds the multipart form of a submission. fileName may be empty.
func newSubmitRequest(t *testing.T, path, token, content, fileName string, fileData []byte) *http.Request {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if content != "" {
		if err := w.WriteField("content", content); err != nil {
			t.Fatalf("newSubmitRequest(): %v", err)
		}
	}
	if fileName != "" {
		fw, err := w.CreateFormFile("file", fileName)
		if err != nil {
			t.Fatalf("newSubmitRequest(): %v", err)
		}
		if _, err = fw.Write(fileData); err != nil {
			t.Fatalf("newSubmitRequest(): %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("newSubmitRequest(): %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func (e *env) getToken(t *testing.T, usr user.User) string {
	token, err := e.tokens.Issue(usr)
	if err != nil {
		t.Fatalf("getToken(): %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj(): %v", err)
	}
	return data
}

func unmarchall(t *testing.T, rec *httptest.ResponseRecorder, obj interface{}) {
	if err := json.Unmarshal(rec.Body.Bytes(), obj); err != nil {
		t.Fatalf("unmarchall(%s): %v", rec.Body.String(), err)
	}
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func runHTTPTests(t *testing.T, e *env, tests []httpTest) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkCodeAndData(t, tt, e.serve(newAuthRequest(tt.method, tt.path, tt.token, tt.body)))
		})
	}
}
