package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"examflow/internal/auth"
	"examflow/internal/exam"
	"examflow/internal/feed"
	"examflow/internal/user"
)

type testEnv struct {
	router *gin.Engine
	store  *exam.MemoryStore
	exams  *exam.Repository
	users  *user.Service
	tokens *auth.Issuer
}

func setup(t *testing.T, health map[string]func(context.Context) bool) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	f := feed.NewInMemory()
	t.Cleanup(func() { _ = f.Close() })

	env := &testEnv{
		store:  exam.NewMemoryStore(),
		users:  user.NewService(user.NewMemoryStore()),
		tokens: auth.NewIssuer("examflow", "test-key", time.Minute, time.Hour),
	}
	env.exams = exam.NewRepository(env.store, f, zerolog.Nop())
	env.router = NewRouter(Deps{
		Exams:  env.exams,
		Users:  env.users,
		Tokens: env.tokens,
		Logger: zerolog.Nop(),
		Health: health,
	})
	return env
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

// signup creates an account through the API and returns its access token.
func (e *testEnv) signup(t *testing.T, name, email string, role user.Role, studentID string) string {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/v1/auth/signup", "", user.SignupInput{
		Name: name, Email: email, Password: "secret1", Role: role, StudentID: studentID,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.AccessToken
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestAuthFlow(t *testing.T) {
	env := setup(t, nil)
	env.signup(t, "Ada", "ada@example.com", user.RoleStudent, "S1")

	rec := env.do(t, http.MethodPost, "/v1/auth/signup", "", user.SignupInput{Name: "Ada", Email: "ada@example.com", Password: "secret1", Role: user.RoleStudent})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(t, http.MethodPost, "/v1/auth/signup", "", user.SignupInput{Name: "A", Email: "x", Password: "1", Role: "admin"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/v1/auth/login", "", loginRequest{Email: "ada@example.com", Password: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodPost, "/v1/auth/login", "", loginRequest{Email: "ada@example.com", Password: "secret1"})
	require.Equal(t, http.StatusOK, rec.Code)
	session := decode[sessionResponse](t, rec)
	assert.Equal(t, "S1", session.Profile.StudentID)

	rec = env.do(t, http.MethodGet, "/v1/me", session.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	me := decode[struct {
		Profile user.Profile `json:"profile"`
	}](t, rec)
	assert.Equal(t, user.RoleStudent, me.Profile.Role)

	rec = env.do(t, http.MethodPost, "/v1/auth/refresh", "", refreshRequest{RefreshToken: session.RefreshToken})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, decode[sessionResponse](t, rec).AccessToken)

	rec = env.do(t, http.MethodPost, "/v1/auth/refresh", "", refreshRequest{RefreshToken: session.AccessToken})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestStudentExam(t *testing.T) {
	env := setup(t, nil)
	student := env.signup(t, "Ada", "ada@example.com", user.RoleStudent, "S1")

	rec := env.do(t, http.MethodGet, "/v1/student/exam", student, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, noExamMessage, decode[map[string]string](t, rec)["error"])

	dt := "2024-06-01T09:00:00.000Z"
	_, err := env.exams.Create(context.Background(), exam.NewExam{StudentID: "S1", StudentName: "Ada", Subject: "Math", Room: "A1", DateTime: &dt})
	require.NoError(t, err)

	rec = env.do(t, http.MethodGet, "/v1/student/exam", student, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[struct {
		Exam exam.Exam `json:"exam"`
	}](t, rec).Exam
	assert.Equal(t, "Math", got.Subject)
	assert.Equal(t, dt, got.DateTime)

	rec = env.do(t, http.MethodGet, "/v1/staff/exams", student, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestStudentExamHidesDecodeProblems(t *testing.T) {
	env := setup(t, nil)
	student := env.signup(t, "Ada", "ada@example.com", user.RoleStudent, "S1")
	env.store.Put(exam.Record{ID: "e1", StudentID: "S1", Subject: "Math", Status: "cancelled"})

	rec := env.do(t, http.MethodGet, "/v1/student/exam", student, nil)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, map[string]any{"error": "could not load exam information"}, decode[map[string]any](t, rec))
	assert.NotContains(t, rec.Body.String(), "cancelled")
}

func TestStaffExamManagement(t *testing.T) {
	env := setup(t, nil)
	staff := env.signup(t, "Sam", "sam@example.com", user.RoleStaff, "")
	student := env.signup(t, "Ada", "ada@example.com", user.RoleStudent, "S1")

	rec := env.do(t, http.MethodPost, "/v1/staff/exams", staff, exam.NewExam{StudentID: "S1", StudentName: "Ada", Subject: "Math"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[struct {
		Exam exam.Exam `json:"exam"`
	}](t, rec).Exam
	assert.Equal(t, exam.StatusScheduled, created.Status)

	path := "/v1/staff/exams/" + created.ID
	tests := []struct {
		name  string
		token string
		path  string
		body  string
		want  int
	}{
		{name: "status", token: staff, path: path, body: `{"status":"in-progress"}`, want: http.StatusNoContent},
		{name: "room and date-time", token: staff, path: path, body: `{"room":"B2","dateTime":"2024-06-01T11:00:00+02:00"}`, want: http.StatusNoContent},
		{name: "unknown status", token: staff, path: path, body: `{"status":"cancelled"}`, want: http.StatusBadRequest},
		{name: "date only", token: staff, path: path, body: `{"dateTime":"2024-06-01"}`, want: http.StatusBadRequest},
		{name: "empty patch", token: staff, path: path, body: `{}`, want: http.StatusBadRequest},
		{name: "immutable field", token: staff, path: path, body: `{"subject":"Art"}`, want: http.StatusBadRequest},
		{name: "malformed", token: staff, path: path, body: `{`, want: http.StatusBadRequest},
		{name: "unknown exam", token: staff, path: "/v1/staff/exams/missing", body: `{"room":"A1"}`, want: http.StatusNotFound},
		{name: "student", token: student, path: path, body: `{"room":"A1"}`, want: http.StatusForbidden},
		{name: "anonymous", path: path, body: `{"room":"A1"}`, want: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPatch, tt.path, tt.token, tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}

	rec = env.do(t, http.MethodGet, "/v1/staff/exams", staff, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	snap := decode[exam.Snapshot](t, rec)
	require.Len(t, snap.Exams, 1)
	got := snap.Exams[0]
	assert.Equal(t, exam.StatusInProgress, got.Status)
	assert.Equal(t, "B2", got.Room)
	assert.Equal(t, "2024-06-01T09:00:00.000Z", got.DateTime)
	assert.Equal(t, "Math", got.Subject)
}

func TestHealthz(t *testing.T) {
	up := func(context.Context) bool { return true }
	down := func(context.Context) bool { return false }

	rec := setup(t, map[string]func(context.Context) bool{"db": up}).do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = setup(t, map[string]func(context.Context) bool{"db": up, "redis": down}).do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	body := decode[map[string]any](t, rec)
	assert.Equal(t, "degraded", body["status"])
	assert.Equal(t, false, body["redis"])
}

func TestSecurityHeaders(t *testing.T) {
	rec := setup(t, nil).do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
}

func TestExamStream(t *testing.T) {
	env := setup(t, nil)
	staff := env.signup(t, "Sam", "sam@example.com", user.RoleStaff, "")
	srv := httptest.NewServer(env.router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/staff/exams/stream?access_token=" + staff
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	defer conn.Close()

	read := func() frame {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		var f frame
		require.NoError(t, conn.ReadJSON(&f))
		return f
	}

	first := read()
	require.Equal(t, "snapshot", first.Type)
	require.NotNil(t, first.Data)
	assert.Empty(t, first.Data.Exams)

	ex, err := env.exams.Create(context.Background(), exam.NewExam{StudentID: "S1", StudentName: "Ada", Subject: "Math"})
	require.NoError(t, err)

	for {
		f := read()
		require.Equal(t, "snapshot", f.Type)
		if len(f.Data.Exams) == 1 {
			assert.Equal(t, ex.ID, f.Data.Exams[0].ID)
			break
		}
	}
}

func TestExamStreamRequiresStaff(t *testing.T) {
	env := setup(t, nil)
	student := env.signup(t, "Ada", "ada@example.com", user.RoleStudent, "S1")
	srv := httptest.NewServer(env.router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/staff/exams/stream?access_token=" + student
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}
