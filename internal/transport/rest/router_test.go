package rest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"carepath/internal/config"
	"carepath/internal/model"
	"carepath/internal/service"
	"carepath/internal/testutil"
	"carepath/internal/transport/ws"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDays = 3

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	t.Setenv("HOST_USERNAME", "operator")
	t.Setenv("HOST_PASSWORD", "secret")
	t.Setenv("JWT_SECRET", "router-test-secret")

	policy := config.DefaultPolicy()
	policy.TotalDays = testDays
	policy.Languages = []string{"en", "fr"}

	catalog := testutil.ProgramCatalog(testDays)
	structures := testutil.NewStructureStore(catalog[0], catalog[1], catalog[2])

	authSvc := service.NewAuthService()
	programSvc := service.NewProgramService(testutil.NewProgramStore(), structures, testutil.NewUnlockIndex(), policy, authSvc)
	contentSvc := service.NewContentService(structures, testutil.NewTranslationStore(), testutil.NewLegacyStore(), testutil.NewComposedCache(), policy)

	hub := ws.NewHub()
	programSvc.SetBroadcaster(hub)

	return NewRouter(&Container{
		AuthService:    authSvc,
		ProgramService: programSvc,
		ContentService: contentSvc,
		WSHub:          hub,
	})
}

func do(t *testing.T, h http.Handler, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out), rec.Body.String())
}

func login(t *testing.T, h http.Handler) string {
	t.Helper()
	rec := do(t, h, http.MethodPost, "/v1/auth/login", "", model.LoginRequest{Username: "operator", Password: "secret"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp model.LoginResponse
	decode(t, rec, &resp)
	return resp.Token
}

func enroll(t *testing.T, h http.Handler, opToken, participantID string) string {
	t.Helper()
	rec := do(t, h, http.MethodPost, "/v1/programs", opToken, map[string]string{"participantId": participantID})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp model.EnrollmentResponse
	decode(t, rec, &resp)
	return resp.Token
}

func TestHealth(t *testing.T) {
	h := newTestRouter(t)
	rec := do(t, h, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestLogin_WrongPassword(t *testing.T) {
	h := newTestRouter(t)
	rec := do(t, h, http.MethodPost, "/v1/auth/login", "", model.LoginRequest{Username: "operator", Password: "nope"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://clinic.example.org")
	h := newTestRouter(t)

	rec := do(t, h, http.MethodOptions, "/v1/programs", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://clinic.example.org", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestAudiencesAreSeparated(t *testing.T) {
	h := newTestRouter(t)
	opToken := login(t, h)
	ptToken := enroll(t, h, opToken, "p1")

	assert.Equal(t, http.StatusUnauthorized, do(t, h, http.MethodGet, "/v1/programs/p1", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, do(t, h, http.MethodGet, "/v1/programs/p1", ptToken, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, do(t, h, http.MethodGet, "/v1/me/program", opToken, nil).Code)
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/v1/me/program", ptToken, nil).Code)
}

func TestParticipantJourney(t *testing.T) {
	h := newTestRouter(t)
	opToken := login(t, h)
	ptToken := enroll(t, h, opToken, "p1")

	answers := map[string]interface{}{"responses": testutil.Answers(0, 0, 0, 0, 0, 0, 0)}
	rec := do(t, h, http.MethodPost, "/v1/me/assessment", ptToken, answers)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var program model.ParticipantProgram
	decode(t, rec, &program)
	assert.Equal(t, testutil.Mild, program.OutcomeLevel)

	rec = do(t, h, http.MethodPost, "/v1/me/assessment", ptToken, answers)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, h, http.MethodPut, "/v1/me/days/0/tasks/d0-welcome/response", ptToken,
		map[string]interface{}{"response": map[string]bool{"viewed": true}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = do(t, h, http.MethodPut, "/v1/me/days/0/tasks/d0-expectations/response", ptToken,
		map[string]interface{}{"response": map[string]string{"text": "sleep better"}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, h, http.MethodPost, "/v1/me/days/0/complete", ptToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/v1/me/days/1/content", ptToken, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	var errResp struct {
		Code string `json:"code"`
	}
	decode(t, rec, &errResp)
	assert.Equal(t, "day_locked", errResp.Code)

	rec = do(t, h, http.MethodPost, "/v1/programs/p1/days/1/unlock", opToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/v1/me/days/1/content", ptToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var day struct {
		Module  model.DayModule   `json:"module"`
		Content model.ComposedDay `json:"content"`
	}
	decode(t, rec, &day)
	assert.Equal(t, testutil.Mild, day.Module.LevelKey)
	assert.Equal(t, 1, day.Content.DayNumber)
	require.Len(t, day.Content.ContentLevels, 1, "only the participant's level is served")
	assert.Equal(t, testutil.Mild, day.Content.ContentLevels[0].LevelKey)
	assert.NotContains(t, rec.Body.String(), testutil.Severe)

	rec = do(t, h, http.MethodGet, "/v1/me/days/0/content", ptToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decode(t, rec, &day)
	require.NotNil(t, day.Content.TestStructure)
	for _, q := range day.Content.TestStructure.Questions {
		for _, o := range q.Options {
			assert.Equal(t, o.FollowupActive, o.FollowupTask != nil, "%s/%s", q.QuestionID, o.OptionKey)
		}
	}
}

func TestBadPayloadIsRejected(t *testing.T) {
	h := newTestRouter(t)
	opToken := login(t, h)
	ptToken := enroll(t, h, opToken, "p1")

	rec := do(t, h, http.MethodPost, "/v1/me/assessment", ptToken, map[string]string{"responses": "all of them"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, "/v1/me/days/one/content", ptToken, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestContentEditing(t *testing.T) {
	h := newTestRouter(t)
	opToken := login(t, h)

	rec := do(t, h, http.MethodGet, "/v1/content/days", opToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []model.DynamicDayStructure
	decode(t, rec, &list)
	assert.Len(t, list, testDays)

	rec = do(t, h, http.MethodPut, "/v1/content/days/1/translations/fr", opToken, map[string]interface{}{
		"levelContent": []map[string]interface{}{{
			"levelKey":   testutil.Mild,
			"levelLabel": "Charge légère",
		}},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/v1/content/days/1/composed?language=fr", opToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "Charge légère")

	rec = do(t, h, http.MethodPut, fmt.Sprintf("/v1/content/days/1/levels/%s/order", testutil.Mild), opToken,
		map[string][]string{"taskIds": {"d1-mild-extra", "d1-mild-read"}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var st model.DynamicDayStructure
	decode(t, rec, &st)
	assert.Equal(t, "d1-mild-extra", st.ContentLevels[0].Tasks[0].TaskID)

	rec = do(t, h, http.MethodDelete, "/v1/content/days/1/tasks/missing", opToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
