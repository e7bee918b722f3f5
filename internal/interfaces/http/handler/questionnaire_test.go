package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"future-self-api/internal/application/questionnaire"
	"future-self-api/internal/config"
	"future-self-api/internal/domain/entity"
)

type memResponseRepo struct {
	bySession map[string]*entity.ResponseRecord
}

func newMemResponseRepo() *memResponseRepo {
	return &memResponseRepo{bySession: make(map[string]*entity.ResponseRecord)}
}

func (m *memResponseRepo) UpsertAnonymous(_ context.Context, rec *entity.ResponseRecord) error {
	if existing, ok := m.bySession[*rec.SessionID]; ok {
		rec.ID = existing.ID
		rec.CreatedAt = existing.CreatedAt
		rec.Status = existing.Status
	} else {
		rec.ID = "rec-" + *rec.SessionID
	}
	m.bySession[*rec.SessionID] = rec
	return nil
}

func (m *memResponseRepo) UpsertForUser(_ context.Context, rec *entity.ResponseRecord) error {
	rec.ID = "rec-" + *rec.UserID
	return nil
}

func (m *memResponseRepo) GetByUserID(_ context.Context, _ string) (*entity.ResponseRecord, error) {
	return nil, nil
}

func (m *memResponseRepo) GetAnonymousBySessionID(_ context.Context, sessionID string) (*entity.ResponseRecord, error) {
	return m.bySession[sessionID], nil
}

func (m *memResponseRepo) AdoptAnonymous(_ context.Context, _, _ string) (bool, error) {
	return false, nil
}

func (m *memResponseRepo) UpdateStatus(_ context.Context, _ string, _ entity.ResponseStatus) error {
	return nil
}

type memDraftStore struct {
	drafts map[string][]string
}

func newMemDraftStore() *memDraftStore {
	return &memDraftStore{drafts: make(map[string][]string)}
}

func (m *memDraftStore) SaveDraft(_ context.Context, sessionID string, responses []string) error {
	m.drafts[sessionID] = responses
	return nil
}

func (m *memDraftStore) GetDraft(_ context.Context, sessionID string) ([]string, error) {
	return m.drafts[sessionID], nil
}

func (m *memDraftStore) DeleteDraft(_ context.Context, sessionID string) error {
	delete(m.drafts, sessionID)
	return nil
}

func newQuestionnaireTestEngine(repo *memResponseRepo, drafts *memDraftStore) *gin.Engine {
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{}
	cfg.Questionnaire.SessionCookie = "session_id"
	cfg.Questionnaire.DraftTTL = time.Hour

	h := NewQuestionnaireHandler(questionnaire.NewService(repo, drafts), cfg)

	engine := gin.New()
	engine.POST("/v1/questionnaire/sessions", h.StartSession)
	engine.PUT("/v1/questionnaire/sessions/:sid/draft", h.SaveDraft)
	engine.GET("/v1/questionnaire/sessions/:sid/draft", h.GetDraft)
	engine.POST("/v1/questionnaire/responses", h.Submit)
	return engine
}

func TestQuestionnaireHandler_StartSessionSetsCookie(t *testing.T) {
	engine := newQuestionnaireTestEngine(newMemResponseRepo(), newMemDraftStore())

	req := httptest.NewRequest(http.MethodPost, "/v1/questionnaire/sessions", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var cookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == "session_id" {
			cookie = c
		}
	}
	require.NotNil(t, cookie, "应写入会话 Cookie")
	assert.NotEmpty(t, cookie.Value)
	assert.True(t, cookie.HttpOnly)
	assert.Contains(t, w.Body.String(), cookie.Value)
}

func TestQuestionnaireHandler_DraftRoundTrip(t *testing.T) {
	drafts := newMemDraftStore()
	engine := newQuestionnaireTestEngine(newMemResponseRepo(), drafts)

	body, _ := json.Marshal(gin.H{"responses": []string{"Alice", "painter"}})
	req := httptest.NewRequest(http.MethodPut, "/v1/questionnaire/sessions/sess-1/draft", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"Alice", "painter"}, drafts.drafts["sess-1"])

	get := httptest.NewRequest(http.MethodGet, "/v1/questionnaire/sessions/sess-1/draft", nil)
	w = httptest.NewRecorder()
	engine.ServeHTTP(w, get)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "painter")
}

func TestQuestionnaireHandler_SubmitWithoutSession(t *testing.T) {
	engine := newQuestionnaireTestEngine(newMemResponseRepo(), newMemDraftStore())

	body, _ := json.Marshal(gin.H{"responses": []string{"Alice"}})
	req := httptest.NewRequest(http.MethodPost, "/v1/questionnaire/responses", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestQuestionnaireHandler_SubmitCleansDraft(t *testing.T) {
	repo := newMemResponseRepo()
	drafts := newMemDraftStore()
	drafts.drafts["sess-1"] = []string{"Alice"}
	engine := newQuestionnaireTestEngine(repo, drafts)

	body, _ := json.Marshal(gin.H{"responses": []string{"Alice", "painter", "Paris"}})
	req := httptest.NewRequest(http.MethodPost, "/v1/questionnaire/responses", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "sess-1"})
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), string(entity.ResponseStatusPending))
	assert.NotContains(t, drafts.drafts, "sess-1", "提交后草稿应被清理")

	rec := repo.bySession["sess-1"]
	require.NotNil(t, rec)
	assert.Equal(t, "Alice", rec.Name)
}

func TestQuestionnaireHandler_SubmitEmptyBody(t *testing.T) {
	engine := newQuestionnaireTestEngine(newMemResponseRepo(), newMemDraftStore())

	body, _ := json.Marshal(gin.H{"responses": []string{}})
	req := httptest.NewRequest(http.MethodPost, "/v1/questionnaire/responses", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "sess-1"})
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestQuestionnaireHandler_SessionHeaderFallback(t *testing.T) {
	repo := newMemResponseRepo()
	engine := newQuestionnaireTestEngine(repo, newMemDraftStore())

	body, _ := json.Marshal(gin.H{"responses": []string{"Alice"}})
	req := httptest.NewRequest(http.MethodPost, "/v1/questionnaire/responses", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Session-ID", "sess-hdr")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, repo.bySession, "sess-hdr")
}
