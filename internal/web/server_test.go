package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/realcamp/guidebot/internal/completion"
	"github.com/realcamp/guidebot/internal/config"
	"github.com/realcamp/guidebot/internal/dialog"
	"github.com/realcamp/guidebot/internal/testutil"
)

func newTestServer(t *testing.T, client completion.Client, mutate func(*config.Config)) http.Handler {
	t.Helper()

	cfg, err := config.LoadDefault()
	require.NoError(t, err)
	if mutate != nil {
		mutate(cfg)
	}

	logger := testutil.TestLogger()
	store := testutil.TestStore(t)
	cat := testutil.TestCatalog(t)
	translator := testutil.TestTranslator(t, cfg.Bot.Language)

	orchestrator := dialog.NewOrchestrator(logger, store, cat, client,
		dialog.NewFusion(logger, store, cat),
		dialog.NewScorer(cat, translator, cfg.Bot.Language),
		translator,
		dialog.Options{
			Language:           cfg.Bot.Language,
			MaxSuggestions:     cfg.Bot.MaxSuggestions,
			MaxResponseChars:   cfg.Bot.MaxResponseChars,
			DefaultMaxTokens:   cfg.OpenAI.MaxTokens,
			DefaultTemperature: cfg.OpenAI.Temperature,
		})

	server, err := NewServer(logger, cfg, cat, store, orchestrator, translator)
	require.NoError(t, err)
	return server.Handler()
}

func TestChatEndpoint(t *testing.T) {
	client := &testutil.StaticCompletionClient{Text: "Привет, я помогу!"}
	handler := newTestServer(t, client, nil)

	body := `{"message": "привет!", "user_id": "user-123"}`
	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp dialog.ChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Привет, я помогу!", resp.Response)
	assert.NotEmpty(t, resp.Suggestions)
	assert.Equal(t, "general", resp.Metadata.RequestType)
}

func TestChatEndpointValidation(t *testing.T) {
	handler := newTestServer(t, &testutil.StaticCompletionClient{}, nil)

	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{broken`},
		{"empty message", `{"message": "  ", "user_id": "user-123"}`},
		{"missing user id", `{"message": "привет"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestChatEndpointDegradedStillOK(t *testing.T) {
	client := &testutil.StaticCompletionClient{Err: completion.ErrUnavailable}
	handler := newTestServer(t, client, nil)

	body := `{"message": "привет!", "user_id": "user-123"}`
	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp dialog.ChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Response)
	assert.NotEmpty(t, resp.Metadata.Error)
}

func TestCategoriesEndpoint(t *testing.T) {
	handler := newTestServer(t, &testutil.StaticCompletionClient{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/categories", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Categories []struct {
			ID          string `json:"id"`
			Title       string `json:"title"`
			BadgesCount int    `json:"badges_count"`
		} `json:"categories"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Categories, 2)
	assert.Equal(t, "7", resp.Categories[0].ID)
	assert.Equal(t, 1, resp.Categories[0].BadgesCount)
	assert.Equal(t, "11", resp.Categories[1].ID)
	assert.Equal(t, 2, resp.Categories[1].BadgesCount)
}

func TestBadgesByCategoryEndpoint(t *testing.T) {
	handler := newTestServer(t, &testutil.StaticCompletionClient{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/badges/11", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		CategoryID string `json:"category_id"`
		Badges     []struct {
			ID          string `json:"id"`
			LevelsCount int    `json:"levels_count"`
		} `json:"badges"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "11", resp.CategoryID)
	require.Len(t, resp.Badges, 2)
	assert.Equal(t, 3, resp.Badges[0].LevelsCount)

	// Неизвестная категория отдаёт пустой список, не ошибку
	req = httptest.NewRequest(http.MethodGet, "/badges/99", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"badges":[]`)
}

func TestBadgeEndpoint(t *testing.T) {
	handler := newTestServer(t, &testutil.StaticCompletionClient{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/badge/11.3", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Badge struct {
			ID     string `json:"id"`
			Title  string `json:"title"`
			Levels []struct {
				Level string `json:"level"`
			} `json:"levels"`
		} `json:"badge"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Бегун", resp.Badge.Title)
	assert.Len(t, resp.Badge.Levels, 3)
}

func TestBadgeEndpointNormalizesLevelID(t *testing.T) {
	handler := newTestServer(t, &testutil.StaticCompletionClient{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/badge/11.3.2", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"id":"11.3"`)
}

func TestBadgeEndpointNotFound(t *testing.T) {
	handler := newTestServer(t, &testutil.StaticCompletionClient{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/badge/99.9", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthzEndpoint(t *testing.T) {
	handler := newTestServer(t, &testutil.StaticCompletionClient{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Status     string          `json:"status"`
		Components map[string]bool `json:"components"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.True(t, resp.Components["catalog"])
	assert.True(t, resp.Components["store"])
}

func TestIndexServesChatPage(t *testing.T) {
	handler := newTestServer(t, &testutil.StaticCompletionClient{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "НейроВалюша")
	assert.Contains(t, rec.Body.String(), "chatContainer")
}

func TestCORSPreflight(t *testing.T) {
	handler := newTestServer(t, &testutil.StaticCompletionClient{}, nil)

	req := httptest.NewRequest(http.MethodOptions, "/chat", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "POST")
}

func TestDebugRoutesDisabledByDefault(t *testing.T) {
	handler := newTestServer(t, &testutil.StaticCompletionClient{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/ui/context?user_id=user-123", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDebugRoutesRequireAuth(t *testing.T) {
	handler := newTestServer(t, &testutil.StaticCompletionClient{}, func(cfg *config.Config) {
		cfg.Server.DebugMode = true
		cfg.Server.Auth.Enabled = true
		cfg.Server.Auth.Username = "admin"
		cfg.Server.Auth.Password = "secret"
	})

	req := httptest.NewRequest(http.MethodGet, "/ui/context?user_id=user-123", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/ui/context?user_id=user-123", nil)
	req.SetBasicAuth("admin", "secret")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "user-123")
}

func TestDebugHistoryEndpoint(t *testing.T) {
	client := &testutil.StaticCompletionClient{Text: "Ответ."}
	handler := newTestServer(t, client, func(cfg *config.Config) {
		cfg.Server.DebugMode = true
	})

	body := `{"message": "привет!", "user_id": "user-123"}`
	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/ui/history?user_id=user-123", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Messages, 2)
	assert.Equal(t, "user", resp.Messages[0].Role)
}
