package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/secureblog/secureblog/backend/go-services/internal/analysis"
	"github.com/secureblog/secureblog/backend/go-services/internal/document/repository"
	"github.com/secureblog/secureblog/backend/go-services/internal/document/service"
	"github.com/secureblog/secureblog/backend/go-services/internal/ingestion"
	"github.com/secureblog/secureblog/backend/go-services/pkg/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const post = "The quick brown fox jumps over the lazy dog near the river bank."

func newRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	sim := analysis.NewSimilarityScorer(analysis.DefaultSimilarityConfig())
	feat := analysis.NewSentenceUniformity(analysis.DefaultHeuristicConfig())
	svc := service.New(service.Options{
		Repo:   repository.NewMemoryRepo(),
		Policy: ingestion.NewPolicy(ingestion.DefaultConfig(), sim, feat),
	})
	g := gin.New()
	g.Use(middleware.HeaderIdentity("X-User-ID"))
	New(svc, sim, feat).Register(g)
	return g
}

func do(g *gin.Engine, method, path, user, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if user != "" {
		req.Header.Set("X-User-ID", user)
	}
	w := httptest.NewRecorder()
	g.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestDocumentLifecycle(t *testing.T) {
	g := newRouter(t)

	w := do(g, http.MethodPost, "/api/documents", "alice", `{"title":"Fox","content":"`+post+`"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode(t, w)
	assert.Equal(t, 0.0, created["similarityScore"])
	assert.Equal(t, 10.0, created["machineLikelihood"])
	assert.Equal(t, 1.0, created["version"])
	id := strconv.Itoa(int(created["id"].(float64)))

	w = do(g, http.MethodGet, "/api/documents/"+id, "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, post, decode(t, w)["content"])

	w = do(g, http.MethodPut, "/api/documents/"+id, "alice", `{"content":"A new draft.","changeDescription":"rewrite"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 2.0, decode(t, w)["version"])

	w = do(g, http.MethodGet, "/api/documents/"+id+"/revisions", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	var revs []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &revs))
	require.Len(t, revs, 2)
	assert.Equal(t, 2.0, revs[0]["version"])
	firstRev := strconv.Itoa(int(revs[1]["id"].(float64)))

	w = do(g, http.MethodPost, "/api/documents/"+id+"/restore/"+firstRev, "alice", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	restored := decode(t, w)
	assert.Equal(t, 3.0, restored["newVersion"])
	assert.Equal(t, 1.0, restored["restoredVersion"])

	w = do(g, http.MethodGet, "/api/documents?owner=alice", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	var list []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Len(t, list, 1)

	w = do(g, http.MethodDelete, "/api/documents/"+id, "alice", "")
	require.Equal(t, http.StatusNoContent, w.Code)
	w = do(g, http.MethodGet, "/api/documents/"+id, "", "")
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestErrorMapping(t *testing.T) {
	g := newRouter(t)
	w := do(g, http.MethodPost, "/api/documents", "alice", `{"title":"Fox","content":"`+post+`"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	id := strconv.Itoa(int(decode(t, w)["id"].(float64)))

	cases := []struct {
		name, method, path, user, body string
		code                           int
	}{
		{"anonymous create", http.MethodPost, "/api/documents", "", `{"content":"x"}`, http.StatusUnauthorized},
		{"missing content", http.MethodPost, "/api/documents", "bob", `{"title":"t"}`, http.StatusBadRequest},
		{"blank content", http.MethodPost, "/api/documents", "bob", `{"content":"   "}`, http.StatusBadRequest},
		{"duplicate", http.MethodPost, "/api/documents", "bob", `{"content":"` + post + `"}`, http.StatusUnprocessableEntity},
		{"bad id", http.MethodGet, "/api/documents/abc", "", "", http.StatusBadRequest},
		{"unknown id", http.MethodGet, "/api/documents/999", "", "", http.StatusNotFound},
		{"not owner", http.MethodPut, "/api/documents/" + id, "bob", `{"content":"mine now"}`, http.StatusForbidden},
		{"unknown revision", http.MethodPost, "/api/documents/" + id + "/restore/999", "alice", "", http.StatusNotFound},
		{"archive disabled", http.MethodGet, "/api/documents/" + id + "/revisions/1/archive", "", "", http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := do(g, tc.method, tc.path, tc.user, tc.body)
			assert.Equal(t, tc.code, w.Code, w.Body.String())
		})
	}
}

func TestRejectionCarriesScore(t *testing.T) {
	g := newRouter(t)
	require.Equal(t, http.StatusCreated, do(g, http.MethodPost, "/api/documents", "alice", `{"content":"`+post+`"}`).Code)

	w := do(g, http.MethodPost, "/api/documents", "bob", `{"content":"`+post+`"}`)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, 100.0, decode(t, w)["similarityScore"])

	w = do(g, http.MethodGet, "/api/analysis/reports?limit=1", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	var reports []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &reports))
	require.Len(t, reports, 1)
	assert.Equal(t, "rejected", reports[0]["outcome"])

	assert.Equal(t, http.StatusBadRequest, do(g, http.MethodGet, "/api/analysis/reports?limit=x", "", "").Code)
}

func TestAnalysisEndpoints(t *testing.T) {
	g := newRouter(t)

	w := do(g, http.MethodPost, "/api/analysis/similarity", "", `{"candidate":"red apple","corpus":["green pear","red apple"]}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	out := decode(t, w)
	assert.Equal(t, 100.0, out["score"])
	assert.Equal(t, 1.0, out["nearestIndex"])

	w = do(g, http.MethodPost, "/api/analysis/similarity", "", `{"candidate":"anything","corpus":[]}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0.0, decode(t, w)["score"])

	w = do(g, http.MethodPost, "/api/analysis/similarity", "", `{"candidate":"  ","corpus":["a b"]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(g, http.MethodPost, "/api/analysis/machine-likelihood", "", `{"text":"Hello world."}`)
	require.Equal(t, http.StatusOK, w.Code)
	out = decode(t, w)
	assert.Equal(t, 10.0, out["score"])
	assert.Equal(t, "sentence-uniformity", out["scorer"])
}
