package crush_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/wholikeme/internal/auth"
	"github.com/oggyb/wholikeme/internal/db"
	"github.com/oggyb/wholikeme/internal/middleware"
	"github.com/oggyb/wholikeme/internal/service/crush"
)

func newRouter(f *fixture, v *auth.Verifier) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	api := r.Group("/api", middleware.Auth(v))
	crush.NewRegistrar(f.appCtx).RegisterRoutes(api)
	return r
}

func do(r http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

type addResponse struct {
	Success bool   `json:"success"`
	Match   bool   `json:"match"`
	Message string `json:"message"`
}

// alice adds bob, bob adds alice back: one match and both notified.
func TestHandler_AliceBobScenario(t *testing.T) {
	f := setupService(t)
	r := newRouter(f, nil)

	rec := do(r, http.MethodPost, "/api/add-crush", "", gin.H{"userId": f.alice.ID, "crushUserId": f.bob.ID})
	require.Equal(t, http.StatusOK, rec.Code)
	var first addResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &first))
	assert.Equal(t, addResponse{Success: true, Match: false, Message: "Crush added!"}, first)

	rec = do(r, http.MethodGet, "/api/get-admirers?userId="+f.bob.ID, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var admirers struct {
		Admirers []crush.CrushView `json:"admirers"`
		Count    int               `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &admirers))
	require.Equal(t, 1, admirers.Count)
	assert.Equal(t, "Alice", admirers.Admirers[0].User.Name)
	assert.Equal(t, db.CrushPending, admirers.Admirers[0].Status)

	rec = do(r, http.MethodPost, "/api/add-crush", "", gin.H{"userId": f.bob.ID, "crushUserId": f.alice.ID})
	require.Equal(t, http.StatusOK, rec.Code)
	var second addResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &second))
	assert.True(t, second.Success)
	assert.True(t, second.Match)
	assert.Equal(t, "🎉 It's a match! You added each other!", second.Message)

	rec = do(r, http.MethodGet, "/api/get-matches?userId="+f.alice.ID, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var matches struct {
		Matches []crush.MatchView `json:"matches"`
		Count   int               `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &matches))
	require.Equal(t, 1, matches.Count)
	assert.Equal(t, f.bob.ID, matches.Matches[0].User.ID)

	rec = do(r, http.MethodGet, "/api/get-crushes?userId="+f.bob.ID, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var crushes struct {
		Crushes []crush.CrushView `json:"crushes"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &crushes))
	require.Len(t, crushes.Crushes, 1)
	assert.Equal(t, db.CrushMatched, crushes.Crushes[0].Status)

	// new_crush to bob, then new_crush + new_match to alice and new_match to bob
	assert.Len(t, f.sender.Sent(), 4)
}

func TestHandler_AddCrushErrors(t *testing.T) {
	f := setupService(t)
	r := newRouter(f, nil)

	rec := do(r, http.MethodPost, "/api/add-crush", "", gin.H{"userId": f.alice.ID})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"userId and crushUserId are required"}`, rec.Body.String())

	rec = do(r, http.MethodPost, "/api/add-crush", "", gin.H{"userId": f.alice.ID, "crushUserId": f.alice.ID})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(r, http.MethodPost, "/api/add-crush", "", gin.H{"userId": f.alice.ID, "crushUserId": "ghost"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"User not found"}`, rec.Body.String())

	rec = do(r, http.MethodPost, "/api/add-crush", "", gin.H{"userId": f.alice.ID, "crushUserId": f.bob.ID})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(r, http.MethodPost, "/api/add-crush", "", gin.H{"userId": f.alice.ID, "crushUserId": f.bob.ID})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(r, http.MethodGet, "/api/get-admirers?userId=ghost", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(r, http.MethodGet, "/api/get-crushes", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_AuthenticatedCaller(t *testing.T) {
	f := setupService(t)
	v := auth.NewVerifier("test-secret", "wholikeme")
	r := newRouter(f, v)

	token, err := v.Issue(f.alice.ID, f.alice.Email, time.Minute)
	require.NoError(t, err)

	rec := do(r, http.MethodPost, "/api/add-crush", "", gin.H{"userId": f.alice.ID, "crushUserId": f.bob.ID})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// alice cannot add crushes on bob's behalf
	rec = do(r, http.MethodPost, "/api/add-crush", token, gin.H{"userId": f.bob.ID, "crushUserId": f.alice.ID})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, f.edges(t))

	rec = do(r, http.MethodGet, "/api/get-admirers?userId="+f.bob.ID, token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(r, http.MethodPost, "/api/add-crush", token, gin.H{"userId": f.alice.ID, "crushUserId": f.bob.ID})
	assert.Equal(t, http.StatusOK, rec.Code)
}
