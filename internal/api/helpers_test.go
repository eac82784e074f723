package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/vitalis-health/backend/config"
	"github.com/vitalis-health/backend/internal/storage"
	"github.com/vitalis-health/backend/internal/testhelpers"
)

const testAdminPassword = "test-admin-password"

// setupTestRouter builds the full API against an in-memory database, a
// temp-dir file store and no Redis.
func setupTestRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testhelpers.SetupTestDB(t)
	files, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	hash, err := bcrypt.GenerateFromPassword([]byte(testAdminPassword), bcrypt.MinCost)
	require.NoError(t, err)

	cfg := &config.Config{
		JWTSecret:         "test-secret",
		AdminPasswordHash: string(hash),
		ReportTTL:         24 * time.Hour,
		ReaperGrace:       24 * time.Hour,
	}

	router := gin.New()
	SetupAPI(router, db, nil, files, cfg)
	return router, db
}

func performRequest(t *testing.T, router *gin.Engine, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), "body: %s", w.Body.String())
	return body
}

func startRequestBody() map[string]interface{} {
	return map[string]interface{}{
		"name":    "Jane Roe",
		"email":   "jane@example.com",
		"phone":   "+31 6 12345678",
		"age":     42,
		"gender":  "female",
		"country": "Netherlands",
	}
}

// startAssessment drives POST /assessments and returns the two ids.
func startAssessment(t *testing.T, router *gin.Engine) (userID, assessmentID string) {
	t.Helper()

	w := performRequest(t, router, http.MethodPost, "/api/v1/assessments", startRequestBody(), nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	body := decodeBody(t, w)
	return body["userId"].(string), body["assessmentId"].(string)
}

// prepareReadyReport drives the full flow up to a downloadable report.
func prepareReadyReport(t *testing.T, router *gin.Engine) (userID, assessmentID string) {
	t.Helper()

	userID, assessmentID = startAssessment(t, router)

	w := performRequest(t, router, http.MethodPut,
		fmt.Sprintf("/api/v1/assessments/%s/lifestyle", assessmentID),
		map[string]interface{}{"smoking": true}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = performRequest(t, router, http.MethodPost,
		fmt.Sprintf("/api/v1/assessments/%s/analyze", assessmentID), nil, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = performRequest(t, router, http.MethodPost,
		fmt.Sprintf("/api/v1/assessments/%s/report", assessmentID), nil, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	return userID, assessmentID
}

// adminToken logs in and returns the Authorization header map.
func adminToken(t *testing.T, router *gin.Engine) map[string]string {
	t.Helper()

	w := performRequest(t, router, http.MethodPost, "/api/v1/admin/login",
		map[string]string{"password": testAdminPassword}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	token := decodeBody(t, w)["token"].(string)
	return map[string]string{"Authorization": "Bearer " + token}
}
