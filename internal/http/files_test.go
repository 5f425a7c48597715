package http

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"readersync/internal/auth"
	"readersync/internal/clock"
	"readersync/internal/database/documents"
	"readersync/internal/database/users"
	"readersync/internal/entities"
)

func setupTestRouter(t *testing.T) (*gin.Engine, func()) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dbPath := "./test_http_" + t.Name() + ".db"
	db, err := gorm.Open(sqlite.Open(dbPath+"?_busy_timeout=5000"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&entities.Document{},
		&entities.Highlight{},
		&entities.Tombstone{},
		&entities.User{},
		&entities.ResetToken{},
	))

	clk := clock.UTC{}
	issuer := auth.NewTokenIssuer([]byte("test-secret"), time.Hour, clk)
	service := auth.NewService(users.NewRepository(db, clk), issuer, auth.LogMailer{}, time.Hour, clk)

	router := NewRouter(RouterConfig{
		Documents:      documents.NewRepository(db, clk),
		AuthController: auth.NewController(service),
		AuthMiddleware: auth.NewMiddleware(issuer),
		AllowedOrigins: []string{"http://localhost:8080"},
	})

	cleanup := func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
		os.Remove(dbPath)
	}
	return router, cleanup
}

func uploadRequest(t *testing.T, fields map[string]string, content []byte) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for key, value := range fields {
		require.NoError(t, writer.WriteField(key, value))
	}
	part, err := writer.CreateFormFile("file", "upload.bin")
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/files", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func doJSON(router *gin.Engine, method, path string, payload any) *httptest.ResponseRecorder {
	var body io.Reader
	if payload != nil {
		b, _ := json.Marshal(payload)
		body = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var got map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	return got
}

func TestPing(t *testing.T) {
	router, cleanup := setupTestRouter(t)
	defer cleanup()

	w := doJSON(router, http.MethodGet, "/api/ping", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decodeBody(t, w)["status"])
}

func TestFilesLifecycle(t *testing.T) {
	router, cleanup := setupTestRouter(t)
	defer cleanup()

	fileID := "file::book.pdf::2048::1700000000"

	// Upload.
	w := httptest.NewRecorder()
	router.ServeHTTP(w, uploadRequest(t, map[string]string{
		"file_id": fileID, "title": "Book", "format": "pdf", "voice": "alloy",
	}, []byte("pdf bytes")))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	// Listed.
	w = doJSON(router, http.MethodGet, "/api/files", nil)
	require.Equal(t, http.StatusOK, w.Code)
	files := decodeBody(t, w)["files"].([]any)
	require.Len(t, files, 1)
	entry := files[0].(map[string]any)
	assert.Equal(t, fileID, entry["filename"])
	assert.Equal(t, "alloy", entry["voice"])

	// Metadata.
	w = doJSON(router, http.MethodGet, "/api/files/"+fileID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	meta := decodeBody(t, w)
	assert.Equal(t, true, meta["exists"])
	assert.Equal(t, "Book", meta["title"])

	// Download streams the blob under the canonical name.
	w = doJSON(router, http.MethodGet, "/api/files/"+fileID+"/download", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pdf bytes", w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Disposition"), `"book.pdf"`)

	// Position update shows up in metadata.
	w = doJSON(router, http.MethodPut, "/api/files/"+fileID+"/position", gin.H{"position": 42.5})
	require.Equal(t, http.StatusOK, w.Code)
	w = doJSON(router, http.MethodGet, "/api/files/"+fileID, nil)
	assert.Equal(t, "42.5", decodeBody(t, w)["reading_position"])

	// Highlights round-trip; the invalid item is dropped.
	w = doJSON(router, http.MethodPut, "/api/files/"+fileID+"/highlights", gin.H{
		"highlights": []any{
			gin.H{"sentenceIndex": 3, "color": "#111", "text": "a"},
			gin.H{"sentenceIndex": "x"},
		},
	})
	require.Equal(t, http.StatusOK, w.Code)
	w = doJSON(router, http.MethodGet, "/api/files/"+fileID+"/highlights", nil)
	highlights := decodeBody(t, w)["highlights"].([]any)
	require.Len(t, highlights, 1)
	assert.Equal(t, float64(3), highlights[0].(map[string]any)["sentence_index"])

	// Delete, then the listing carries a tombstone entry.
	w = doJSON(router, http.MethodDelete, "/api/files/"+fileID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(router, http.MethodGet, "/api/files", nil)
	files = decodeBody(t, w)["files"].([]any)
	require.Len(t, files, 1)
	entry = files[0].(map[string]any)
	assert.Equal(t, true, entry["deleted"])
	assert.Equal(t, "book.pdf", entry["filename"])

	// Re-upload of any variant is refused.
	w = httptest.NewRecorder()
	router.ServeHTTP(w, uploadRequest(t, map[string]string{
		"file_id": "file::book.pdf::999::42", "title": "Book", "format": "pdf",
	}, []byte("again")))
	assert.Equal(t, http.StatusGone, w.Code)
}

func TestUploadValidation(t *testing.T) {
	router, cleanup := setupTestRouter(t)
	defer cleanup()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, uploadRequest(t, map[string]string{
		"title": "Book", "format": "pdf",
	}, []byte("x")))
	assert.Equal(t, http.StatusBadRequest, w.Code, "file_id is required")

	w = httptest.NewRecorder()
	router.ServeHTTP(w, uploadRequest(t, map[string]string{
		"file_id": "file::a.txt::1::1", "title": "A", "format": "txt",
	}, []byte("x")))
	assert.Equal(t, http.StatusBadRequest, w.Code, "only pdf and epub are accepted")
}

func TestGetFile_Unknown(t *testing.T) {
	router, cleanup := setupTestRouter(t)
	defer cleanup()

	w := doJSON(router, http.MethodGet, "/api/files/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	got := decodeBody(t, w)
	assert.Equal(t, false, got["exists"])
	assert.Equal(t, "nope", got["file_id"])
}

func TestGetHighlights_UnknownFileIsEmptyList(t *testing.T) {
	router, cleanup := setupTestRouter(t)
	defer cleanup()

	w := doJSON(router, http.MethodGet, "/api/files/nope/highlights", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decodeBody(t, w)["highlights"])
}

func TestPutHighlights_RequiresList(t *testing.T) {
	router, cleanup := setupTestRouter(t)
	defer cleanup()

	w := doJSON(router, http.MethodPut, "/api/files/x/highlights", gin.H{"highlights": "nope"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(router, http.MethodPut, "/api/files/x/highlights", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdatePosition_Validation(t *testing.T) {
	router, cleanup := setupTestRouter(t)
	defer cleanup()

	w := doJSON(router, http.MethodPut, "/api/files/x/position", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(router, http.MethodPut, "/api/files/x/position", gin.H{"position": "7"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAuthScopesFiles(t *testing.T) {
	router, cleanup := setupTestRouter(t)
	defer cleanup()

	// Legacy upload, no credentials.
	w := httptest.NewRecorder()
	router.ServeHTTP(w, uploadRequest(t, map[string]string{
		"file_id": "file::legacy.pdf::1::1", "title": "Legacy", "format": "pdf",
	}, []byte("x")))
	require.Equal(t, http.StatusCreated, w.Code)

	// Sign up and upload under the account.
	w = doJSON(router, http.MethodPost, "/api/auth/signup", gin.H{
		"email": "a@b.com", "password": "secret-pass",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	token := decodeBody(t, w)["token"].(string)
	require.NotEmpty(t, token)

	req := uploadRequest(t, map[string]string{
		"file_id": "file::mine.pdf::1::1", "title": "Mine", "format": "pdf",
	}, []byte("y"))
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code)

	// The account only sees its own document, legacy only the legacy one.
	req = httptest.NewRequest(http.MethodGet, "/api/files", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	files := decodeBody(t, w)["files"].([]any)
	require.Len(t, files, 1)
	assert.Equal(t, "file::mine.pdf::1::1", files[0].(map[string]any)["filename"])

	w = doJSON(router, http.MethodGet, "/api/files", nil)
	files = decodeBody(t, w)["files"].([]any)
	require.Len(t, files, 1)
	assert.Equal(t, "file::legacy.pdf::1::1", files[0].(map[string]any)["filename"])
}

func TestAuthMe(t *testing.T) {
	router, cleanup := setupTestRouter(t)
	defer cleanup()

	w := doJSON(router, http.MethodPost, "/api/auth/signup", gin.H{
		"email": "a@b.com", "password": "secret-pass",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	token := decodeBody(t, w)["token"].(string)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w2 := httptest.NewRecorder()
	router.ServeHTTP(w2, req)
	assert.Equal(t, http.StatusOK, w2.Code)
	assert.Equal(t, "a@b.com", decodeBody(t, w2)["email"])

	// Without a token /me is refused.
	w3 := doJSON(router, http.MethodGet, "/api/auth/me", nil)
	assert.Equal(t, http.StatusUnauthorized, w3.Code)
}

func TestCORSPreflight(t *testing.T) {
	router, cleanup := setupTestRouter(t)
	defer cleanup()

	req := httptest.NewRequest(http.MethodOptions, "/api/files", nil)
	req.Header.Set("Origin", "http://localhost:8080")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "http://localhost:8080", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "Authorization")
}

func TestTranslate_Unconfigured(t *testing.T) {
	router, cleanup := setupTestRouter(t)
	defer cleanup()

	w := doJSON(router, http.MethodPost, "/api/translate", gin.H{"text": "hola"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestTranslate_RelaysUpstream(t *testing.T) {
	gin.SetMode(gin.TestMode)
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"echo":` + string(body) + `}`))
	}))
	defer upstream.Close()

	router := gin.New()
	router.POST("/api/translate", NewTranslateController(upstream.URL).Translate)

	w := doJSON(router, http.MethodPost, "/api/translate", gin.H{"text": "hola"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"echo":{"text":"hola"}}`, w.Body.String())
}
