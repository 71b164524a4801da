package middleware

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/andybalholm/brotli"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-cbt/internal/config"
	"github.com/stemsi/exstem-cbt/internal/model"
	"github.com/stemsi/exstem-cbt/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testAuth() *service.AuthService {
	return service.NewAuthService(&config.Config{JWTSecret: "mw-secret", JWTExpiry: time.Hour})
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequireStudentJWT(t *testing.T) {
	auth := testAuth()
	r := gin.New()
	r.GET("/paper", RequireStudentJWT(auth), func(c *gin.Context) {
		id, ok := GetIdentity(c)
		require.True(t, ok)
		c.String(http.StatusOK, id.Name)
	})

	studentToken, err := auth.GenerateStudentToken(model.StudentIdentity{Name: "Ana", ClassName: "6A", Token: "MATH1"})
	require.NoError(t, err)
	adminToken, err := auth.GenerateAdminToken()
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/paper", nil)
	assert.Equal(t, http.StatusUnauthorized, serve(r, req).Code)

	req = httptest.NewRequest(http.MethodGet, "/paper", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	assert.Equal(t, http.StatusUnauthorized, serve(r, req).Code)

	req = httptest.NewRequest(http.MethodGet, "/paper", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	assert.Equal(t, http.StatusForbidden, serve(r, req).Code)

	req = httptest.NewRequest(http.MethodGet, "/paper", nil)
	req.Header.Set("Authorization", "bearer "+studentToken)
	w := serve(r, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Ana", w.Body.String())
}

func TestRequireAdminJWT_QueryFallback(t *testing.T) {
	auth := testAuth()
	r := gin.New()
	r.GET("/monitor", RequireAdminJWT(auth), func(c *gin.Context) {
		_, ok := GetIdentity(c)
		assert.False(t, ok)
		c.Status(http.StatusNoContent)
	})

	adminToken, err := auth.GenerateAdminToken()
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/monitor?token="+adminToken, nil)
	assert.Equal(t, http.StatusNoContent, serve(r, req).Code)
}

func TestRateLimiter(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	rl := NewRateLimiter(rdb, "login", 2, time.Minute, zerolog.Nop())
	r := gin.New()
	r.POST("/login", rl.Middleware(), func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 2; i++ {
		w := serve(r, httptest.NewRequest(http.MethodPost, "/login", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}
	w := serve(r, httptest.NewRequest(http.MethodPost, "/login", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
}

func TestRateLimiter_FailsOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })
	mr.Close()

	rl := NewRateLimiter(rdb, "login", 1, time.Minute, zerolog.Nop())
	r := gin.New()
	r.POST("/login", rl.Middleware(), func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, serve(r, httptest.NewRequest(http.MethodPost, "/login", nil)).Code)
	}
}

func TestBrotli(t *testing.T) {
	body := strings.Repeat("soal ujian ", 500)
	r := gin.New()
	r.Use(Brotli())
	r.GET("/big", func(c *gin.Context) { c.String(http.StatusOK, body) })
	r.GET("/small", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	req := httptest.NewRequest(http.MethodGet, "/big", nil)
	req.Header.Set("Accept-Encoding", "gzip, br")
	w := serve(r, req)
	assert.Equal(t, "br", w.Header().Get("Content-Encoding"))
	decoded, err := io.ReadAll(brotli.NewReader(bytes.NewReader(w.Body.Bytes())))
	require.NoError(t, err)
	assert.Equal(t, body, string(decoded))

	req = httptest.NewRequest(http.MethodGet, "/small", nil)
	req.Header.Set("Accept-Encoding", "br")
	w = serve(r, req)
	assert.Empty(t, w.Header().Get("Content-Encoding"))
	assert.Equal(t, "ok", w.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/big", nil)
	w = serve(r, req)
	assert.Empty(t, w.Header().Get("Content-Encoding"))
	assert.Equal(t, body, w.Body.String())
}

func TestNoStore(t *testing.T) {
	r := gin.New()
	r.GET("/", NoStore(), func(c *gin.Context) { c.Status(http.StatusOK) })
	w := serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "no-store, private", w.Header().Get("Cache-Control"))
}

func TestRequestLogger_LevelByStatus(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf).Level(zerolog.DebugLevel)

	r := gin.New()
	r.Use(RequestLogger(log))
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/missing", func(c *gin.Context) { c.Status(http.StatusNotFound) })
	r.GET("/boom", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	for path, level := range map[string]string{
		"/ok":      `"level":"debug"`,
		"/missing": `"level":"warn"`,
		"/boom":    `"level":"error"`,
	} {
		buf.Reset()
		serve(r, httptest.NewRequest(http.MethodGet, path, nil))
		line := buf.String()
		assert.Contains(t, line, level, path)
		assert.Contains(t, line, `"path":"`+path+`"`)
		assert.Contains(t, line, `"component":"http"`)
	}
}
