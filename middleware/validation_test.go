package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestMaxRequestSize(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(MaxRequestSize(1024))
	router.POST("/test", func(c *gin.Context) {
		body, _ := c.GetRawData()
		c.JSON(200, gin.H{"size": len(body)})
	})

	// Small request passes.
	smallBody := strings.Repeat("a", 500)
	w1 := httptest.NewRecorder()
	req1, _ := http.NewRequest("POST", "/test", bytes.NewBufferString(smallBody))
	router.ServeHTTP(w1, req1)
	assert.Equal(t, http.StatusOK, w1.Code)

	// MaxBytesReader truncates rather than erroring on its own, so the
	// status stays OK while the oversized body is cut off.
	largeBody := strings.Repeat("a", 2000)
	w2 := httptest.NewRecorder()
	req2, _ := http.NewRequest("POST", "/test", bytes.NewBufferString(largeBody))
	router.ServeHTTP(w2, req2)
	assert.Equal(t, http.StatusOK, w2.Code)
}

func TestValidateJSON(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(ValidateJSON())
	router.POST("/test", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "ok"})
	})
	router.GET("/test", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "ok"})
	})
	router.OPTIONS("/test", func(c *gin.Context) {
		c.Status(204)
	})

	// POST with JSON content type
	w1 := httptest.NewRecorder()
	req1, _ := http.NewRequest("POST", "/test", bytes.NewBufferString("{}"))
	req1.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w1, req1)
	assert.Equal(t, http.StatusOK, w1.Code)

	// POST without content type
	w2 := httptest.NewRecorder()
	req2, _ := http.NewRequest("POST", "/test", bytes.NewBufferString("{}"))
	router.ServeHTTP(w2, req2)
	assert.Equal(t, http.StatusBadRequest, w2.Code)
	assert.Contains(t, w2.Body.String(), "Content-Type must be application/json")

	// GET request - should skip validation
	w3 := httptest.NewRecorder()
	req3, _ := http.NewRequest("GET", "/test", nil)
	router.ServeHTTP(w3, req3)
	assert.Equal(t, http.StatusOK, w3.Code)

	// OPTIONS request - should skip validation
	w4 := httptest.NewRecorder()
	req4, _ := http.NewRequest("OPTIONS", "/test", nil)
	router.ServeHTTP(w4, req4)
	assert.Equal(t, http.StatusNoContent, w4.Code)
}

func TestValidateJSON_WithCharset(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(ValidateJSON())
	router.POST("/test", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "ok"})
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/test", bytes.NewBufferString("{}"))
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSanitizeInput(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(SanitizeInput())
	router.GET("/test", func(c *gin.Context) {
		query := c.Query("q")
		c.JSON(200, gin.H{"query": query})
	})

	// Null byte removal
	w1 := httptest.NewRecorder()
	req1, _ := http.NewRequest("GET", "/test?q=hello%00world", nil)
	router.ServeHTTP(w1, req1)
	assert.Equal(t, http.StatusOK, w1.Code)
	assert.Contains(t, w1.Body.String(), "helloworld")

	// Whitespace trimming
	w2 := httptest.NewRecorder()
	req2, _ := http.NewRequest("GET", "/test?q=%20%20test%20%20", nil)
	router.ServeHTTP(w2, req2)
	assert.Equal(t, http.StatusOK, w2.Code)
	assert.Contains(t, w2.Body.String(), "test")
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "helloworld", sanitizeString("hello\x00world"))
	assert.Equal(t, "test", sanitizeString("  test  "))
	assert.Equal(t, maxQueryParamLength, len(sanitizeString(strings.Repeat("a", 11000))))
	assert.Equal(t, "helloworld", sanitizeString("  hello\x00world  "))
}
