package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestSanitizeString(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain text", "great shoes", "great shoes"},
		{"script block", `nice <script>alert("x")</script>shoes`, "nice shoes"},
		{"script with attrs", `<script type="text/javascript">steal()</script>ok`, "ok"},
		{"mixed case script", `<SCRIPT>evil()</SCRIPT>clean`, "clean"},
		{"html tags", "<b>bold</b> claim", "bold claim"},
		{"nested tags", `<div><img src="x" onerror="p()"></div>text`, "text"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := SanitizeString(tc.in); got != tc.want {
				t.Fatalf("SanitizeString(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestSanitizeMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(Sanitize())
	router.POST("/echo", func(c *gin.Context) {
		var body struct {
			Text   string         `json:"text"`
			Nested map[string]any `json:"nested"`
			Items  []string       `json:"items"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, body)
	})

	payload := `{
		"text": "good <script>alert(1)</script>fit",
		"nested": {"note": "<b>hi</b>"},
		"items": ["<i>one</i>", "two"]
	}`

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	body := rec.Body.String()
	if strings.Contains(body, "<script>") || strings.Contains(body, "<b>") || strings.Contains(body, "<i>") {
		t.Fatalf("tags survived sanitization: %s", body)
	}
	if !strings.Contains(body, "good fit") {
		t.Fatalf("text mangled: %s", body)
	}
	if !strings.Contains(body, "two") {
		t.Fatalf("untouched value lost: %s", body)
	}
}

func TestSanitizeMiddlewarePassesMalformedJSON(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(Sanitize())
	router.POST("/echo", func(c *gin.Context) {
		var body map[string]any
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad json"})
			return
		}
		c.JSON(http.StatusOK, body)
	})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(rec, req)

	// The binder, not the middleware, reports the malformed body.
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestSanitizeMiddlewareIgnoresNonJSON(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(Sanitize())
	router.POST("/raw", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/raw", strings.NewReader("<b>html</b>"))
	req.Header.Set("Content-Type", "text/plain")
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}
