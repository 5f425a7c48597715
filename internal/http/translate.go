package http

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// TranslateController relays translation requests to the configured upstream
// service. The server only proxies; it never inspects the payload.
type TranslateController struct {
	upstreamURL string
	client      *http.Client
}

// NewTranslateController creates a translate proxy for the upstream URL.
// An empty URL disables the endpoint.
func NewTranslateController(upstreamURL string) *TranslateController {
	return &TranslateController{
		upstreamURL: upstreamURL,
		client:      &http.Client{Timeout: 30 * time.Second},
	}
}

// Translate forwards the request body to the upstream translator and streams
// the response back unchanged.
func (tc *TranslateController) Translate(c *gin.Context) {
	if tc.upstreamURL == "" {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "translation is not configured"})
		return
	}

	req, err := http.NewRequestWithContext(c.Request.Context(), http.MethodPost, tc.upstreamURL, c.Request.Body)
	if err != nil {
		respondInternalError(c, err, "build translate request")
		return
	}
	req.Header.Set("Content-Type", c.GetHeader("Content-Type"))

	resp, err := tc.client.Do(req)
	if err != nil {
		c.JSON(http.StatusBadGateway, ErrorResponse{Error: "translation upstream unreachable"})
		return
	}
	defer resp.Body.Close()

	c.Status(resp.StatusCode)
	c.Header("Content-Type", resp.Header.Get("Content-Type"))
	_, _ = io.Copy(c.Writer, resp.Body)
}
