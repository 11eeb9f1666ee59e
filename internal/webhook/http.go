package webhook

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/dshills/codemate/internal/telemetry"
)

// DefaultMaxBodyBytes caps inbound webhook bodies.
const DefaultMaxBodyBytes = 5 << 20

// RootMessage is served on GET /.
const RootMessage = "Codemate webhook server running"

// ServerOptions configures the HTTP surface.
type ServerOptions struct {
	// MetricsHandler serves GET /metrics when set.
	MetricsHandler http.Handler
	MaxBodyBytes   int64
}

// NewRouter builds the gin engine serving the webhook endpoint plus health,
// metrics and root status routes.
func NewRouter(d *Dispatcher, opts ServerOptions) *gin.Engine {
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}

	router := gin.New()
	router.Use(gin.Recovery(), otelgin.Middleware(telemetry.ServiceName))

	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": RootMessage})
	})
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if opts.MetricsHandler != nil {
		router.GET("/metrics", gin.WrapH(opts.MetricsHandler))
	}
	router.POST("/webhook", handleWebhook(d, opts.MaxBodyBytes))
	return router
}

func handleWebhook(d *Dispatcher, maxBody int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxBody))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "request body too large"})
				return
			}
			c.JSON(http.StatusBadRequest, gin.H{"error": "unable to read request body"})
			return
		}

		out := d.Dispatch(c.Request.Context(), c.Request.Header, body)
		status, payload := respond(out)
		c.JSON(status, payload)
	}
}

// respond maps an outcome to a status code and a small JSON body. Internal
// error detail never reaches the caller.
func respond(out Outcome) (int, gin.H) {
	switch out.State {
	case StateRejected:
		switch {
		case errors.Is(out.Err, ErrAuthentication):
			return http.StatusUnauthorized, gin.H{"error": ErrAuthentication.Error()}
		case errors.Is(out.Err, ErrUnknownPlatform):
			return http.StatusBadRequest, gin.H{"error": ErrUnknownPlatform.Error()}
		default:
			return http.StatusBadRequest, gin.H{"error": ErrBadPayload.Error()}
		}
	case StateFailed:
		return http.StatusBadGateway, gin.H{"error": "review could not be delivered"}
	case StateReported:
		body := gin.H{"message": out.Message}
		if out.Result != nil {
			body["issues_count"] = len(out.Result.Issues)
			body["score"] = out.Result.Score
		}
		return http.StatusOK, body
	default:
		return http.StatusOK, gin.H{"message": out.Message}
	}
}
