package admin

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/danmuck/wirebridge/internal/bridge"
	"github.com/danmuck/wirebridge/internal/observability"
	"github.com/danmuck/wirebridge/internal/runtime"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// maxSendBody caps one POST /send payload.
const maxSendBody = 4 << 20

// Boundary is the caller-facing surface the admin router drives.
type Boundary interface {
	Send(buf []byte) error
	Stop() error
	Stats() runtime.Stats
}

type Options struct {
	CorsOrigins []string
	Now         func() time.Time
}

func NewRouter(b Boundary, opts Options) *gin.Engine {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	observability.RegisterMetrics()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(observability.Component("admin")))
	r.Use(observability.RequestMetricsMiddleware())
	if len(opts.CorsOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins: opts.CorsOrigins,
			AllowMethods: []string{"GET", "POST"},
			AllowHeaders: []string{"Origin", "Content-Type"},
			MaxAge:       12 * time.Hour,
		}))
	}

	r.GET("/health", func(c *gin.Context) {
		stats := b.Stats()
		status := "ok"
		if stats.Stopped {
			status = "stopping"
		}
		c.JSON(http.StatusOK, gin.H{
			"status":    status,
			"client_id": stats.ClientID,
			"uptime":    stats.Uptime(opts.Now()).String(),
		})
	})
	r.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, b.Stats())
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.POST("/send", func(c *gin.Context) {
		body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxSendBody))
		if err != nil {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error()})
			return
		}
		switch err := b.Send(body); {
		case err == nil:
			c.JSON(http.StatusAccepted, gin.H{"accepted": len(body)})
		case errors.Is(err, bridge.ErrSendFailed):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
	})
	r.POST("/stop", func(c *gin.Context) {
		if err := b.Stop(); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"status": "stopping"})
	})
	return r
}

// ClientBoundary adapts a runtime client to Boundary.
type ClientBoundary struct {
	Client *runtime.Client
}

func (cb ClientBoundary) Send(buf []byte) error {
	return cb.Client.Bridge().Send(buf)
}

func (cb ClientBoundary) Stop() error {
	return cb.Client.Bridge().Stop()
}

func (cb ClientBoundary) Stats() runtime.Stats {
	return cb.Client.Stats()
}
