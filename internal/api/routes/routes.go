package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/yoockh/callsplit/internal/api/handlers"
	"github.com/yoockh/callsplit/internal/api/middleware"
)

type Deps struct {
	Health     *handlers.HealthHandler
	Recordings *handlers.RecordingHandler
	WS         *handlers.WSHandler
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	// Public health
	r.GET("/health/audio", d.Health.Audio)
	r.GET("/health/pyannote", d.Health.Pyannote)

	// Protected routes (JWT)
	auth := r.Group("/")
	auth.Use(middleware.JWTAuth())

	auth.GET("/diarization/stats", middleware.RequireAdmin(), d.Health.DiarizationStats)

	auth.POST("/recordings", d.Recordings.Create)
	auth.GET("/recordings/:recording_id", d.Recordings.Get)
	auth.GET("/recordings/:recording_id/artifacts", d.Recordings.Artifacts)

	// WebSocket
	if d.WS != nil {
		auth.GET("/ws/recordings/:recording_id", d.WS.RecordingWS)
	}
}
