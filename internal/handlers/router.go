package handlers

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Dependencies wires the HTTP layer to the rest of the backend. Only
// Classifier is required; the live endpoints are mounted when their
// dependency is set.
type Dependencies struct {
	Classifier Classifier
	Hub        *Hub
	Sessions   SessionLookup
	History    RepHistory
}

// NewRouter builds the gin engine with all routes
func NewRouter(deps Dependencies) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(gin.Logger())
	r.Use(gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	classify := NewClassifyHandler(deps.Classifier)
	r.POST("/classify_window", classify.ClassifyWindow)

	status := NewStatusHandler(deps.Classifier, deps.Sessions, deps.History)
	api := r.Group("/api/v1")
	{
		api.GET("/health", status.Health)
		api.GET("/devices/:device_id/session", status.Session)
		api.GET("/devices/:device_id/reps", status.RecentReps)
	}

	if deps.Hub != nil {
		r.GET("/ws/reps", deps.Hub.ServeWS)
	}

	return r
}
