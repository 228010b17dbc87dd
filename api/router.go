package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourusername/trackfetch-go/api/handlers"
	"github.com/yourusername/trackfetch-go/api/middleware"
	"github.com/yourusername/trackfetch-go/internal/app"
	"github.com/yourusername/trackfetch-go/pkg/logger"
)

// RouterDeps carries everything the HTTP layer serves from
type RouterDeps struct {
	Queue        *app.QueueManager
	Jobs         *app.JobManager
	Store        handlers.Pinger
	MultiLogger  *logger.MultiLogger
	Logger       *zap.Logger
	AllowOrigins []string
}

// SetupRouter builds the HTTP router for the job server
func SetupRouter(deps RouterDeps) *gin.Engine {
	return newRouter(deps.Queue, deps.Jobs, deps.Queue, deps.Store, deps.MultiLogger, deps.Logger, deps.AllowOrigins)
}

func newRouter(
	queue handlers.JobQueue,
	tracks handlers.TrackService,
	status handlers.QueueStatus,
	store handlers.Pinger,
	multiLogger *logger.MultiLogger,
	log *zap.Logger,
	allowOrigins []string,
) *gin.Engine {
	if log == nil {
		log = zap.NewNop()
	}

	router := gin.New()

	router.Use(middleware.Logger(log, multiLogger))
	router.Use(middleware.Recovery(log))
	router.Use(middleware.CORS(allowOrigins))

	healthHandler := handlers.NewHealthHandler(status, store)
	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)

	jobHandler := handlers.NewJobHandler(queue, tracks, log)
	router.GET("/get_metadata", jobHandler.GetMetadata)
	router.POST("/download", jobHandler.StartJob)
	router.GET("/progress", jobHandler.Progress)
	router.GET("/download/*file", jobHandler.ServeArtifact)

	jobs := router.Group("/jobs")
	{
		jobs.GET("", jobHandler.ListJobs)
		jobs.GET("/stats", jobHandler.GetStats)
	}

	if multiLogger != nil {
		logHandler := handlers.NewLogHandler(multiLogger.GetLogsDir())
		logs := router.Group("/logs")
		{
			logs.GET("", logHandler.GetCategories)
			logs.GET("/:category", logHandler.GetLogs)
		}
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})

	return router
}
