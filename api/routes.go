package api

import (
	"net/http"

	"bookflow/api/handlers/processes"
	"bookflow/internal/infra"
	"bookflow/internal/process"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterRoutes 注册所有 API 路由
func RegisterRoutes(router *gin.Engine, service *process.ProcessService) {
	router.GET("/healthz", healthz)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	h := processes.NewHandler(service)

	apiV1 := router.Group("/api/v1")
	{
		apiV1.POST("/processes/trigger", h.Trigger)

		jobs := apiV1.Group("/scheduled-jobs")
		{
			jobs.GET("", h.ListJobs)
			jobs.POST("/:id/cancel", h.CancelJob)
			jobs.POST("/:id/run-now", h.RunJobNow)
			jobs.POST("/:id/run-again", h.RunJobAgain)
			jobs.GET("/:id/tracks", h.ListTracks)
		}

		apiV1.GET("/activity-logs", h.ListActivityLogs)
	}
}

// healthz 数据库与 Redis 连通性探针
func healthz(c *gin.Context) {
	status := http.StatusOK
	checks := gin.H{"database": "ok", "redis": "ok"}

	if err := infra.HealthCheck(); err != nil {
		checks["database"] = err.Error()
		status = http.StatusServiceUnavailable
	}
	if err := infra.HealthCheckRedis(); err != nil {
		checks["redis"] = err.Error()
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, checks)
}
