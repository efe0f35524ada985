package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

func (s *Server) newRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(serviceName(d.ServiceName)))
	r.Use(requestLogger(s.log))
	if len(d.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     d.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     []string{"Content-Type", "X-Requested-With"},
			AllowCredentials: true,
		}))
	}

	r.GET("/healthcheck", s.healthCheck)

	api := r.Group("/api")
	{
		api.GET("/templates/:type", s.getTemplate)
		api.POST("/generate", s.generateText)
		api.POST("/generate-structured", s.generateStructured)
		api.POST("/generate-structured-bulk", s.generateBulk)
		api.POST("/generate-structured-bulk/stream", s.generateBulkStream)
	}
	return r
}

func serviceName(name string) string {
	if name == "" {
		return "quizgen"
	}
	return name
}
