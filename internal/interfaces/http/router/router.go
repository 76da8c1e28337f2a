// Package router 提供 HTTP 路由配置
package router

import (
	"z-novel-desk/internal/config"
	"z-novel-desk/internal/interfaces/http/handler"
	"z-novel-desk/internal/interfaces/http/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handlers 路由所需的全部处理器
type Handlers struct {
	Health  *handler.HealthHandler
	Project *handler.ProjectHandler
	Chapter *handler.ChapterHandler
	Editor  *handler.EditorHandler
	Assist  *handler.AssistHandler
	Session *handler.SessionHandler
	Export  *handler.ExportHandler
}

// Router HTTP 路由器
type Router struct {
	engine   *gin.Engine
	cfg      *config.Config
	handlers *Handlers
}

// New 创建新的路由器
func New(cfg *config.Config, handlers *Handlers) *Router {
	// 设置 Gin 模式
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	r := &Router{
		engine:   engine,
		cfg:      cfg,
		handlers: handlers,
	}

	r.setupMiddleware()
	r.setupRoutes()

	return r
}

// Engine 返回 Gin Engine
func (r *Router) Engine() *gin.Engine {
	return r.engine
}

// setupMiddleware 配置中间件
func (r *Router) setupMiddleware() {
	// 基础中间件
	r.engine.Use(middleware.Recovery())
	r.engine.Use(middleware.RequestID())

	// CORS 中间件
	r.engine.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins: r.cfg.Security.CORS.AllowedOrigins,
		AllowedMethods: r.cfg.Security.CORS.AllowedMethods,
		AllowedHeaders: r.cfg.Security.CORS.AllowedHeaders,
	}))

	// 追踪中间件
	if r.cfg.Observability.Tracing.Enabled {
		r.engine.Use(middleware.Trace(r.cfg.App.Name))
		r.engine.Use(middleware.TraceContext())
	}

	// 指标中间件
	if r.cfg.Observability.Metrics.Enabled {
		r.engine.Use(middleware.Metrics(
			"/health", "/ready", "/live", r.cfg.Observability.Metrics.Path,
		))
	}
}

// setupRoutes 配置路由
func (r *Router) setupRoutes() {
	h := r.handlers

	// 系统端点
	r.engine.GET("/health", h.Health.Health)
	r.engine.GET("/ready", h.Health.Ready)
	r.engine.GET("/live", h.Health.Live)

	// Prometheus 指标端点
	if r.cfg.Observability.Metrics.Enabled {
		r.engine.GET(r.cfg.Observability.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	v1 := r.engine.Group("/v1")
	{
		project := v1.Group("/projects/:pid")
		{
			project.GET("/settings", h.Project.GetSettings)
			project.PUT("/settings", h.Project.UpdateSettings)
			project.GET("/entities", h.Project.ListEntities)
			project.GET("/usage", h.Project.Usage)

			project.POST("/chat", h.Assist.Chat)
			project.GET("/chat", h.Assist.ChatHistory)
			project.DELETE("/chat", h.Assist.ClearChat)

			project.POST("/export/pdf", h.Export.ExportPDF)
		}

		chapters := project.Group("/chapters")
		{
			chapters.GET("", h.Chapter.ListChapters)
			chapters.POST("", h.Chapter.CreateChapter)
			chapters.PUT("/order", h.Chapter.ReorderChapters)
			chapters.GET("/:cid", h.Chapter.GetChapter)
			chapters.PUT("/:cid", h.Chapter.SaveChapter)
			chapters.POST("/:cid/critique", h.Assist.Critique)
		}

		editor := chapters.Group("/:cid/editor")
		{
			editor.POST("", h.Editor.Open)
			editor.GET("", h.Editor.State)
			editor.PATCH("", h.Editor.Patch)
			editor.POST("/rewrite", h.Editor.Rewrite)
			editor.POST("/save", h.Editor.Save)
			editor.POST("/replace", h.Editor.Replace)
		}

		v1.GET("/sessions/:sid/events", h.Session.Events)
	}
}
