package main

import (
	"net/http"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/todo-api/internal/auth"
	"github.com/yourusername/todo-api/internal/config"
	"github.com/yourusername/todo-api/internal/logging"
	"github.com/yourusername/todo-api/internal/store"
	"github.com/yourusername/todo-api/internal/todos"
)

// storeStatus はヘルスチェックが参照する接続状態です。
type storeStatus interface {
	State() store.State
}

type routerDeps struct {
	cfg      *config.Config
	logger   logrus.FieldLogger
	auth     *auth.Handler
	todos    *todos.Handler
	store    storeStatus
	gatherer prometheus.Gatherer
}

// setupRouter はミドルウェアとルーティングを設定した gin.Engine を返します。
func setupRouter(d routerDeps) *gin.Engine {
	router := gin.New()
	router.Use(logging.Middleware(d.logger), gin.Recovery())
	router.Use(cors.New(corsConfig(d.cfg)))

	router.GET("/health", handleHealth(d.store))
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.gatherer, promhttp.HandlerOpts{})))

	api := router.Group("/api")
	{
		authRoutes := api.Group("/auth")
		{
			authRoutes.POST("/signup", d.auth.Signup)
			authRoutes.POST("/login", d.auth.Login)
			authRoutes.POST("/logout", d.auth.Logout)
			authRoutes.GET("/me", d.auth.RequireAuth(), d.auth.Me)
		}

		// Todo は所有者を持たず、認証なしで操作できる
		d.todos.Register(api.Group("/todos"))
	}

	return router
}

func corsConfig(cfg *config.Config) cors.Config {
	corsCfg := cors.DefaultConfig()
	origins := make([]string, 0)
	for _, o := range strings.Split(cfg.CORSAllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	corsCfg.AllowOrigins = origins
	// トークンクッキーを送受信するため
	corsCfg.AllowCredentials = true
	corsCfg.AllowHeaders = []string{
		"Origin",
		"Content-Type",
		"Accept",
		"Authorization",
		logging.RequestIDHeader,
	}
	corsCfg.ExposeHeaders = []string{logging.RequestIDHeader}
	return corsCfg
}

// handleHealth はヘルスチェックエンドポイントのハンドラーです。
func handleHealth(s storeStatus) gin.HandlerFunc {
	return func(c *gin.Context) {
		state := s.State()
		if state == store.StateExhausted {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "degraded",
				"service": "todo-api",
				"store":   state,
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": "todo-api",
			"store":   state,
		})
	}
}
