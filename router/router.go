package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/Tirth-chokshi/strategy-backend/controllers"
	"github.com/Tirth-chokshi/strategy-backend/metrics"
	"github.com/Tirth-chokshi/strategy-backend/middleware"
	"github.com/Tirth-chokshi/strategy-backend/services"
)

// Deps is everything the HTTP layer needs. Metrics, Limiter and Health are
// optional.
type Deps struct {
	Auth           *services.AuthService
	Strategies     *services.StrategyService
	Options        *services.OptionService
	Logger         *zap.Logger
	Metrics        *metrics.Collector
	Gatherer       prometheus.Gatherer
	Limiter        *middleware.RateLimiter
	Health         controllers.Pinger
	AllowedOrigins []string
	TickInterval   time.Duration
}

func NewRouter(d Deps) *gin.Engine {
	log := d.Logger
	if log == nil {
		log = zap.NewNop()
	}

	origins := d.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}

	r := gin.New()
	r.Use(middleware.Recovery(log))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logging(log))
	if d.Metrics != nil {
		r.Use(d.Metrics.Middleware())
	}
	r.Use(middleware.SecurityHeaders())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept", "X-Requested-With", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	authH := &controllers.AuthHandler{Auth: d.Auth, Logger: log}
	strategyH := &controllers.StrategyHandler{Strategies: d.Strategies, Logger: log}
	optionH := &controllers.OptionHandler{Options: d.Options, Logger: log}
	tradeH := &controllers.TradeHandler{Interval: d.TickInterval, AllowedOrigins: origins, Logger: log}

	requireAuth := middleware.Auth(d.Auth)
	limited := func(c *gin.Context) { c.Next() }
	if d.Limiter != nil {
		limited = d.Limiter.Middleware()
	}

	r.GET("/health", controllers.Health(d.Health))
	if d.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(metrics.Handler(d.Gatherer)))
	}

	users := r.Group("/users")
	{
		users.POST("/register", authH.Register)
		users.POST("/create", authH.Register)
		users.POST("/login", limited, authH.Login)
		users.PUT("/update/:id", requireAuth, authH.UpdateUser)
		users.DELETE("/delete/:id", requireAuth, authH.DeleteUser)
		users.POST("/forgot", limited, authH.ForgotPassword)
		users.POST("/reset", limited, authH.ResetPassword)
	}

	strategies := r.Group("/strategies", requireAuth)
	{
		strategies.POST("/create", strategyH.Create)
		strategies.GET("/get", strategyH.List)
		strategies.GET("/get/user", strategyH.ListByUser)
		strategies.GET("/get/:strategyId", strategyH.Get)
		strategies.PUT("/update/:strategyId", strategyH.Update)
		strategies.DELETE("/delete/:strategyId", strategyH.Delete)

		strategies.POST("/:strategyId/details", strategyH.AddDetails)
		strategies.PUT("/:strategyId/details/:detailId", strategyH.UpdateDetail)
		strategies.DELETE("/:strategyId/details/:detailId", strategyH.RemoveDetail)
		strategies.PATCH("/:strategyId/toggle-status", strategyH.ToggleStatus)
	}

	options := r.Group("/options")
	{
		options.POST("/details", optionH.Details)
		options.POST("/suggestions", optionH.Suggestions)
	}

	trades := r.Group("/trades")
	{
		trades.GET("/live", tradeH.Live)
		trades.GET("/live/ws", tradeH.LiveWS)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Route not found"})
	})

	return r
}
