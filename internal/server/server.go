package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/Believetim-cloud/SkyRiff/internal/auth"
	"github.com/Believetim-cloud/SkyRiff/internal/config"
	"github.com/Believetim-cloud/SkyRiff/internal/dyuapi"
	"github.com/Believetim-cloud/SkyRiff/internal/payment"
	"github.com/Believetim-cloud/SkyRiff/internal/subscription"
	"github.com/Believetim-cloud/SkyRiff/internal/task"
	"github.com/Believetim-cloud/SkyRiff/internal/user"
	"github.com/Believetim-cloud/SkyRiff/internal/video"
	"github.com/Believetim-cloud/SkyRiff/internal/wallet"
	"github.com/Believetim-cloud/SkyRiff/internal/withdrawal"
	"github.com/Believetim-cloud/SkyRiff/internal/work"
)

type Server struct {
	router  *gin.Engine
	httpSrv *http.Server
	db      *sqlx.DB
	config  *config.Config
}

// New wires every engine onto one router. All balance mutation flows
// through the single wallet repository each service shares.
func New(db *sqlx.DB, cfg *config.Config, vendor dyuapi.Client, cache *video.CacheService) *Server {
	router := gin.Default()
	router.Use(corsMiddleware())
	router.Use(RequestLoggingMiddleware())
	router.Use(MetricsMiddleware())
	router.Use(RateLimitMiddleware(50, 100))

	ledger := wallet.NewRepository(db)
	tariff := cfg.Tariff

	videoRepo := video.NewRepository(db)
	taskRepo := task.NewRepository(db)

	userService := user.NewService(user.NewRepository(db), ledger, cfg.JWTSecret)
	taskService := task.NewService(taskRepo, videoRepo, cache, ledger, vendor, tariff)
	videoService := video.NewService(videoRepo, ledger, vendor, tariff)
	workService := work.NewService(work.NewRepository(db), videoRepo, taskRepo, ledger, tariff)
	withdrawalService := withdrawal.NewService(withdrawal.NewRepository(db), ledger, tariff)
	paymentService := payment.NewService(payment.NewRepository(db), ledger, tariff)
	subscriptionService := subscription.NewService(subscription.NewRepository(db), paymentService, ledger, tariff)

	userHandler := user.NewHandler(userService)
	walletHandler := wallet.NewHandler(db)
	taskHandler := task.NewHandler(taskService)
	videoHandler := video.NewHandler(videoService)
	workHandler := work.NewHandler(workService)
	withdrawalHandler := withdrawal.NewHandler(withdrawalService)
	paymentHandler := payment.NewHandler(paymentService)
	subscriptionHandler := subscription.NewHandler(subscriptionService)

	public := router.Group("/auth")
	{
		public.POST("/register", userHandler.Register)
		public.POST("/login", userHandler.Login)
		public.POST("/refresh", userHandler.RefreshToken)
	}

	// Payment channel callbacks arrive unauthenticated.
	router.POST("/payments/:id/callback", paymentHandler.Callback)
	router.GET("/products", paymentHandler.ListProducts)
	router.GET("/works/:id", workHandler.Get)
	router.GET("/works/:id/tips", workHandler.ListTips)
	router.Static("/static", cfg.StaticDir)

	authMiddleware := auth.AuthMiddleware(cfg.JWTSecret)
	protected := router.Group("/")
	protected.Use(authMiddleware)
	{
		protected.GET("/me", userHandler.GetMe)

		protected.GET("/wallet", walletHandler.GetBalances)
		protected.GET("/wallet/credits/ledgers", walletHandler.ListCreditLedgers)
		protected.GET("/wallet/coins/ledgers", walletHandler.ListCoinLedgers)
		protected.GET("/wallet/commission/ledgers", walletHandler.ListCommissionLedgers)

		protected.POST("/tasks", taskHandler.Create)
		protected.GET("/tasks", taskHandler.List)
		protected.GET("/tasks/:id", taskHandler.Get)

		protected.GET("/videos", videoHandler.List)
		protected.GET("/videos/:id", videoHandler.Get)
		protected.POST("/videos/:id/download", videoHandler.DownloadNoWatermark)

		protected.POST("/works", workHandler.Publish)
		protected.GET("/works", workHandler.ListMine)
		protected.POST("/works/:id/tip", workHandler.Tip)
		protected.POST("/works/:id/unlock_prompt", workHandler.UnlockPrompt)

		protected.POST("/withdrawals", withdrawalHandler.Create)
		protected.GET("/withdrawals", withdrawalHandler.ListMine)
		protected.GET("/withdrawals/:id", withdrawalHandler.Get)
		protected.POST("/withdrawals/:id/cancel", withdrawalHandler.Cancel)

		protected.POST("/payments", paymentHandler.Create)
		protected.GET("/payments", paymentHandler.ListMine)
		protected.GET("/payments/:id", paymentHandler.Get)

		protected.POST("/subscriptions/buy", subscriptionHandler.Buy)
		protected.GET("/subscriptions/me", subscriptionHandler.Me)
		protected.POST("/subscriptions/claim_daily", subscriptionHandler.ClaimDaily)
	}

	admin := router.Group("/admin")
	admin.Use(authMiddleware, auth.RequireRole("admin"))
	{
		admin.GET("/withdrawals", withdrawalHandler.ListApplied)
		admin.POST("/withdrawals/:id/process", withdrawalHandler.Process)
	}

	router.GET("/health", Health)
	router.GET("/metrics", Metrics())

	return &Server{
		router: router,
		db:     db,
		config: cfg,
	}
}

func (s *Server) Start(port string) error {
	s.httpSrv = &http.Server{
		Addr:    ":" + port,
		Handler: s.router,
	}
	return s.httpSrv.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

// Router exposes the underlying engine for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
