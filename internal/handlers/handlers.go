package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"stepstunner/api/internal/cache"
	"stepstunner/api/internal/config"
	"stepstunner/api/internal/mail"
	"stepstunner/api/internal/middleware"
	"stepstunner/api/internal/models"
	"stepstunner/api/internal/payment"
	"stepstunner/api/internal/repository"
	"stepstunner/api/internal/security"
	"stepstunner/api/internal/service"
	"stepstunner/api/internal/storage"
)

type HandlerSet struct {
	log        zerolog.Logger
	cfg        *config.AppConfig
	auth       *service.AuthService
	orders     *service.OrderService
	catalog    *service.CatalogService
	admin      *service.AdminService
	media      *service.MediaService
	users      middleware.UserSource
	sessions   middleware.SessionSource
	challenges *cache.ChallengeStore
	db         *pgxpool.Pool
	cache      *redis.Client
}

func NewHandlerSet(log zerolog.Logger, db *pgxpool.Pool, cacheClient *redis.Client, store *storage.ObjectStore, cfg *config.AppConfig) HandlerSet {
	userRepo := repository.NewUserRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	productRepo := repository.NewProductRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	activityRepo := repository.NewActivityLogRepository(db)

	challenges := cache.NewChallengeStore(cacheClient)
	mailer := mail.NewDispatcher(cacheClient, cfg.Mail.Stream, cfg.Mail.From, log)
	captcha := security.NewCaptchaVerifier(cfg.Captcha.Secret, cfg.Captcha.VerifyURL)
	gateway := payment.NewEsewaGateway(cfg.Payment)
	recorder := service.NewActivityRecorder(activityRepo, log)

	return HandlerSet{
		log:        log,
		cfg:        cfg,
		auth:       service.NewAuthService(userRepo, sessionRepo, challenges, mailer, captcha, recorder, cfg, log),
		orders:     service.NewOrderService(orderRepo, productRepo, gateway, recorder, log),
		catalog:    service.NewCatalogService(productRepo, recorder, log),
		admin:      service.NewAdminService(userRepo, sessionRepo, activityRepo, recorder, log),
		media:      service.NewMediaService(store, log),
		users:      userRepo,
		sessions:   sessionRepo,
		challenges: challenges,
		db:         db,
		cache:      cacheClient,
	}
}

func (h HandlerSet) Register(router *gin.RouterGroup) {
	router.GET("/healthz", h.Health)

	authRequired := middleware.Auth(h.cfg, h.users, h.sessions, h.log)
	csrfCheck := middleware.CSRF(h.cfg, h.challenges)

	auth := router.Group("/auth")
	auth.Use(h.rateLimit("auth", h.cfg.RateLimit.MaxAuth), middleware.Sanitize())
	auth.POST("/register", h.RegisterUser)
	auth.POST("/login", h.Login)

	authed := router.Group("/auth")
	authed.Use(h.rateLimit("auth", h.cfg.RateLimit.MaxAuth), middleware.Sanitize(), authRequired)
	authed.POST("/logout", h.Logout)
	authed.GET("/me", h.Me)
	authed.POST("/change-password", csrfCheck, h.ChangePassword)
	authed.POST("/avatar", h.UploadAvatar)

	sec := router.Group("/security")
	sec.Use(h.rateLimit("auth", h.cfg.RateLimit.MaxAuth), middleware.Sanitize(), authRequired)
	sec.GET("/csrf", h.IssueCSRFToken)
	sec.POST("/mfa/setup", csrfCheck, h.SetupMFA)
	sec.POST("/mfa/verify", csrfCheck, h.VerifyMFA)
	sec.POST("/mfa/disable", csrfCheck, h.DisableMFA)

	products := router.Group("/products")
	products.Use(h.rateLimit("general", h.cfg.RateLimit.MaxGeneral))
	products.GET("", h.ListProducts)
	products.GET("/:id", h.GetProduct)

	cart := router.Group("/cart")
	cart.Use(h.rateLimit("checkout", h.cfg.RateLimit.MaxCheckout), middleware.Sanitize(), authRequired)
	cart.POST("/checkout", h.Checkout)

	orders := router.Group("/orders")
	orders.Use(h.rateLimit("general", h.cfg.RateLimit.MaxGeneral), middleware.Sanitize(), authRequired)
	orders.GET("", h.ListOrders)
	orders.GET("/:id", h.GetOrder)
	orders.POST("/:id/review", h.SubmitReview)

	admin := router.Group("/admin")
	admin.Use(
		h.rateLimit("general", h.cfg.RateLimit.MaxGeneral),
		middleware.Sanitize(),
		authRequired,
		middleware.RequireRoles(models.UserRoleAdmin),
	)
	admin.GET("/users", h.AdminListUsers)
	admin.PATCH("/users/:id", h.AdminUpdateUser)
	admin.DELETE("/users/:id", h.AdminDeleteUser)
	admin.POST("/products", h.AdminCreateProduct)
	admin.PUT("/products/:id", h.AdminUpdateProduct)
	admin.DELETE("/products/:id", h.AdminDeleteProduct)
	admin.POST("/products/:id/image", h.AdminUploadProductImage)
	admin.GET("/orders", h.AdminListOrders)
	admin.PATCH("/orders/:id/status", h.AdminUpdateOrderStatus)
	admin.GET("/logs", h.AdminListLogs)
}

// rateLimit is a no-op without a cache client so the handler set stays usable
// in tests that run without redis.
func (h HandlerSet) rateLimit(class string, max int) gin.HandlerFunc {
	if h.cache == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return middleware.RateLimit(h.cache, class, max, h.cfg.RateLimit.Window)
}
