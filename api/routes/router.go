package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/storelyhq/storely-backend/api/controllers"
	"github.com/storelyhq/storely-backend/api/middleware"
	authsvc "github.com/storelyhq/storely-backend/internal/auth"
	cartsvc "github.com/storelyhq/storely-backend/internal/cart"
	checkoutsvc "github.com/storelyhq/storely-backend/internal/checkout"
	product "github.com/storelyhq/storely-backend/internal/products"
	pkgauth "github.com/storelyhq/storely-backend/pkg/auth"
	"github.com/storelyhq/storely-backend/pkg/config"
	"github.com/storelyhq/storely-backend/pkg/db"
	"github.com/storelyhq/storely-backend/pkg/logger"
	"github.com/storelyhq/storely-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbClient *db.Client,
	redisClient *redis.Client,
	authService authsvc.Service,
	productService product.Service,
	cartService cartsvc.Service,
	checkoutService checkoutsvc.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, dbClient, redisClient, logg))
	})

	r.Route("/api/users/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(registerPolicy, redisClient, logg)).Post("/register", controllers.Register(authService, logg))
		r.With(middleware.AuthRateLimit(loginPolicy, redisClient, logg)).Post("/login", controllers.Login(authService, logg))
		r.Get("/verify", controllers.VerifyEmail(authService, logg))
		r.With(middleware.AuthRateLimit(registerPolicy, redisClient, logg)).Post("/email/resend", controllers.ResendVerification(authService, logg))
		r.With(middleware.AuthRateLimit(registerPolicy, redisClient, logg)).Post("/password-reset/request-link", controllers.RequestPasswordReset(authService, logg))
		r.Post("/password-reset/reset-password", controllers.ResetPassword(authService, logg))
		r.With(middleware.Auth(cfg.JWT, redisClient, logg)).Post("/logout", controllers.Logout(authService, logg))
	})

	r.Route("/api/users/products", func(r chi.Router) {
		r.Get("/", controllers.ProductsList(productService, logg))
		r.Get("/{productID}", controllers.ProductGet(productService, logg))
	})

	r.Route("/api/users/cart", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, redisClient, logg))
		r.Use(middleware.RequireRole(pkgauth.RoleUser, logg))

		r.Post("/", controllers.CartAdd(cartService, logg))
		r.Get("/", controllers.CartGet(cartService, logg))
		r.Delete("/", controllers.CartRemove(cartService, logg))
		r.Post("/checkout", controllers.CartCheckout(checkoutService, logg))
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, redisClient, logg)).Post("/auth/login", controllers.AdminLogin(authService, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, redisClient, logg))
			r.Use(middleware.RequireRole(pkgauth.RoleAdmin, logg))

			r.Route("/categories", func(r chi.Router) {
				r.Get("/", controllers.AdminCategoriesList(productService, logg))
				r.Post("/", controllers.AdminCategoryCreate(productService, logg))
			})

			r.Route("/products", func(r chi.Router) {
				r.Get("/", controllers.AdminProductsList(productService, logg))
				r.Post("/", controllers.AdminProductCreate(productService, logg))
				r.Patch("/{productID}", controllers.AdminProductUpdate(productService, logg))
				r.Delete("/{productID}", controllers.AdminProductDelete(productService, logg))
			})
		})
	})

	return r
}
