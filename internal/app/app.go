package app

import (
	"agrinerds-backend/internal/auth"
	"agrinerds-backend/internal/config"
	"agrinerds-backend/internal/database"
	"agrinerds-backend/internal/health"
	"agrinerds-backend/internal/marketplace"
	"agrinerds-backend/internal/middleware"
	"agrinerds-backend/internal/pkg/constants"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// CreateApp builds the Fiber app with all global middleware and route registration.
func CreateApp(cfg *config.Config) (*fiber.App, *gorm.DB, *redis.Client, error) {
	app := fiber.New(fiber.Config{
		DisableStartupMessage:   true,
		ErrorHandler:            middleware.ErrorHandler,
		EnableTrustedProxyCheck: true,
	})

	// CORS (before session)
	app.Use(middleware.CORS(middleware.CORSConfig{
		AllowedSuffix: cfg.FrontendURLEndsWith,
		DevPassword:   cfg.DevPassword,
	}))

	// Session (Redis); need Redis client for health marker too
	sessionCfg := middleware.SessionConfig{
		Secret:            cfg.SessionSecret,
		RedisURL:          cfg.RedisURL,
		AllowCrossSiteDev: cfg.AllowCrossSiteDev,
		IsProduction:      cfg.Env == "production",
	}
	sessionHandler, rdb, err := middleware.Session(sessionCfg)
	if err != nil {
		return nil, nil, nil, err
	}
	app.Use(sessionHandler)

	// Health request marker (after session)
	app.Use(middleware.HealthMarker(rdb))

	// Response formatter (inject helpers)
	app.Use(middleware.ResponseFormatter())

	// Tracing + route logger
	app.Use(middleware.Tracing())
	app.Use(middleware.RouteLogger())

	var db *gorm.DB
	if cfg.DatabaseURL != "" {
		db, err = database.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := database.AutoMigrate(db); err != nil {
			return nil, nil, nil, err
		}
	}

	// Health module
	healthHandlers := &health.Handlers{
		Rdb:            rdb,
		HealthAdminKey: cfg.HealthAdminKey,
	}
	if db != nil {
		if sqlDB, err := db.DB(); err == nil {
			healthHandlers.DB = sqlDB
		}
	}
	app.Get("/", healthHandlers.Root)
	app.Get("/health/json", healthHandlers.JSON)
	app.Get("/health/errors", healthHandlers.Errors)
	app.Get("/health/reset", healthHandlers.Reset)

	// Auth (no auth middleware): POST signup, POST login, GET me, DELETE logout
	var userFinder auth.UserFinder
	if db != nil {
		userFinder = &auth.GormUserFinder{DB: db}
	}
	authHandlers := &auth.Handlers{
		DB:         db,
		UserFinder: userFinder,
		Rdb:        rdb,
		Config:     sessionCfg,
	}
	authGroup := app.Group("/api/v1/auth")
	authGroup.Post("/signup", authHandlers.Signup)
	authGroup.Post("/login", authHandlers.Login)
	authGroup.Get("/me", authHandlers.Me)
	authGroup.Delete("/logout", authHandlers.Logout)

	// Marketplace module (auth required)
	if db != nil {
		mpService := &marketplace.Service{DB: db}
		mpHandlers := &marketplace.Handlers{Service: mpService}
		mpGroup := app.Group("/api/v1/marketplace", middleware.RequireAuth())

		mpGroup.Post("/create-offer", middleware.RequireRole(constants.RoleFarmer), mpHandlers.CreateOffer)
		mpGroup.Post("/create-request", middleware.RequireRole(constants.RoleCompany), mpHandlers.CreateRequest)
		mpGroup.Post("/accept-offer", middleware.RequireRole(constants.RoleCompany), mpHandlers.AcceptOffer)
		mpGroup.Post("/submit-commitment", middleware.RequireRole(constants.RoleFarmer), mpHandlers.SubmitCommitment)
		mpGroup.Post("/accept-commitment", middleware.RequireRole(constants.RoleCompany), mpHandlers.AcceptCommitment)
		mpGroup.Post("/confirm-delivery", mpHandlers.ConfirmDelivery)
		mpGroup.Post("/confirm-payment", mpHandlers.ConfirmPayment)
		mpGroup.Post("/cancel-contract", mpHandlers.CancelContract)

		mpGroup.Get("/get-contract/:contract_id", mpHandlers.GetContract)
		mpGroup.Get("/get-commitments/:request_id", mpHandlers.GetCommitments)
		mpGroup.Get("/get-seller-contracts/:user_id", mpHandlers.GetSellerContracts)
		mpGroup.Get("/get-buyer-contracts/:user_id", mpHandlers.GetBuyerContracts)
		mpGroup.Get("/get-open-offers", mpHandlers.GetOpenOffers)
		mpGroup.Get("/get-open-requests", mpHandlers.GetOpenRequests)
		mpGroup.Get("/get-events/:contract_id", mpHandlers.GetEvents)
	}

	return app, db, rdb, nil
}
