package main

import (
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"ogabook-admin/internal/admin"
	"ogabook-admin/internal/auth"
	"ogabook-admin/internal/config"
	"ogabook-admin/internal/engine"
	"ogabook-admin/internal/instrument"
	"ogabook-admin/internal/notify"
	"ogabook-admin/internal/store"
)

const apiVersion = "1.0.0"

// newApp builds the fiber app with every route mounted.
func newApp(cfg *config.Config, db *store.Store) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "OgaBook Admin API",
		BodyLimit:    cfg.Server.BodyLimit,
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
		ErrorHandler: engine.ErrorHandler(cfg.IsDevelopment()),
	})
	app.Use(recover.New(recover.Config{
		EnableStackTrace: cfg.IsDevelopment(),
	}))
	app.Use(logger.New(logger.Config{
		Format: "${time} ${status} ${method} ${path} ${latency}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.Server.CORSOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, " + auth.TokenHeader + ", X-Trace-ID",
	}))

	slow := time.Duration(cfg.Instrumentation.SlowMs) * time.Millisecond
	app.Use(instrument.Middleware(cfg.Instrumentation, instrument.NewInstrumenter(nil, slow)))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"success":   true,
			"message":   "Server is running",
			"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		})
	})
	app.Get("/api", apiIndex)

	// Public auth routes
	authHandler := auth.NewAuthHandler(db, cfg.JWTSecret, cfg.TokenTTL)
	auth.RegisterAuthRoutes(app.Group("/api/auth"), authHandler, cfg.Auth.PublicAccountDeletion)

	// Everything under /api/database requires a token
	database := app.Group("/api/database", auth.AuthMiddleware(cfg.JWTSecret, cfg.Auth.RequiredRole))
	engine.RegisterTableRoutes(database, engine.NewHandler(engine.NewEngine(db, cfg.Query)))
	admin.RegisterAdminRoutes(database, admin.NewHandler(db))
	notify.RegisterRoutes(database, notify.NewHandler(notify.NewDispatcher(db, cfg.Notifications.Concurrency)))

	app.Use(func(c *fiber.Ctx) error {
		if strings.HasPrefix(c.Path(), "/api") {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"success": false,
				"message": "Route not found",
			})
		}
		return fiber.ErrNotFound
	})

	return app
}

func apiIndex(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"success": true,
		"message": "OgaBook Admin API",
		"version": apiVersion,
		"endpoints": fiber.Map{
			"auth": fiber.Map{
				"login":         "POST /api/auth/login",
				"verify":        "GET /api/auth/verify",
				"userEmail":     "GET /api/auth/user/email/:userId",
				"deleteAccount": "POST /api/auth/delete-account",
			},
			"database": fiber.Map{
				"tables":            "GET /api/database/tables",
				"tableStructure":    "GET /api/database/tables/:tableName/structure",
				"tableData":         "GET /api/database/tables/:tableName/data",
				"getRecord":         "GET /api/database/tables/:tableName/data/:id",
				"createRecord":      "POST /api/database/tables/:tableName/data",
				"updateRecord":      "PUT /api/database/tables/:tableName/data/:id",
				"deleteRecord":      "DELETE /api/database/tables/:tableName/data/:id",
				"customQuery":       "POST /api/database/query",
				"appSetting":        "GET|PUT /api/database/app-setting",
				"templates":         "GET /api/database/notification-templates",
				"managerCategories": "GET /api/database/managers/categories",
				"sendNotifications": "POST /api/database/notifications/send",
			},
		},
	})
}
