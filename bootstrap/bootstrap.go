package bootstrap

import (
	"agrinerds-backend/internal/app"
	"agrinerds-backend/internal/config"

	"github.com/gofiber/fiber/v2"
)

// New creates the Fiber app for serverless deploys (the api handler imports
// this package, not internal).
func New() (*fiber.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	fiberApp, _, _, err := app.CreateApp(cfg)
	return fiberApp, err
}
