package health

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"agrinerds-backend/internal/marketplace"
	"agrinerds-backend/internal/middleware"
	"agrinerds-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// Handlers holds dependencies for health endpoints.
type Handlers struct {
	Rdb            *redis.Client
	DB             DBPinger
	HealthAdminKey string
}

// Root GET / — service name and status.
func (h *Handlers) Root(c *fiber.Ctx) error {
	result := CollectHealth(context.Background(), h.Rdb, h.DB)
	return c.JSON(fiber.Map{
		"name":    marketplace.Name,
		"service": "agrinerds-api",
		"status":  result.Status,
	})
}

// JSON GET /health/json — full health snapshot.
func (h *Handlers) JSON(c *fiber.Ctx) error {
	result := CollectHealth(context.Background(), h.Rdb, h.DB)
	return c.JSON(fiber.Map{
		"service":      "agrinerds-api",
		"status":       result.Status,
		"runtime":      result.Runtime,
		"traffic":      result.Traffic,
		"dependencies": result.Dependencies,
	})
}

// Errors GET /health/errors — last 50 recorded 5xx entries, newest first.
func (h *Handlers) Errors(c *fiber.Ctx) error {
	entries := []map[string]interface{}{}
	if h.Rdb != nil {
		raw, err := h.Rdb.LRange(context.Background(), middleware.KeyErrorLog, 0, 49).Result()
		if err == nil {
			for _, item := range raw {
				var entry map[string]interface{}
				if json.Unmarshal([]byte(item), &entry) == nil {
					entries = append(entries, entry)
				}
			}
		}
	}
	return c.JSON(entries)
}

// Reset GET /health/reset — clears health stats in Redis. Requires query key=HEALTH_ADMIN_KEY.
func (h *Handlers) Reset(c *fiber.Ctx) error {
	key := c.Query("key")
	if key == "" || key != h.HealthAdminKey {
		return response.Error(c, "Unauthorized", fiber.StatusForbidden, nil)
	}
	ctx := context.Background()
	keys := []string{middleware.KeyReqTotal, middleware.KeyReqErrors, middleware.KeyResTime, middleware.KeyResCount, middleware.KeyStartTime, middleware.KeyLastReq, middleware.KeyErrorLog}
	if err := h.Rdb.Del(ctx, keys...).Err(); err != nil {
		return response.Error(c, err.Error(), fiber.StatusInternalServerError, nil)
	}
	if err := h.Rdb.Set(ctx, middleware.KeyStartTime, strconv.FormatInt(time.Now().UnixMilli(), 10), 0).Err(); err != nil {
		return response.Error(c, err.Error(), fiber.StatusInternalServerError, nil)
	}
	return response.Success(c, "Stats reset successfully", fiber.Map{"success": true}, nil)
}
