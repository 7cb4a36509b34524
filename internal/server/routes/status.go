package routes

import (
	"context"

	"github.com/gofiber/fiber/v3"

	"github.com/offline-hub/offline-hub/internal/cache"
	"github.com/offline-hub/offline-hub/internal/lifecycle"
	"github.com/offline-hub/offline-hub/internal/server"
	"github.com/offline-hub/offline-hub/internal/version"
)

// RegisterStatusRoutes 暴露 /-/status 与 /-/manifest 诊断接口，供 SRE 查询
// 生命周期状态、缓存版本清单与预取资源列表。
func RegisterStatusRoutes(app *fiber.App, life *lifecycle.Handler, store cache.Store, origin *server.Origin) {
	if app == nil || life == nil || store == nil || origin == nil {
		return
	}

	app.Get("/-/status", func(c fiber.Ctx) error {
		ctx := c.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		names, err := store.Names(ctx)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "cache_enumerate_failed"})
		}

		caches := make([]cachePayload, 0, len(names))
		for _, name := range names {
			entries, err := store.Count(ctx, name)
			if err != nil {
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "cache_count_failed"})
			}
			caches = append(caches, cachePayload{
				Name:    name,
				Entries: entries,
				Current: name == origin.CacheName,
			})
		}

		return c.JSON(fiber.Map{
			"state":      string(life.State()),
			"cache_name": origin.CacheName,
			"caches":     caches,
			"version":    version.Full(),
		})
	})

	app.Get("/-/manifest", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"cache_name": origin.CacheName,
			"upstream":   origin.URL.String(),
			"assets":     origin.Assets,
		})
	})
}

type cachePayload struct {
	Name    string `json:"name"`
	Entries int    `json:"entries"`
	Current bool   `json:"current"`
}
