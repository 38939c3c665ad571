package handlers

import "github.com/gofiber/fiber/v2"

// Live always reports ok while the process serves requests.
func Live(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// Ready reports 503 until check passes.
func Ready(check func() bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if check != nil && !check() {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unavailable"})
		}
		return c.JSON(fiber.Map{"status": "ready"})
	}
}
