package deps

import (
	"github.com/gofiber/fiber/v2"

	"github.com/driftwatch/provision-relay/pkg/logger"
	"github.com/driftwatch/provision-relay/pkg/ratelimit"
)

type App struct {
	Fiber   *fiber.App
	Logger  *logger.CanonicalLogger
	Limiter *ratelimit.Limiter
}
