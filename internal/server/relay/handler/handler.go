package handler

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/driftwatch/provision-relay/internal/config"
	"github.com/driftwatch/provision-relay/internal/server/relay/dto"
	"github.com/driftwatch/provision-relay/internal/server/relay/repository"
	"github.com/driftwatch/provision-relay/internal/server/relay/usecase"
	"github.com/driftwatch/provision-relay/pkg/deps"
	"github.com/driftwatch/provision-relay/pkg/logger"
	"github.com/driftwatch/provision-relay/pkg/validator"
)

type Handler struct {
	Logger  *logger.CanonicalLogger
	UseCase usecase.UseCaseInterface
	Config  *config.RelayConfig
}

func NewHandler(d deps.App, cfg *config.RelayConfig, launcher repository.JobLauncher) *Handler {
	uc := usecase.NewUseCase(usecase.UseCase{
		Limiter:  d.Limiter,
		Launcher: launcher,
		Config:   cfg,
		Logger:   d.Logger,
	})

	h := &Handler{
		Logger:  d.Logger,
		UseCase: uc,
		Config:  cfg,
	}

	// Both endpoints are anonymous by design; abuse control is the rate
	// limiter's job, not an auth layer's.
	d.Fiber.Get("/health", h.health)
	d.Fiber.Post("/provision", h.provision)

	return h
}

// health godoc
// @Summary      Health check
// @Description  Liveness probe for the relay service
// @Tags         health
// @Produce      json
// @Success      200 {object} dto.HealthResponse
// @Router       /health [get]
func (h *Handler) health(c *fiber.Ctx) error {
	res := h.UseCase.Health()
	return c.Status(res.Code).JSON(res.Body)
}

// provision godoc
// @Summary      Request host provisioning
// @Description  Validates the hostname, applies per-source and global rate limits, and triggers the configured backend job limited to that host
// @Tags         provision
// @Accept       json
// @Produce      json
// @Param        request body dto.ProvisionRequest true "Callback payload"
// @Success      200 {object} dto.ProvisionResponse "Job launched"
// @Failure      400 {object} dto.InputError "Missing or invalid hostname"
// @Failure      429 {object} dto.RateLimitError "Rate limit exceeded"
// @Failure      500 {object} dto.ProvisionError "Backend launch failed"
// @Router       /provision [post]
func (h *Handler) provision(c *fiber.Ctx) error {
	logger.AddToContext(c.UserContext(), logger.String(logger.FieldOperation, "provision"))

	req := new(dto.ProvisionRequest)
	if err := c.BodyParser(req); err != nil {
		// An unparseable body is indistinguishable from a missing hostname to
		// the caller; the pipeline handles the empty value.
		logger.AddToContext(c.UserContext(), zap.Error(err))
		req = &dto.ProvisionRequest{}
	}
	if err := validator.ValidateStruct(req); err != nil {
		logger.AddToContext(c.UserContext(), zap.Error(err))
		req.Hostname = ""
	}

	res := h.UseCase.Provision(c.UserContext(), c.IP(), req)
	return c.Status(res.Code).JSON(res.Body)
}
