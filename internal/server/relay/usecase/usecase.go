package usecase

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/driftwatch/provision-relay/internal/config"
	"github.com/driftwatch/provision-relay/internal/hostname"
	"github.com/driftwatch/provision-relay/internal/server/relay/dto"
	"github.com/driftwatch/provision-relay/internal/server/relay/repository"
	"github.com/driftwatch/provision-relay/pkg/logger"
	"github.com/driftwatch/provision-relay/pkg/ratelimit"
	"github.com/driftwatch/provision-relay/pkg/wrapper"
)

const (
	msgHostnameRequired = "hostname parameter is required"
	msgInvalidHostname  = "Invalid hostname format"
	msgRateLimited      = "Rate limit exceeded"
	msgRetryLater       = "Too many requests. Please try again later."
)

// UseCase is the relay dispatcher: it runs the admission pipeline for one
// inbound callback and shapes the client-facing response. It holds no state
// between requests beyond the shared rate-limit store.
type UseCase struct {
	Limiter  *ratelimit.Limiter
	Launcher repository.JobLauncher
	Config   *config.RelayConfig
	Logger   *logger.CanonicalLogger
}

func NewUseCase(uc UseCase) *UseCase {
	return &uc
}

// Provision handles one callback, short-circuiting on the first failure:
// hostname presence, rate limit, sanitation, backend launch. Exactly one
// rate-limit admission is consumed per admitted call and at most one backend
// launch is attempted; the relay never retries the backend itself.
func (uc *UseCase) Provision(ctx context.Context, sourceAddr string, req *dto.ProvisionRequest) wrapper.JSONResult {
	if req == nil || req.Hostname == "" {
		return wrapper.Response(http.StatusBadRequest, dto.InputError{Error: msgHostnameRequired})
	}

	decision, err := uc.Limiter.Admit(ctx, sourceAddr)
	if err != nil {
		// The counting store is down; refusing admission is the safe side of
		// an anonymous endpoint.
		uc.Logger.WithError(err).Error("rate limit store unavailable")
		return wrapper.Response(http.StatusTooManyRequests, dto.RateLimitError{
			Error:      msgRateLimited,
			Message:    msgRetryLater,
			RetryAfter: 60,
		})
	}
	if !decision.Allowed {
		retryAfter := ratelimit.RetryAfterSeconds(decision)
		logger.AddToContext(ctx, logger.Int(logger.FieldRetryAfter, retryAfter))
		return wrapper.Response(http.StatusTooManyRequests, dto.RateLimitError{
			Error:      msgRateLimited,
			Message:    msgRetryLater,
			RetryAfter: retryAfter,
		})
	}

	sanitized, err := hostname.Sanitize(req.Hostname, uc.Config.MinHostnameLength, uc.Config.MaxHostnameLength)
	if err != nil {
		// Rejection reasons stay in the log; callers only see the generic
		// message.
		logger.AddToContext(ctx, zap.Error(err))
		return wrapper.Response(http.StatusBadRequest, dto.InputError{Error: msgInvalidHostname})
	}
	logger.AddToContext(ctx, logger.String(logger.FieldHostname, sanitized))

	result, err := uc.Launcher.Launch(ctx, sanitized)
	if err != nil {
		logger.AddToContext(ctx, zap.Error(err), logger.Bool(logger.FieldSuccess, false))
		return wrapper.Response(http.StatusInternalServerError, dto.ProvisionError{
			Success:  false,
			Hostname: sanitized,
			Error:    err.Error(),
		})
	}

	logger.AddToContext(ctx,
		logger.Bool(logger.FieldSuccess, true),
		logger.Int(logger.FieldJobID, result.JobID),
		logger.String(logger.FieldJobType, string(result.JobType)),
	)

	return wrapper.Response(http.StatusOK, dto.ProvisionResponse{
		Success:  true,
		Hostname: sanitized,
		JobID:    result.JobID,
		JobType:  string(result.JobType),
		Message:  fmt.Sprintf("Job triggered successfully for %s", sanitized),
	})
}

func (uc *UseCase) Health() wrapper.JSONResult {
	return wrapper.Response(http.StatusOK, dto.HealthResponse{
		Status:    "healthy",
		Timestamp: float64(time.Now().UnixNano()) / 1e9,
	})
}
