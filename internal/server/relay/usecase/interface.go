package usecase

import (
	"context"

	"github.com/driftwatch/provision-relay/internal/server/relay/dto"
	"github.com/driftwatch/provision-relay/pkg/wrapper"
)

// UseCaseInterface is the dispatcher contract consumed by the HTTP handler.
type UseCaseInterface interface {
	Provision(ctx context.Context, sourceAddr string, req *dto.ProvisionRequest) wrapper.JSONResult
	Health() wrapper.JSONResult
}
