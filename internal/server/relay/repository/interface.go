package repository

import (
	"context"

	"github.com/driftwatch/provision-relay/internal/config"
)

// JobResult describes a successfully launched backend job.
type JobResult struct {
	JobID   int
	JobType config.JobKind
}

// JobLauncher launches the configured provisioning job limited to a single
// validated hostname. Implementations perform at most one launch per call;
// retry policy belongs to the calling agent, never to the relay.
type JobLauncher interface {
	Launch(ctx context.Context, hostname string) (*JobResult, error)
}
