package callback

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/driftwatch/provision-relay/pkg/logger"
)

// Outcome classifies one callback cycle for the scheduler.
type Outcome int

const (
	// Success: the relay accepted the callback and launched a job.
	Success Outcome = iota
	// SoftFailure: the relay rate-limited the callback. The cycle counts as
	// complete and the next scheduled cycle tries again; a host whose offset
	// persistently collides with heavy load can starve this way, which is a
	// known fairness gap in the protocol, not something the agent corrects.
	SoftFailure
	// HardFailure: anything else (bad hostname, relay error, network error).
	// The daemon does not exit; the next scheduled cycle is the retry.
	HardFailure
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case SoftFailure:
		return "soft_failure"
	case HardFailure:
		return "hard_failure"
	}
	return "unknown"
}

// Result is the classified outcome of one callback.
type Result struct {
	Outcome Outcome
	Status  int
	JobID   int
	Err     error
}

// Client performs the HTTP callback against the relay's /provision endpoint.
type Client struct {
	httpClient *http.Client
	relayURL   string
	logger     *logger.CanonicalLogger
}

func NewClient(relayURL string, timeout time.Duration, log *logger.CanonicalLogger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		relayURL:   strings.TrimRight(relayURL, "/"),
		logger:     log.Component("callback"),
	}
}

type provisionBody struct {
	Hostname string `json:"hostname"`
}

type provisionReply struct {
	Success    bool   `json:"success"`
	JobID      int    `json:"job_id"`
	JobType    string `json:"job_type"`
	Error      string `json:"error"`
	RetryAfter int    `json:"retry_after"`
}

// Do posts the hostname to the relay and classifies the response. There is no
// in-cycle retry for any class: the retry mechanism is the next scheduled
// cycle.
func (c *Client) Do(ctx context.Context, hostname string) Result {
	body, err := json.Marshal(provisionBody{Hostname: hostname})
	if err != nil {
		return Result{Outcome: HardFailure, Err: fmt.Errorf("failed to marshal callback body: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.relayURL+"/provision", bytes.NewReader(body))
	if err != nil {
		return Result{Outcome: HardFailure, Err: fmt.Errorf("failed to create callback request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Timeouts, refused connections and DNS failures all land here.
		c.logger.WithError(err).Error("callback transport error")
		return Result{Outcome: HardFailure, Err: fmt.Errorf("callback request failed: %w", err)}
	}
	defer resp.Body.Close()

	return c.classify(resp, hostname)
}

func (c *Client) classify(resp *http.Response, hostname string) Result {
	var reply provisionReply
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	_ = json.Unmarshal(raw, &reply)

	switch resp.StatusCode {
	case http.StatusOK:
		c.logger.Info("provisioning triggered",
			logger.String(logger.FieldHostname, hostname),
			logger.Int(logger.FieldJobID, reply.JobID),
			logger.String(logger.FieldJobType, reply.JobType),
		)
		return Result{Outcome: Success, Status: resp.StatusCode, JobID: reply.JobID}

	case http.StatusTooManyRequests:
		c.logger.Warn("relay rate-limited the callback, will retry next cycle",
			logger.String(logger.FieldHostname, hostname),
			logger.Int(logger.FieldRetryAfter, reply.RetryAfter),
		)
		return Result{Outcome: SoftFailure, Status: resp.StatusCode}

	case http.StatusBadRequest:
		// A rejected hostname is a local configuration problem; retrying the
		// same value cannot succeed.
		err := fmt.Errorf("relay rejected hostname: %s", reply.Error)
		c.logger.WithError(err).Error("callback rejected",
			logger.String(logger.FieldHostname, hostname),
		)
		return Result{Outcome: HardFailure, Status: resp.StatusCode, Err: err}

	case http.StatusInternalServerError:
		err := fmt.Errorf("relay backend failure: %s", reply.Error)
		c.logger.WithError(err).Error("callback failed on relay side",
			logger.String(logger.FieldHostname, hostname),
		)
		return Result{Outcome: HardFailure, Status: resp.StatusCode, Err: err}

	default:
		err := fmt.Errorf("unexpected relay response %d: %s", resp.StatusCode, string(raw))
		c.logger.WithError(err).Error("unexpected callback response")
		return Result{Outcome: HardFailure, Status: resp.StatusCode, Err: err}
	}
}
