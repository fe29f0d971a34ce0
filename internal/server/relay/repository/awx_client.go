package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"

	"github.com/driftwatch/provision-relay/internal/config"
	"github.com/driftwatch/provision-relay/pkg/logger"
)

type awxClient struct {
	httpClient *http.Client
	cfg        *config.RelayConfig
	logger     *logger.CanonicalLogger
}

// NewAWXClient creates a JobLauncher backed by the AWX REST API. Each launch
// resolves the configured template or workflow by name and fires it with the
// hostname as the inventory limit.
func NewAWXClient(cfg *config.RelayConfig, log *logger.CanonicalLogger) JobLauncher {
	return &awxClient{
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		cfg:        cfg,
		logger:     log,
	}
}

type listResponse struct {
	Results []struct {
		ID int `json:"id"`
	} `json:"results"`
}

type launchResponse struct {
	ID int `json:"id"`
}

type launchPayload struct {
	Limit     string            `json:"limit"`
	ExtraVars map[string]string `json:"extra_vars"`
}

func (c *awxClient) Launch(ctx context.Context, hostname string) (*JobResult, error) {
	kind := c.cfg.JobKind()

	var base, name string
	switch kind {
	case config.JobKindWorkflow:
		base = c.cfg.AWXEndpoint + "/api/v2/workflow_job_templates/"
		name = c.cfg.AWXWorkflow
	default:
		base = c.cfg.AWXEndpoint + "/api/v2/job_templates/"
		name = c.cfg.AWXTemplate
	}

	id, err := c.lookupID(ctx, base, name, kind)
	if err != nil {
		return nil, err
	}

	jobID, err := c.launch(ctx, fmt.Sprintf("%s%d/launch/", base, id), hostname)
	if err != nil {
		return nil, err
	}

	c.logger.Info("launched backend job",
		logger.String(logger.FieldHostname, hostname),
		logger.Int(logger.FieldJobID, jobID),
		logger.String(logger.FieldJobType, string(kind)),
	)

	return &JobResult{JobID: jobID, JobType: kind}, nil
}

// lookupID resolves a template or workflow to its numeric ID by name.
func (c *awxClient) lookupID(ctx context.Context, base, name string, kind config.JobKind) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		base+"?name="+url.QueryEscape(name), nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create lookup request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, summarize(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("backend %s lookup failed with status %d", kind, resp.StatusCode)
	}

	var list listResponse
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return 0, fmt.Errorf("failed to decode %s lookup response: %w", kind, err)
	}
	if len(list.Results) == 0 {
		return 0, fmt.Errorf("%s %q not found", kind, name)
	}
	return list.Results[0].ID, nil
}

func (c *awxClient) launch(ctx context.Context, launchURL, hostname string) (int, error) {
	body, err := json.Marshal(launchPayload{
		Limit:     hostname,
		ExtraVars: map[string]string{"target_hostname": hostname},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to marshal launch payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, launchURL, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("failed to create launch request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, summarize(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, fmt.Errorf("backend launch failed with status %d", resp.StatusCode)
	}

	var launched launchResponse
	if err := json.NewDecoder(resp.Body).Decode(&launched); err != nil {
		return 0, fmt.Errorf("failed to decode launch response: %w", err)
	}
	return launched.ID, nil
}

func (c *awxClient) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.AWXToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.AWXToken)
		return
	}
	req.SetBasicAuth(c.cfg.AWXUsername, c.cfg.AWXPassword)
}

// summarize maps transport errors to messages safe to surface to anonymous
// callers: no URLs, credentials or dial detail.
func summarize(err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) && uerr.Timeout() {
		return errors.New("backend API timeout")
	}
	if errors.Is(err, os.ErrDeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return errors.New("backend API timeout")
	}
	return errors.New("backend API unreachable")
}
