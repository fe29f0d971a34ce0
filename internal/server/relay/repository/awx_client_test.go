package repository

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/driftwatch/provision-relay/internal/config"
	"github.com/driftwatch/provision-relay/pkg/logger"
)

func testConfig(endpoint string) *config.RelayConfig {
	return &config.RelayConfig{
		AWXEndpoint:    endpoint,
		AWXToken:       "secret-token",
		AWXTemplate:    "provision-host",
		RequestTimeout: 2 * time.Second,
	}
}

func TestLaunchTemplate(t *testing.T) {
	var launchBody map[string]interface{}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer secret-token" {
			t.Errorf("unexpected auth header: %q", got)
		}
		switch {
		case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/api/v2/job_templates/"):
			if r.URL.Query().Get("name") != "provision-host" {
				t.Errorf("unexpected name filter: %q", r.URL.RawQuery)
			}
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"results": []map[string]int{{"id": 7}},
			})
		case r.Method == http.MethodPost && r.URL.Path == "/api/v2/job_templates/7/launch/":
			_ = json.NewDecoder(r.Body).Decode(&launchBody)
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(map[string]int{"id": 4711})
		default:
			t.Errorf("unexpected request: %s %s", r.Method, r.URL)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer ts.Close()

	log, _ := logger.NewLoggerFromEnv("test")
	client := NewAWXClient(testConfig(ts.URL), log)

	result, err := client.Launch(context.Background(), "server01.example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.JobID != 4711 || result.JobType != config.JobKindTemplate {
		t.Fatalf("unexpected result: %+v", result)
	}
	if launchBody["limit"] != "server01.example.com" {
		t.Fatalf("launch payload missing hostname limit: %v", launchBody)
	}
	extra, _ := launchBody["extra_vars"].(map[string]interface{})
	if extra["target_hostname"] != "server01.example.com" {
		t.Fatalf("launch payload missing target_hostname: %v", launchBody)
	}
}

func TestLaunchWorkflow(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/api/v2/workflow_job_templates/"):
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"results": []map[string]int{{"id": 3}},
			})
		case r.Method == http.MethodPost && r.URL.Path == "/api/v2/workflow_job_templates/3/launch/":
			_ = json.NewEncoder(w).Encode(map[string]int{"id": 99})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer ts.Close()

	cfg := testConfig(ts.URL)
	cfg.AWXTemplate = ""
	cfg.AWXWorkflow = "provision-flow"
	log, _ := logger.NewLoggerFromEnv("test")
	client := NewAWXClient(cfg, log)

	result, err := client.Launch(context.Background(), "server01.example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.JobID != 99 || result.JobType != config.JobKindWorkflow {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestLaunchTemplateNotFound(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"results": []map[string]int{}})
	}))
	defer ts.Close()

	log, _ := logger.NewLoggerFromEnv("test")
	client := NewAWXClient(testConfig(ts.URL), log)

	if _, err := client.Launch(context.Background(), "server01.example.com"); err == nil {
		t.Fatalf("expected error for unknown template")
	}
}

func TestLaunchBackendAuthFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer ts.Close()

	log, _ := logger.NewLoggerFromEnv("test")
	client := NewAWXClient(testConfig(ts.URL), log)

	_, err := client.Launch(context.Background(), "server01.example.com")
	if err == nil {
		t.Fatalf("expected error for 401 from backend")
	}
	if strings.Contains(err.Error(), "secret-token") {
		t.Fatalf("error leaks credentials: %v", err)
	}
}

func TestLaunchUnreachableBackend(t *testing.T) {
	log, _ := logger.NewLoggerFromEnv("test")
	// Nothing listens on port 1, so the dial is refused immediately.
	client := NewAWXClient(testConfig("http://127.0.0.1:1"), log)

	_, err := client.Launch(context.Background(), "server01.example.com")
	if err == nil {
		t.Fatalf("expected error for unreachable backend")
	}
	if strings.Contains(err.Error(), "127.0.0.1") {
		t.Fatalf("error leaks internal endpoint: %v", err)
	}
}

func TestLaunchBasicAuthHeaders(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "admin" || pass != "s3cret" {
			t.Errorf("expected basic auth, got ok=%v user=%q", ok, user)
		}
		switch r.Method {
		case http.MethodGet:
			_ = json.NewEncoder(w).Encode(map[string]interface{}{"results": []map[string]int{{"id": 1}}})
		default:
			_ = json.NewEncoder(w).Encode(map[string]int{"id": 2})
		}
	}))
	defer ts.Close()

	cfg := testConfig(ts.URL)
	cfg.AWXToken = ""
	cfg.AWXUsername = "admin"
	cfg.AWXPassword = "s3cret"
	log, _ := logger.NewLoggerFromEnv("test")
	client := NewAWXClient(cfg, log)

	if _, err := client.Launch(context.Background(), "server01.example.com"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
