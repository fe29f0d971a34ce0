package callback

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/driftwatch/provision-relay/pkg/logger"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	log, err := logger.NewLoggerFromEnv("test")
	if err != nil {
		t.Fatalf("failed to build logger: %v", err)
	}
	return NewClient(ts.URL, 2*time.Second, log)
}

func TestDoClassifiesSuccess(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/provision" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["hostname"] != "server01.example.com" {
			t.Errorf("unexpected body: %v", body)
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true, "hostname": body["hostname"], "job_id": 4711, "job_type": "template",
		})
	})

	res := client.Do(context.Background(), "server01.example.com")
	if res.Outcome != Success {
		t.Fatalf("expected Success, got %s (%v)", res.Outcome, res.Err)
	}
	if res.JobID != 4711 {
		t.Fatalf("expected job id 4711, got %d", res.JobID)
	}
}

func TestDoClassifiesRateLimitAsSoftFailure(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"error": "Rate limit exceeded", "retry_after": 120,
		})
	})

	res := client.Do(context.Background(), "server01.example.com")
	if res.Outcome != SoftFailure {
		t.Fatalf("expected SoftFailure, got %s", res.Outcome)
	}
	if res.Err != nil {
		t.Fatalf("soft failure should not carry an error, got %v", res.Err)
	}
}

func TestDoClassifiesBadRequestAsHardFailure(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "Invalid hostname format"})
	})

	res := client.Do(context.Background(), "bad..host")
	if res.Outcome != HardFailure {
		t.Fatalf("expected HardFailure, got %s", res.Outcome)
	}
	if res.Status != http.StatusBadRequest || res.Err == nil {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestDoClassifiesServerErrorAsHardFailure(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"success": false, "hostname": "server01.example.com", "error": "backend API timeout",
		})
	})

	res := client.Do(context.Background(), "server01.example.com")
	if res.Outcome != HardFailure {
		t.Fatalf("expected HardFailure, got %s", res.Outcome)
	}
}

func TestDoClassifiesUnexpectedStatusAsHardFailure(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	})

	res := client.Do(context.Background(), "server01.example.com")
	if res.Outcome != HardFailure {
		t.Fatalf("expected HardFailure, got %s", res.Outcome)
	}
	if res.Status != http.StatusTeapot {
		t.Fatalf("expected literal status recorded, got %d", res.Status)
	}
}

func TestDoClassifiesNetworkErrorAsHardFailure(t *testing.T) {
	log, _ := logger.NewLoggerFromEnv("test")
	client := NewClient("http://127.0.0.1:1", time.Second, log)

	res := client.Do(context.Background(), "server01.example.com")
	if res.Outcome != HardFailure {
		t.Fatalf("expected HardFailure, got %s", res.Outcome)
	}
	if res.Err == nil {
		t.Fatalf("network failure must carry an error")
	}
}
