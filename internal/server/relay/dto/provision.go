package dto

// ProvisionRequest is the inbound callback body. Accepted as JSON or form
// data; the hostname itself is sanitized separately, the tag only guards
// presence.
type ProvisionRequest struct {
	Hostname string `json:"hostname" form:"hostname" validate:"required" example:"server01.example.com"`
}

// ProvisionResponse is the success body for POST /provision.
type ProvisionResponse struct {
	Success  bool   `json:"success"`
	Hostname string `json:"hostname" example:"server01.example.com"`
	JobID    int    `json:"job_id" example:"4711"`
	JobType  string `json:"job_type" example:"template"`
	Message  string `json:"message" example:"Job triggered successfully for server01.example.com"`
}

// ProvisionError is the failure body for POST /provision when the backend
// launch failed (HTTP 500).
type ProvisionError struct {
	Success  bool   `json:"success"`
	Hostname string `json:"hostname"`
	Error    string `json:"error"`
}

// InputError is the body for request-shaped failures (HTTP 400).
type InputError struct {
	Error string `json:"error" example:"Invalid hostname format"`
}

// RateLimitError is the body for HTTP 429 responses.
type RateLimitError struct {
	Error      string `json:"error" example:"Rate limit exceeded"`
	Message    string `json:"message" example:"Too many requests. Please try again later."`
	RetryAfter int    `json:"retry_after" example:"300"`
}
