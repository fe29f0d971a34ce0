package dto

// HealthResponse is the body for GET /health. Timestamp is epoch seconds with
// a fractional part, matching what fleet monitoring already scrapes.
type HealthResponse struct {
	Status    string  `json:"status" example:"healthy"`
	Timestamp float64 `json:"timestamp" example:"1756200000.123"`
}
