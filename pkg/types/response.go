// Package types defines the JSON envelopes the ops API returns for
// scheduler status, manual snapshot triggers, and health checks.
package types

// SuccessEnvelope wraps every 2xx body under a "data" key.
type SuccessEnvelope struct {
	Data any `json:"data"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}
