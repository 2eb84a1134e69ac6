package models

type APIError struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

type ErrorResponse struct {
	Error APIError `json:"error"`
	// ShouldLogout tells the agent its identity is gone server-side and
	// retrying is pointless; it must force a re-login instead.
	ShouldLogout bool `json:"shouldLogout,omitempty"`
}
