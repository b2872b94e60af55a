package types

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: bridge initialization: load user module: no such file
	Error string `json:"error" example:"bridge initialization: load user module: no such file"`
	// HTTP status code.
	// example: 500
	Code int `json:"code" example:"500"`
}
