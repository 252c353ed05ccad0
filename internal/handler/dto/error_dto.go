package dto

type APIErrorResponse struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ErrorResponse is the short form used for 401 and 404.
type ErrorResponse struct {
	Error string `json:"error"`
}

type StatusMessageResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}
