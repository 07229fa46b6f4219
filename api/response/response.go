package response

// ErrorResponse is the error payload returned by every endpoint.
type ErrorResponse struct {
	Message string `json:"message"`
}
