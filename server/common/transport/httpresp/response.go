package httpresp

const (
	ErrNotAuthenticated = "not authenticated"
	ErrInvalidSession   = "invalid session"
	ErrForbidden        = "access denied"
	ErrNotFound         = "not found"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

type SuccessResponse struct {
	Success bool `json:"success"`
}

type IDResponse struct {
	ID string `json:"id"`
}

func NewErrorResponse(message string) ErrorResponse {
	return ErrorResponse{Error: message}
}

func NewSuccessResponse() SuccessResponse {
	return SuccessResponse{Success: true}
}

func NewIDResponse(id string) IDResponse {
	return IDResponse{ID: id}
}
