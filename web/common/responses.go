package common

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Message string `json:"message"`
}

func NewErrorResponse(message string) *ErrorResponse {
	return &ErrorResponse{Message: message}
}

type SuccessResponse struct {
	Data interface{} `json:"data"`
}

func NewSuccessResponse(data interface{}) *SuccessResponse {
	return &SuccessResponse{Data: data}
}

type Pagination struct {
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
}

// SearchResponse pages through local rows.
type SearchResponse struct {
	Data       interface{} `json:"data"`
	Pagination Pagination  `json:"pagination"`
}

func NewSearchResponse(data interface{}, total int64, page, limit int) *SearchResponse {
	return &SearchResponse{
		Data:       data,
		Pagination: Pagination{Total: total, Page: page, Limit: limit},
	}
}

// PaginatedResponse carries a caller-defined pagination block, e.g. sync metadata.
type PaginatedResponse struct {
	Data       interface{} `json:"data"`
	Pagination interface{} `json:"pagination"`
}

func NewPaginatedResponse(data interface{}, pagination interface{}) *PaginatedResponse {
	return &PaginatedResponse{Data: data, Pagination: pagination}
}
