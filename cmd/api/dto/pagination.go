package dto

import "autoblog/models"

// Pagination is a generic pagination envelope for list results
// T is the element type of the Data slice
// Total represents the total number of items matching the filters (without pagination)
// Page is 1-based; PageSize is the normalized page size
//
// (Swagger generators may not fully support generics; handlers annotate the concrete aliases below.)
type Pagination[T any] struct {
	Data        []T   `json:"data"`
	Page        int   `json:"page"`
	PageSize    int   `json:"page_size"`
	Total       int64 `json:"total"`
	TotalPages  int   `json:"total_pages"`
	HasNextPage bool  `json:"has_next_page"`
	HasPrevPage bool  `json:"has_prev_page"`
}

// NewPagination 은 page/pageSize 가 이미 정규화되었다고 가정한다. data 가 nil 이면 빈 배열로 내려준다.
func NewPagination[T any](data []T, page, pageSize int, total int64) Pagination[T] {
	if data == nil {
		data = []T{}
	}
	totalPages := 0
	if pageSize > 0 {
		totalPages = int((total + int64(pageSize) - 1) / int64(pageSize))
	}
	return Pagination[T]{
		Data:        data,
		Page:        page,
		PageSize:    pageSize,
		Total:       total,
		TotalPages:  totalPages,
		HasNextPage: page < totalPages,
		HasPrevPage: page > 1,
	}
}

// swagger 용 구체 타입
type (
	PaginationTopicDTO   = Pagination[models.Topic]
	PaginationPostDTO    = Pagination[models.Post]
	PaginationHistoryDTO = Pagination[models.GenerationHistory]
	PaginationUserDTO    = Pagination[models.User]
)
