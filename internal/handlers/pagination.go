package handlers

import (
	"math"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// PaginatedResponse wraps one page of a list endpoint.
type PaginatedResponse struct {
	Data        interface{} `json:"data"`
	TotalRows   int64       `json:"totalRows"`
	TotalPages  int         `json:"totalPages"`
	CurrentPage int         `json:"currentPage"`
	PageSize    int         `json:"pageSize"`
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
	// maxPage keeps the offset within int32 for every page size.
	maxPage = math.MaxInt32 / MaxPageSize
)

type page struct {
	number, size int
}

// pageOf reads ?page and ?pageSize, clamping both into range.
func pageOf(c *gin.Context) page {
	p := page{number: 1, size: DefaultPageSize}
	if n, err := strconv.Atoi(c.Query("page")); err == nil && n > 0 {
		p.number = min(n, maxPage)
	}
	if n, err := strconv.Atoi(c.Query("pageSize")); err == nil && n > 0 {
		p.size = min(n, MaxPageSize)
	}
	return p
}

// Paginate is a GORM scope limiting the query to the requested page.
func Paginate(c *gin.Context) func(db *gorm.DB) *gorm.DB {
	p := pageOf(c)
	return func(db *gorm.DB) *gorm.DB {
		return db.Offset((p.number - 1) * p.size).Limit(p.size)
	}
}

func CreatePaginatedResponse(c *gin.Context, data interface{}, totalRows int64) PaginatedResponse {
	p := pageOf(c)
	return PaginatedResponse{
		Data:        data,
		TotalRows:   totalRows,
		TotalPages:  int((totalRows + int64(p.size) - 1) / int64(p.size)),
		CurrentPage: p.number,
		PageSize:    p.size,
	}
}
