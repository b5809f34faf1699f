package web

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	PageSize    = 15
	MaxPageSize = 100
)

func getPageNumber(c *gin.Context) int {
	pageNumber, err := strconv.Atoi(c.Query("page"))
	if err != nil || pageNumber < 1 {
		pageNumber = 1
	}
	return pageNumber
}

func getPageSize(c *gin.Context) int {
	size, err := strconv.Atoi(c.Query("page_size"))
	if err != nil || size < 1 {
		return PageSize
	}
	return min(size, MaxPageSize)
}

func errorResponse(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"error": message})
}
