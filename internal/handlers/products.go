package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"stepstunner/api/internal/service"
)

func (h HandlerSet) ListProducts(c *gin.Context) {
	page, limit := pagination(c)

	products, total, err := h.catalog.List(c.Request.Context(), service.ListProductsInput{
		Category: c.Query("category"),
		Brand:    c.Query("brand"),
		Search:   c.Query("search"),
		Page:     page,
		Limit:    limit,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"products": toProductResponses(products),
		"total":    total,
	})
}

func (h HandlerSet) GetProduct(c *gin.Context) {
	product, err := h.catalog.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"product": toProductResponse(product)})
}

func pagination(c *gin.Context) (page int, limit int) {
	page = 1
	limit = 20
	if v, err := strconv.Atoi(c.Query("page")); err == nil && v > 0 {
		page = v
	}
	if v, err := strconv.Atoi(c.Query("limit")); err == nil && v > 0 && v <= 100 {
		limit = v
	}
	return page, limit
}
