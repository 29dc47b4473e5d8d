package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"stepstunner/api/internal/middleware"
	"stepstunner/api/internal/models"
	"stepstunner/api/internal/service"
)

func (h HandlerSet) AdminListUsers(c *gin.Context) {
	page, limit := pagination(c)
	users, total, err := h.admin.SearchUsers(c.Request.Context(), c.Query("q"), page, limit)
	if err != nil {
		h.respondError(c, err)
		return
	}

	items := make([]userResponse, 0, len(users))
	for _, user := range users {
		items = append(items, toUserResponse(user))
	}

	c.JSON(http.StatusOK, gin.H{"users": items, "total": total})
}

type adminUpdateUserRequest struct {
	Role   *string `json:"role"`
	Active *bool   `json:"active"`
}

func (h HandlerSet) AdminUpdateUser(c *gin.Context) {
	admin, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req adminUpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	input := service.UpdateUserInput{Active: req.Active}
	if req.Role != nil {
		role := models.UserRole(*req.Role)
		input.Role = &role
	}

	user, err := h.admin.UpdateUser(c.Request.Context(), admin.ID, c.Param("id"), input)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": toUserResponse(user)})
}

func (h HandlerSet) AdminDeleteUser(c *gin.Context) {
	admin, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	if err := h.admin.DeleteUser(c.Request.Context(), admin.ID, c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

type adminProductRequest struct {
	Name        string `json:"name" binding:"required"`
	Category    string `json:"category"`
	Brand       string `json:"brand"`
	Price       int64  `json:"price" binding:"required"`
	Description string `json:"description"`
	Stock       int    `json:"stock"`
}

func (r adminProductRequest) toInput() service.ProductInput {
	return service.ProductInput{
		Name:        r.Name,
		Category:    r.Category,
		Brand:       r.Brand,
		Price:       r.Price,
		Description: r.Description,
		Stock:       r.Stock,
	}
}

func (h HandlerSet) AdminCreateProduct(c *gin.Context) {
	admin, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req adminProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	product, err := h.catalog.Create(c.Request.Context(), admin.ID, req.toInput())
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"product": toProductResponse(product)})
}

func (h HandlerSet) AdminUpdateProduct(c *gin.Context) {
	admin, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req adminProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	product, err := h.catalog.Update(c.Request.Context(), admin.ID, c.Param("id"), req.toInput())
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"product": toProductResponse(product)})
}

func (h HandlerSet) AdminDeleteProduct(c *gin.Context) {
	admin, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	if err := h.catalog.Delete(c.Request.Context(), admin.ID, c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h HandlerSet) AdminUploadProductImage(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file required"})
		return
	}
	defer file.Close()

	url, err := h.media.UploadProductImage(c.Request.Context(), file, header)
	if err != nil {
		h.respondError(c, err)
		return
	}

	product, err := h.catalog.SetImage(c.Request.Context(), c.Param("id"), url)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"product": toProductResponse(product)})
}

func (h HandlerSet) AdminListOrders(c *gin.Context) {
	page, limit := pagination(c)
	views, total, err := h.orders.ListAllOrders(c.Request.Context(), c.Query("q"), page, limit)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"orders": toOrderResponses(views), "total": total})
}

type updateOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h HandlerSet) AdminUpdateOrderStatus(c *gin.Context) {
	var req updateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.orders.UpdateStatus(c.Request.Context(), c.Param("id"), models.OrderStatus(req.Status)); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "status updated"})
}

type activityLogResponse struct {
	ID        string         `json:"id"`
	UserID    *string        `json:"userId,omitempty"`
	Action    string         `json:"action"`
	Method    string         `json:"method,omitempty"`
	Path      string         `json:"path,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
	IPAddress string         `json:"ipAddress,omitempty"`
	Status    int            `json:"status,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}

func (h HandlerSet) AdminListLogs(c *gin.Context) {
	page, limit := pagination(c)
	logs, total, err := h.admin.SearchLogs(c.Request.Context(), c.Query("q"), page, limit)
	if err != nil {
		h.respondError(c, err)
		return
	}

	items := make([]activityLogResponse, 0, len(logs))
	for _, entry := range logs {
		items = append(items, activityLogResponse{
			ID:        entry.ID,
			UserID:    entry.UserID,
			Action:    entry.Action,
			Method:    entry.Method,
			Path:      entry.Path,
			Details:   entry.Details,
			IPAddress: entry.IPAddress,
			Status:    entry.Status,
			CreatedAt: entry.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{"logs": items, "total": total})
}
