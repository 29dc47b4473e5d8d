package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"stepstunner/api/internal/middleware"
	"stepstunner/api/internal/models"
	"stepstunner/api/internal/payment"
	"stepstunner/api/internal/service"
)

type checkoutRequest struct {
	Items         []service.OrderItemInput `json:"items" binding:"required"`
	Total         int64                    `json:"total"`
	Address       string                   `json:"address" binding:"required"`
	PaymentMethod string                   `json:"paymentMethod" binding:"required"`
}

type checkoutResponse struct {
	Order    orderResponse         `json:"order"`
	Checkout *payment.CheckoutForm `json:"checkout,omitempty"`
}

func (h HandlerSet) Checkout(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.orders.PlaceOrder(c.Request.Context(), service.PlaceOrderInput{
		UserID:        user.ID,
		Items:         req.Items,
		ClaimedTotal:  req.Total,
		Address:       req.Address,
		PaymentMethod: models.PaymentMethod(req.PaymentMethod),
		IPAddress:     c.ClientIP(),
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, checkoutResponse{
		Order:    toOrderResponse(service.OrderView{Order: result.Order, Items: plainItems(result.Order)}),
		Checkout: result.Checkout,
	})
}

// plainItems wraps a fresh order's items without catalog population; the
// snapshot is by definition current at creation time.
func plainItems(order models.Order) []service.OrderItemView {
	items := make([]service.OrderItemView, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, service.OrderItemView{OrderItem: item})
	}
	return items
}

func (h HandlerSet) ListOrders(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	page, limit := pagination(c)
	views, total, err := h.orders.ListOrders(c.Request.Context(), user.ID, page, limit)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"orders": toOrderResponses(views),
		"total":  total,
	})
}

func (h HandlerSet) GetOrder(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	view, err := h.orders.GetOrder(c.Request.Context(), user.ID, c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"order": toOrderResponse(view)})
}

type reviewRequest struct {
	Rating int    `json:"rating" binding:"required"`
	Text   string `json:"text"`
}

func (h HandlerSet) SubmitReview(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.orders.SubmitReview(c.Request.Context(), user.ID, c.Param("id"), req.Rating, req.Text); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "review saved"})
}

func toOrderResponse(view service.OrderView) orderResponse {
	items := make([]orderItemResponse, 0, len(view.Items))
	for _, item := range view.Items {
		ir := orderItemResponse{
			ProductID:     item.ProductID,
			Customization: item.Customization,
			Quantity:      item.Quantity,
			UnitPrice:     item.UnitPrice,
			Name:          item.Name,
			ImageURL:      item.ImageURL,
		}
		if item.Product != nil {
			p := toProductResponse(*item.Product)
			ir.Product = &p
		}
		items = append(items, ir)
	}

	resp := orderResponse{
		ID:            view.Order.ID,
		UserID:        view.Order.UserID,
		Items:         items,
		Total:         view.Order.Total,
		Address:       view.Order.Address,
		PaymentMethod: string(view.Order.PaymentMethod),
		PaymentStatus: string(view.Order.PaymentStatus),
		Status:        string(view.Order.Status),
		CreatedAt:     view.Order.CreatedAt,
	}
	if view.Order.Review != nil {
		resp.Review = &reviewResponse{
			Rating:     view.Order.Review.Rating,
			Text:       view.Order.Review.Text,
			ReviewedAt: view.Order.Review.ReviewedAt,
		}
	}
	return resp
}

func toOrderResponses(views []service.OrderView) []orderResponse {
	out := make([]orderResponse, 0, len(views))
	for _, view := range views {
		out = append(out, toOrderResponse(view))
	}
	return out
}
