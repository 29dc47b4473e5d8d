package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"stepstunner/api/internal/apperr"
	"stepstunner/api/internal/models"
)

// respondError translates the service error taxonomy at the route boundary.
// Internal causes are logged and never leaked to the client.
func (h HandlerSet) respondError(c *gin.Context, err error) {
	status := apperr.Status(err)
	if status >= http.StatusInternalServerError {
		h.log.Error().Err(err).
			Str("path", c.Request.URL.Path).
			Msg("request failed")
	}
	c.JSON(status, gin.H{"error": apperr.PublicMessage(err)})
}

type userResponse struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Phone      string    `json:"phone,omitempty"`
	Role       string    `json:"role"`
	Active     bool      `json:"active"`
	MFAEnabled bool      `json:"mfaEnabled"`
	MFAMethod  string    `json:"mfaMethod,omitempty"`
	AvatarURL  *string   `json:"avatarUrl,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

func toUserResponse(user models.User) userResponse {
	return userResponse{
		ID:         user.ID,
		Name:       user.Name,
		Email:      user.Email,
		Phone:      user.Phone,
		Role:       string(user.Role),
		Active:     user.Active,
		MFAEnabled: user.MFAEnabled,
		MFAMethod:  string(user.MFAMethod),
		AvatarURL:  user.AvatarURL,
		CreatedAt:  user.CreatedAt,
	}
}

type productResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Category    string    `json:"category"`
	Brand       string    `json:"brand"`
	Price       int64     `json:"price"`
	Description string    `json:"description"`
	ImageURL    *string   `json:"imageUrl,omitempty"`
	Rating      float64   `json:"rating"`
	ReviewCount int       `json:"reviews"`
	Stock       int       `json:"stock"`
	CreatedAt   time.Time `json:"createdAt"`
}

func toProductResponse(p models.Product) productResponse {
	return productResponse{
		ID:          p.ID,
		Name:        p.Name,
		Category:    p.Category,
		Brand:       p.Brand,
		Price:       p.Price,
		Description: p.Description,
		ImageURL:    p.ImageURL,
		Rating:      p.Rating,
		ReviewCount: p.ReviewCount,
		Stock:       p.Stock,
		CreatedAt:   p.CreatedAt,
	}
}

func toProductResponses(products []models.Product) []productResponse {
	out := make([]productResponse, 0, len(products))
	for _, p := range products {
		out = append(out, toProductResponse(p))
	}
	return out
}

type reviewResponse struct {
	Rating     int       `json:"rating"`
	Text       string    `json:"text,omitempty"`
	ReviewedAt time.Time `json:"reviewedAt"`
}

type orderItemResponse struct {
	ProductID     *string               `json:"productId,omitempty"`
	Customization *models.Customization `json:"customization,omitempty"`
	Quantity      int                   `json:"quantity"`
	UnitPrice     int64                 `json:"unitPrice"`
	Name          string                `json:"name"`
	ImageURL      string                `json:"imageUrl,omitempty"`
	Product       *productResponse      `json:"product"`
}

type orderResponse struct {
	ID            string              `json:"id"`
	UserID        string              `json:"userId"`
	Items         []orderItemResponse `json:"items"`
	Total         int64               `json:"total"`
	Address       string              `json:"address"`
	PaymentMethod string              `json:"paymentMethod"`
	PaymentStatus string              `json:"paymentStatus"`
	Status        string              `json:"status"`
	Review        *reviewResponse     `json:"review,omitempty"`
	CreatedAt     time.Time           `json:"createdAt"`
}
