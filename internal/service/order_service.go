package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"stepstunner/api/internal/apperr"
	"stepstunner/api/internal/ids"
	"stepstunner/api/internal/models"
	"stepstunner/api/internal/payment"
	"stepstunner/api/internal/repository"
)

type OrderService struct {
	orders   OrderStore
	products ProductStore
	gateway  PaymentGateway
	activity *ActivityRecorder
	log      zerolog.Logger
	now      func() time.Time
}

func NewOrderService(
	orders OrderStore,
	products ProductStore,
	gateway PaymentGateway,
	activity *ActivityRecorder,
	log zerolog.Logger,
) *OrderService {
	return &OrderService{
		orders:   orders,
		products: products,
		gateway:  gateway,
		activity: activity,
		log:      log,
		now:      time.Now,
	}
}

type OrderItemInput struct {
	ProductID     *string               `json:"productId"`
	Customization *models.Customization `json:"customization"`
	Quantity      int                   `json:"quantity"`
}

type PlaceOrderInput struct {
	UserID        string
	Items         []OrderItemInput
	ClaimedTotal  int64
	Address       string
	PaymentMethod models.PaymentMethod
	IPAddress     string
}

type PlaceOrderResult struct {
	Order    models.Order
	Checkout *payment.CheckoutForm
}

// PlaceOrder snapshots item name, image and price at purchase time and
// recomputes the total from authoritative prices. A claimed total that does
// not match the recomputed sum is rejected rather than trusted.
func (s *OrderService) PlaceOrder(ctx context.Context, input PlaceOrderInput) (PlaceOrderResult, error) {
	if len(input.Items) == 0 {
		return PlaceOrderResult{}, apperr.Validation("order has no items")
	}
	if strings.TrimSpace(input.Address) == "" {
		return PlaceOrderResult{}, apperr.Validation("delivery address required")
	}
	if input.PaymentMethod != models.PaymentMethodCOD && input.PaymentMethod != models.PaymentMethodEsewa {
		return PlaceOrderResult{}, apperr.Validation("unknown payment method")
	}
	if input.ClaimedTotal <= 0 {
		return PlaceOrderResult{}, apperr.Validation("total must be positive")
	}

	items := make([]models.OrderItem, 0, len(input.Items))
	var total int64

	for i, in := range input.Items {
		if in.Quantity <= 0 {
			return PlaceOrderResult{}, apperr.Validation(fmt.Sprintf("item %d: quantity must be positive", i))
		}

		switch {
		case in.ProductID != nil && in.Customization != nil:
			return PlaceOrderResult{}, apperr.Validation(fmt.Sprintf("item %d: product and customization are mutually exclusive", i))

		case in.ProductID != nil:
			product, err := s.products.GetByID(ctx, *in.ProductID)
			if err != nil {
				if errors.Is(err, repository.ErrProductNotFound) {
					return PlaceOrderResult{}, apperr.Validation(fmt.Sprintf("item %d: unknown product", i))
				}
				return PlaceOrderResult{}, apperr.Internal(err)
			}
			item := models.OrderItem{
				ProductID: in.ProductID,
				Quantity:  in.Quantity,
				UnitPrice: product.Price,
				Name:      product.Name,
			}
			if product.ImageURL != nil {
				item.ImageURL = *product.ImageURL
			}
			items = append(items, item)
			total += product.Price * int64(in.Quantity)

		case in.Customization != nil:
			if err := validateCustomization(*in.Customization); err != nil {
				return PlaceOrderResult{}, apperr.Validation(fmt.Sprintf("item %d: %v", i, err))
			}
			items = append(items, models.OrderItem{
				Customization: in.Customization,
				Quantity:      in.Quantity,
				UnitPrice:     in.Customization.UnitPrice,
				Name:          "Custom " + in.Customization.BaseModel,
			})
			total += in.Customization.UnitPrice * int64(in.Quantity)

		default:
			return PlaceOrderResult{}, apperr.Validation(fmt.Sprintf("item %d: needs a product or a customization", i))
		}
	}

	if total != input.ClaimedTotal {
		return PlaceOrderResult{}, apperr.Validation("total does not match item prices")
	}

	order := models.Order{
		ID:            ids.New(),
		UserID:        input.UserID,
		Items:         items,
		Total:         total,
		Address:       input.Address,
		PaymentMethod: input.PaymentMethod,
		PaymentStatus: models.PaymentStatusPending,
		Status:        models.OrderStatusPending,
	}

	if err := s.orders.Create(ctx, order); err != nil {
		return PlaceOrderResult{}, apperr.Internal(err)
	}

	userID := input.UserID
	s.activity.Record(ActivityEntry{
		UserID: &userID,
		Action: "order_placed",
		IP:     input.IPAddress,
		Details: map[string]any{
			"order_id": order.ID,
			"total":    total,
			"payment":  string(input.PaymentMethod),
		},
	})

	result := PlaceOrderResult{Order: order}
	if input.PaymentMethod == models.PaymentMethodEsewa && s.gateway != nil {
		form := s.gateway.CheckoutForm(order.ID, order.Total)
		result.Checkout = &form
	}
	return result, nil
}

func validateCustomization(c models.Customization) error {
	if strings.TrimSpace(c.BaseModel) == "" {
		return errors.New("customization base model required")
	}
	if strings.TrimSpace(c.Size) == "" {
		return errors.New("customization size required")
	}
	if c.UnitPrice <= 0 {
		return errors.New("customization price must be positive")
	}
	return nil
}

// SubmitReview overwrites any prior review (last write wins) and refreshes
// the aggregate rating of every product the order references.
func (s *OrderService) SubmitReview(ctx context.Context, userID string, orderID string, rating int, text string) error {
	if rating < 1 || rating > 5 {
		return apperr.Validation("rating must be between 1 and 5")
	}

	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return apperr.NotFound("order not found")
		}
		return apperr.Internal(err)
	}
	if order.UserID != userID {
		return apperr.NotFound("order not found")
	}

	review := models.Review{Rating: rating, Text: text, ReviewedAt: s.now()}
	if err := s.orders.SetReview(ctx, orderID, review, order.ProductIDs()); err != nil {
		return apperr.Internal(err)
	}

	s.activity.Record(ActivityEntry{
		UserID:  &userID,
		Action:  "review_submitted",
		Details: map[string]any{"order_id": orderID, "rating": rating},
	})
	return nil
}

// OrderItemView pairs the purchase-time snapshot with the product's current
// catalog state. Product is nil when the product has been deleted since.
type OrderItemView struct {
	models.OrderItem
	Product *models.Product `json:"product"`
}

type OrderView struct {
	Order models.Order
	Items []OrderItemView
}

func (s *OrderService) ListOrders(ctx context.Context, userID string, page int, limit int) ([]OrderView, int, error) {
	limit, offset := normalizePage(page, limit)
	orders, total, err := s.orders.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, 0, apperr.Internal(err)
	}
	views, err := s.populate(ctx, orders)
	if err != nil {
		return nil, 0, err
	}
	return views, total, nil
}

func (s *OrderService) ListAllOrders(ctx context.Context, q string, page int, limit int) ([]OrderView, int, error) {
	limit, offset := normalizePage(page, limit)
	orders, total, err := s.orders.Search(ctx, q, limit, offset)
	if err != nil {
		return nil, 0, apperr.Internal(err)
	}
	views, err := s.populate(ctx, orders)
	if err != nil {
		return nil, 0, err
	}
	return views, total, nil
}

func (s *OrderService) GetOrder(ctx context.Context, userID string, orderID string) (OrderView, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return OrderView{}, apperr.NotFound("order not found")
		}
		return OrderView{}, apperr.Internal(err)
	}
	if order.UserID != userID {
		return OrderView{}, apperr.NotFound("order not found")
	}

	views, err := s.populate(ctx, []models.Order{order})
	if err != nil {
		return OrderView{}, err
	}
	return views[0], nil
}

func (s *OrderService) UpdateStatus(ctx context.Context, orderID string, status models.OrderStatus) error {
	if !models.ValidOrderStatus(status) {
		return apperr.Validation("unknown order status")
	}
	if err := s.orders.UpdateStatus(ctx, orderID, status); err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return apperr.NotFound("order not found")
		}
		return apperr.Internal(err)
	}
	return nil
}

// populate resolves product references against the current catalog. A deleted
// product degrades the item to a nil-product placeholder; the snapshot fields
// on the item itself stay untouched.
func (s *OrderService) populate(ctx context.Context, orders []models.Order) ([]OrderView, error) {
	idSet := make(map[string]struct{})
	var idList []string
	for _, order := range orders {
		for _, id := range order.ProductIDs() {
			if _, ok := idSet[id]; !ok {
				idSet[id] = struct{}{}
				idList = append(idList, id)
			}
		}
	}

	catalog, err := s.products.GetByIDs(ctx, idList)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	views := make([]OrderView, 0, len(orders))
	for _, order := range orders {
		view := OrderView{Order: order, Items: make([]OrderItemView, 0, len(order.Items))}
		for _, item := range order.Items {
			iv := OrderItemView{OrderItem: item}
			if item.ProductID != nil {
				if p, ok := catalog[*item.ProductID]; ok && p.DeletedAt == nil {
					product := p
					iv.Product = &product
				}
			}
			view.Items = append(view.Items, iv)
		}
		views = append(views, view)
	}
	return views, nil
}

func normalizePage(page int, limit int) (int, int) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if page < 1 {
		page = 1
	}
	return limit, (page - 1) * limit
}
