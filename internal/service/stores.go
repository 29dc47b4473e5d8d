package service

import (
	"context"
	"time"

	"stepstunner/api/internal/models"
	"stepstunner/api/internal/payment"
	"stepstunner/api/internal/repository"
)

// Store contracts consumed by the services. The pgx repositories satisfy
// them; tests swap in in-memory fakes.

type UserStore interface {
	Create(ctx context.Context, user models.User) error
	FindByEmail(ctx context.Context, email string) (models.User, error)
	GetByID(ctx context.Context, id string) (models.User, error)
	Update(ctx context.Context, user models.User) error
	Delete(ctx context.Context, id string) error
	Search(ctx context.Context, q string, limit int, offset int) ([]models.User, int, error)
	RecordLoginFailure(ctx context.Context, id string, failed int, lockUntil *time.Time) error
	ResetLoginFailures(ctx context.Context, id string) error
}

type SessionStore interface {
	Create(ctx context.Context, session models.Session) error
	GetByID(ctx context.Context, id string) (models.Session, error)
	DeleteByID(ctx context.Context, id string) error
	DeleteByUser(ctx context.Context, userID string) error
}

type ProductStore interface {
	Create(ctx context.Context, p models.Product) error
	GetByID(ctx context.Context, id string) (models.Product, error)
	GetByIDs(ctx context.Context, idList []string) (map[string]models.Product, error)
	List(ctx context.Context, filter repository.ProductFilter) ([]models.Product, int, error)
	Update(ctx context.Context, p models.Product) error
	SoftDelete(ctx context.Context, id string) error
}

type OrderStore interface {
	Create(ctx context.Context, order models.Order) error
	GetByID(ctx context.Context, id string) (models.Order, error)
	ListByUser(ctx context.Context, userID string, limit int, offset int) ([]models.Order, int, error)
	Search(ctx context.Context, q string, limit int, offset int) ([]models.Order, int, error)
	UpdateStatus(ctx context.Context, id string, status models.OrderStatus) error
	SetReview(ctx context.Context, orderID string, review models.Review, productIDs []string) error
}

type ActivityStore interface {
	Insert(ctx context.Context, entry models.ActivityLog) error
	Search(ctx context.Context, q string, limit int, offset int) ([]models.ActivityLog, int, error)
}

// ChallengeCache holds short-lived email MFA codes.
type ChallengeCache interface {
	StoreMFACode(ctx context.Context, userID string, code string, ttl time.Duration) error
	CheckMFACode(ctx context.Context, userID string, code string) (bool, error)
}

// Mailer dispatches outbound mail; delivery happens out of process.
type Mailer interface {
	SendMFACode(ctx context.Context, email string, code string) error
}

// CaptchaChecker verifies a challenge token out-of-band.
type CaptchaChecker interface {
	Verify(ctx context.Context, token string, remoteIP string) error
}

// PaymentGateway builds the signed redirect payload for external checkout.
type PaymentGateway interface {
	CheckoutForm(orderID string, total int64) payment.CheckoutForm
}
