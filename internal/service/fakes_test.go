package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"stepstunner/api/internal/models"
	"stepstunner/api/internal/payment"
	"stepstunner/api/internal/repository"
)

// In-memory store fakes backing the service tests.

type fakeUserStore struct {
	mu    sync.Mutex
	users map[string]models.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[string]models.User)}
}

func (s *fakeUserStore) Create(_ context.Context, user models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Email == user.Email {
			return repository.ErrDuplicateEmail
		}
	}
	s.users[user.ID] = user
	return nil
}

func (s *fakeUserStore) FindByEmail(_ context.Context, email string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if user.Email == email {
			return user, nil
		}
	}
	return models.User{}, repository.ErrUserNotFound
}

func (s *fakeUserStore) GetByID(_ context.Context, id string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return models.User{}, repository.ErrUserNotFound
	}
	return user, nil
}

func (s *fakeUserStore) Update(_ context.Context, user models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.ID]; !ok {
		return repository.ErrUserNotFound
	}
	s.users[user.ID] = user
	return nil
}

func (s *fakeUserStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return repository.ErrUserNotFound
	}
	delete(s.users, id)
	return nil
}

func (s *fakeUserStore) Search(_ context.Context, q string, limit int, offset int) ([]models.User, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var matched []models.User
	for _, user := range s.users {
		if q == "" || strings.Contains(user.Name, q) || strings.Contains(user.Email, q) {
			matched = append(matched, user)
		}
	}
	total := len(matched)
	if offset >= len(matched) {
		return nil, total, nil
	}
	matched = matched[offset:]
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, total, nil
}

func (s *fakeUserStore) RecordLoginFailure(_ context.Context, id string, failed int, lockUntil *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	user.FailedLogins = failed
	user.LockUntil = lockUntil
	s.users[id] = user
	return nil
}

func (s *fakeUserStore) ResetLoginFailures(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	user.FailedLogins = 0
	user.LockUntil = nil
	s.users[id] = user
	return nil
}

type fakeSessionStore struct {
	mu       sync.Mutex
	sessions map[string]models.Session
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{sessions: make(map[string]models.Session)}
}

func (s *fakeSessionStore) Create(_ context.Context, session models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = session
	return nil
}

func (s *fakeSessionStore) GetByID(_ context.Context, id string) (models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return models.Session{}, repository.ErrSessionNotFound
	}
	return session, nil
}

func (s *fakeSessionStore) DeleteByID(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return repository.ErrSessionNotFound
	}
	delete(s.sessions, id)
	return nil
}

func (s *fakeSessionStore) DeleteByUser(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, session := range s.sessions {
		if session.UserID == userID {
			delete(s.sessions, id)
		}
	}
	return nil
}

func (s *fakeSessionStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

type fakeChallengeCache struct {
	mu    sync.Mutex
	codes map[string]string
}

func newFakeChallengeCache() *fakeChallengeCache {
	return &fakeChallengeCache{codes: make(map[string]string)}
}

func (c *fakeChallengeCache) StoreMFACode(_ context.Context, userID string, code string, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.codes[userID] = code
	return nil
}

func (c *fakeChallengeCache) CheckMFACode(_ context.Context, userID string, code string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	stored, ok := c.codes[userID]
	if !ok || stored != code {
		return false, nil
	}
	delete(c.codes, userID)
	return true, nil
}

type fakeMailer struct {
	mu    sync.Mutex
	sent  []string
	codes []string
}

func (m *fakeMailer) SendMFACode(_ context.Context, email string, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, email)
	m.codes = append(m.codes, code)
	return nil
}

func (m *fakeMailer) lastCode() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.codes) == 0 {
		return ""
	}
	return m.codes[len(m.codes)-1]
}

type okCaptcha struct{}

func (okCaptcha) Verify(context.Context, string, string) error { return nil }

type fakeProductStore struct {
	mu       sync.Mutex
	products map[string]models.Product
}

func newFakeProductStore() *fakeProductStore {
	return &fakeProductStore{products: make(map[string]models.Product)}
}

func (s *fakeProductStore) Create(_ context.Context, p models.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = p
	return nil
}

func (s *fakeProductStore) GetByID(_ context.Context, id string) (models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok || p.DeletedAt != nil {
		return models.Product{}, repository.ErrProductNotFound
	}
	return p, nil
}

func (s *fakeProductStore) GetByIDs(_ context.Context, idList []string) (map[string]models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]models.Product, len(idList))
	for _, id := range idList {
		if p, ok := s.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (s *fakeProductStore) List(_ context.Context, filter repository.ProductFilter) ([]models.Product, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var matched []models.Product
	for _, p := range s.products {
		if p.DeletedAt != nil {
			continue
		}
		if filter.Category != "" && p.Category != filter.Category {
			continue
		}
		matched = append(matched, p)
	}
	return matched, len(matched), nil
}

func (s *fakeProductStore) Update(_ context.Context, p models.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[p.ID]; !ok {
		return repository.ErrProductNotFound
	}
	s.products[p.ID] = p
	return nil
}

func (s *fakeProductStore) SoftDelete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return repository.ErrProductNotFound
	}
	now := time.Now()
	p.DeletedAt = &now
	s.products[id] = p
	return nil
}

// fakeOrderStore mirrors the transactional review write: storing a review
// also refreshes the aggregate rating of every product the order touches.
type fakeOrderStore struct {
	mu       sync.Mutex
	orders   map[string]models.Order
	products *fakeProductStore
}

func newFakeOrderStore(products *fakeProductStore) *fakeOrderStore {
	return &fakeOrderStore{orders: make(map[string]models.Order), products: products}
}

func (s *fakeOrderStore) Create(_ context.Context, order models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	order.CreatedAt = time.Now()
	s.orders[order.ID] = order
	return nil
}

func (s *fakeOrderStore) GetByID(_ context.Context, id string) (models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[id]
	if !ok {
		return models.Order{}, repository.ErrOrderNotFound
	}
	return order, nil
}

func (s *fakeOrderStore) ListByUser(_ context.Context, userID string, limit int, offset int) ([]models.Order, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var matched []models.Order
	for _, order := range s.orders {
		if order.UserID == userID {
			matched = append(matched, order)
		}
	}
	total := len(matched)
	if offset >= len(matched) {
		return nil, total, nil
	}
	matched = matched[offset:]
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, total, nil
}

func (s *fakeOrderStore) Search(_ context.Context, _ string, limit int, offset int) ([]models.Order, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var all []models.Order
	for _, order := range s.orders {
		all = append(all, order)
	}
	total := len(all)
	if offset >= len(all) {
		return nil, total, nil
	}
	all = all[offset:]
	if len(all) > limit {
		all = all[:limit]
	}
	return all, total, nil
}

func (s *fakeOrderStore) UpdateStatus(_ context.Context, id string, status models.OrderStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[id]
	if !ok {
		return repository.ErrOrderNotFound
	}
	order.Status = status
	s.orders[id] = order
	return nil
}

func (s *fakeOrderStore) SetReview(_ context.Context, orderID string, review models.Review, productIDs []string) error {
	s.mu.Lock()
	order, ok := s.orders[orderID]
	if !ok {
		s.mu.Unlock()
		return repository.ErrOrderNotFound
	}
	order.Review = &review
	s.orders[orderID] = order

	aggregates := make(map[string]struct {
		sum   int
		count int
	})
	for _, o := range s.orders {
		if o.Review == nil {
			continue
		}
		for _, pid := range o.ProductIDs() {
			agg := aggregates[pid]
			agg.sum += o.Review.Rating
			agg.count++
			aggregates[pid] = agg
		}
	}
	s.mu.Unlock()

	for _, pid := range productIDs {
		s.products.mu.Lock()
		p, ok := s.products.products[pid]
		if ok {
			agg := aggregates[pid]
			if agg.count > 0 {
				p.Rating = float64(agg.sum) / float64(agg.count)
			} else {
				p.Rating = 0
			}
			p.ReviewCount = agg.count
			s.products.products[pid] = p
		}
		s.products.mu.Unlock()
	}
	return nil
}

type fakeActivityStore struct {
	mu      sync.Mutex
	entries []models.ActivityLog
}

func (s *fakeActivityStore) Insert(_ context.Context, entry models.ActivityLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return nil
}

func (s *fakeActivityStore) Search(_ context.Context, _ string, limit int, offset int) ([]models.ActivityLog, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entries, len(s.entries), nil
}

type fakeGateway struct {
	calls int
}

func (g *fakeGateway) CheckoutForm(orderID string, total int64) payment.CheckoutForm {
	g.calls++
	return payment.CheckoutForm{
		GatewayURL: "https://gateway.test/pay",
		Fields: map[string]string{
			"transaction_uuid": orderID,
			"total_amount":     payment.FormatAmount(total),
		},
	}
}
