package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/spec-kit/ticket-routing/internal/domain"
)

// In-memory reference implementations of the store interfaces. They carry the
// same contracts as the Postgres/Redis ones (sentinel errors, version-guarded
// updates, atomic queue rotation) and back the unit tests plus local runs
// without external dependencies.

type memorySeq struct {
	prefix string
	n      int64
}

// next returns monotonic ids that also sort lexicographically, so the
// directory's ascending-id ordering matches creation order.
func (s *memorySeq) next() string {
	s.n++
	return fmt.Sprintf("%s-%08d", s.prefix, s.n)
}

// MemoryTicketStore is the in-memory TicketStore.
type MemoryTicketStore struct {
	mu      sync.Mutex
	seq     memorySeq
	tickets map[string]*domain.Ticket
}

// NewMemoryTicketStore constructs an empty store.
func NewMemoryTicketStore() *MemoryTicketStore {
	return &MemoryTicketStore{
		seq:     memorySeq{prefix: "tkt"},
		tickets: make(map[string]*domain.Ticket),
	}
}

func (s *MemoryTicketStore) Create(ctx context.Context, ticket *domain.Ticket) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ticket.ID = s.seq.next()
	ticket.Version = 1
	now := time.Now()
	ticket.CreatedAt = now
	ticket.UpdatedAt = now
	clone := *ticket
	s.tickets[ticket.ID] = &clone
	return nil
}

func (s *MemoryTicketStore) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ticket, ok := s.tickets[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *ticket
	return &clone, nil
}

func (s *MemoryTicketStore) ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []domain.Ticket
	for _, ticket := range s.tickets {
		if filter.CustomerID != nil && ticket.CustomerID != *filter.CustomerID {
			continue
		}
		if filter.EngineerID != nil && (ticket.EngineerID == nil || *ticket.EngineerID != *filter.EngineerID) {
			continue
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, ticket.Status) {
			continue
		}
		result = append(result, *ticket)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})

	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	if offset >= len(result) {
		return nil, nil
	}
	result = result[offset:]
	// Same default page size as the Postgres store.
	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *MemoryTicketStore) ConditionalUpdate(ctx context.Context, id string, expectedVersion int64, mutate func(*domain.Ticket) error) (*domain.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.tickets[id]
	if !ok {
		return nil, ErrNotFound
	}
	if current.Version != expectedVersion {
		return nil, ErrVersionConflict
	}
	candidate := *current
	if err := mutate(&candidate); err != nil {
		return nil, err
	}
	candidate.Version = expectedVersion + 1
	candidate.UpdatedAt = time.Now()
	s.tickets[id] = &candidate
	clone := candidate
	return &clone, nil
}

func containsStatus(statuses []domain.TicketStatus, status domain.TicketStatus) bool {
	for _, candidate := range statuses {
		if candidate == status {
			return true
		}
	}
	return false
}

// MemoryUserRepository is the in-memory UserRepository/Directory.
type MemoryUserRepository struct {
	mu    sync.RWMutex
	seq   memorySeq
	users map[string]*domain.User
}

// NewMemoryUserRepository constructs an empty directory.
func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		seq:   memorySeq{prefix: "usr"},
		users: make(map[string]*domain.User),
	}
}

func (r *MemoryUserRepository) Create(ctx context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.users {
		if strings.EqualFold(existing.Email, user.Email) {
			return fmt.Errorf("email %s already registered", user.Email)
		}
	}
	user.ID = r.seq.next()
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	clone := *user
	r.users[user.ID] = &clone
	return nil
}

func (r *MemoryUserRepository) GetUser(ctx context.Context, id string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *user
	return &clone, nil
}

func (r *MemoryUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, user := range r.users {
		if strings.EqualFold(user.Email, email) {
			clone := *user
			return &clone, nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryUserRepository) ListUsers(ctx context.Context) ([]domain.User, error) {
	return r.listWhere(func(*domain.User) bool { return true }), nil
}

func (r *MemoryUserRepository) ListEngineers(ctx context.Context) ([]domain.User, error) {
	return r.listWhere(func(u *domain.User) bool { return u.Role == domain.RoleEngineer }), nil
}

func (r *MemoryUserRepository) listWhere(keep func(*domain.User) bool) []domain.User {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []domain.User
	for _, user := range r.users {
		if keep(user) {
			result = append(result, *user)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})
	return result
}

// MemoryNotificationStore is the in-memory NotificationStore.
type MemoryNotificationStore struct {
	mu            sync.Mutex
	seq           memorySeq
	notifications map[string]*domain.Notification
}

// NewMemoryNotificationStore constructs an empty store.
func NewMemoryNotificationStore() *MemoryNotificationStore {
	return &MemoryNotificationStore{
		seq:           memorySeq{prefix: "ntf"},
		notifications: make(map[string]*domain.Notification),
	}
}

func (s *MemoryNotificationStore) Create(ctx context.Context, notification *domain.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	notification.ID = s.seq.next()
	notification.CreatedAt = time.Now()
	clone := *notification
	s.notifications[notification.ID] = &clone
	return nil
}

func (s *MemoryNotificationStore) GetByID(ctx context.Context, id string) (*domain.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	notification, ok := s.notifications[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *notification
	return &clone, nil
}

func (s *MemoryNotificationStore) ListByUser(ctx context.Context, userID string, unreadOnly bool) ([]domain.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []domain.Notification
	for _, notification := range s.notifications {
		if notification.UserID != userID {
			continue
		}
		if unreadOnly && notification.Read {
			continue
		}
		result = append(result, *notification)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func (s *MemoryNotificationStore) MarkRead(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	notification, ok := s.notifications[id]
	if !ok {
		return ErrNotFound
	}
	notification.Read = true
	return nil
}

// MemoryServiceCatalog is the in-memory ServiceCatalog.
type MemoryServiceCatalog struct {
	mu       sync.RWMutex
	services []domain.Service
}

// NewMemoryServiceCatalog seeds the catalog with the given service names.
func NewMemoryServiceCatalog(names ...string) *MemoryServiceCatalog {
	catalog := &MemoryServiceCatalog{}
	for i, name := range names {
		catalog.services = append(catalog.services, domain.Service{
			ID:   fmt.Sprintf("svc-%08d", i+1),
			Name: name,
		})
	}
	return catalog
}

func (c *MemoryServiceCatalog) List(ctx context.Context) ([]domain.Service, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make([]domain.Service, len(c.services))
	copy(result, c.services)
	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})
	return result, nil
}

func (c *MemoryServiceCatalog) GetByName(ctx context.Context, name string) (*domain.Service, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, svc := range c.services {
		if svc.Name == name {
			clone := svc
			return &clone, nil
		}
	}
	return nil, ErrNotFound
}

// MemoryEngineerQueue is the in-memory EngineerQueue. The slice head is the
// queue head; Pop takes from the tail.
type MemoryEngineerQueue struct {
	mu  sync.Mutex
	ids []string
}

// NewMemoryEngineerQueue seeds the rotation head-to-tail in the given order,
// so the last seeded id is popped first.
func NewMemoryEngineerQueue(ids ...string) *MemoryEngineerQueue {
	queue := &MemoryEngineerQueue{}
	queue.ids = append(queue.ids, ids...)
	return queue
}

func (q *MemoryEngineerQueue) Pop(ctx context.Context) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.ids) == 0 {
		return "", ErrEmptyQueue
	}
	last := len(q.ids) - 1
	id := q.ids[last]
	q.ids = q.ids[:last]
	return id, nil
}

func (q *MemoryEngineerQueue) Push(ctx context.Context, engineerID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.ids = append([]string{engineerID}, q.ids...)
	return nil
}

// Rotate pops the tail and pushes it onto the head under one lock hold.
func (q *MemoryEngineerQueue) Rotate(ctx context.Context) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.ids) == 0 {
		return "", ErrEmptyQueue
	}
	return q.rotateLocked(), nil
}

// RotateOrSeed rotates, or seeds an empty queue with fallback. Emptiness
// check and seed happen under the same lock hold, so racing callers cannot
// each seed the queue.
func (q *MemoryEngineerQueue) RotateOrSeed(ctx context.Context, fallback string) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.ids) == 0 {
		q.ids = append(q.ids, fallback)
		return fallback, nil
	}
	return q.rotateLocked(), nil
}

func (q *MemoryEngineerQueue) rotateLocked() string {
	last := len(q.ids) - 1
	id := q.ids[last]
	copy(q.ids[1:], q.ids[:last])
	q.ids[0] = id
	return id
}

func (q *MemoryEngineerQueue) Length(ctx context.Context) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	return int64(len(q.ids)), nil
}
