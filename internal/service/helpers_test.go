package service_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-routing/internal/domain"
	"github.com/spec-kit/ticket-routing/internal/events"
	"github.com/spec-kit/ticket-routing/internal/repository"
	"github.com/spec-kit/ticket-routing/internal/service"
)

// env wires the engine over the in-memory reference stores, mirroring the
// production wiring in cmd/api.
type env struct {
	users         *repository.MemoryUserRepository
	tickets       *repository.MemoryTicketStore
	notifications *repository.MemoryNotificationStore
	queue         *repository.MemoryEngineerQueue
	dispatcher    events.Dispatcher

	assigner  *service.AssignmentService
	lifecycle *service.LifecycleService
	notifier  *service.NotificationService
	ticketing *service.TicketService
}

func newEnv(t *testing.T) *env {
	t.Helper()

	e := &env{
		users:         repository.NewMemoryUserRepository(),
		tickets:       repository.NewMemoryTicketStore(),
		notifications: repository.NewMemoryNotificationStore(),
		queue:         repository.NewMemoryEngineerQueue(),
		dispatcher:    events.NewInMemoryDispatcher(),
	}
	logger := zap.NewNop()

	e.assigner = service.NewAssignmentService(service.AssignmentDependencies{
		TicketStore: e.tickets,
		Directory:   e.users,
		Queue:       e.queue,
		Dispatcher:  e.dispatcher,
		Logger:      logger,
	})
	e.lifecycle = service.NewLifecycleService(service.LifecycleDependencies{
		TicketStore: e.tickets,
		Directory:   e.users,
		Dispatcher:  e.dispatcher,
		Logger:      logger,
	})
	e.notifier = service.NewNotificationService(service.NotificationDependencies{
		NotificationStore: e.notifications,
		Directory:         e.users,
		Dispatcher:        e.dispatcher,
		Logger:            logger,
	})
	e.notifier.RegisterHandlers()

	e.ticketing = service.NewTicketService(service.TicketDependencies{
		TicketStore: e.tickets,
		Directory:   e.users,
		Catalog:     repository.NewMemoryServiceCatalog("Email", "Network", "Hardware"),
		Assigner:    e.assigner,
		Dispatcher:  e.dispatcher,
		Logger:      logger,
	})
	return e
}

func (e *env) addUser(t *testing.T, name string, role domain.Role) *domain.User {
	t.Helper()

	user := &domain.User{
		Name:         name,
		Email:        fmt.Sprintf("%s@example.com", name),
		PasswordHash: "x",
		Role:         role,
	}
	require.NoError(t, e.users.Create(context.Background(), user))
	return user
}

// addEngineer registers an engineer and adds them to the rotation, the way
// the provisioning surface does. Engineers added first are assigned first.
func (e *env) addEngineer(t *testing.T, name string) *domain.User {
	t.Helper()

	engineer := e.addUser(t, name, domain.RoleEngineer)
	require.NoError(t, e.queue.Push(context.Background(), engineer.ID))
	return engineer
}

func (e *env) createTicket(t *testing.T, customerID, title string) *domain.Ticket {
	t.Helper()

	ticket, err := e.ticketing.CreateTicket(context.Background(), customerID, service.TicketCreateInput{
		Title:       title,
		ServiceType: "Email",
		Description: "something is broken",
	})
	require.NoError(t, err)
	return ticket
}

// conflictingTicketStore forces the first n ConditionalUpdate calls to lose
// the version race, to exercise the retry paths.
type conflictingTicketStore struct {
	repository.TicketStore

	mu       sync.Mutex
	failures int
}

func (s *conflictingTicketStore) ConditionalUpdate(ctx context.Context, id string, expectedVersion int64, mutate func(*domain.Ticket) error) (*domain.Ticket, error) {
	s.mu.Lock()
	fail := s.failures > 0
	if fail {
		s.failures--
	}
	s.mu.Unlock()

	if fail {
		return nil, repository.ErrVersionConflict
	}
	return s.TicketStore.ConditionalUpdate(ctx, id, expectedVersion, mutate)
}

var errStoreOffline = errors.New("notification store offline")

// failingNotificationStore rejects the first n Create calls, to exercise the
// behavior when a transition commits but its notification write fails.
type failingNotificationStore struct {
	repository.NotificationStore

	mu       sync.Mutex
	failures int
}

func (s *failingNotificationStore) Create(ctx context.Context, notification *domain.Notification) error {
	s.mu.Lock()
	fail := s.failures > 0
	if fail {
		s.failures--
	}
	s.mu.Unlock()

	if fail {
		return errStoreOffline
	}
	return s.NotificationStore.Create(ctx, notification)
}
