package repository_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/ticket-routing/internal/domain"
	"github.com/spec-kit/ticket-routing/internal/repository"
)

func newTicket(customerID string) *domain.Ticket {
	return &domain.Ticket{
		ExternalKey: "TCK-" + customerID,
		CustomerID:  customerID,
		Title:       "title",
		ServiceType: "Email",
		Description: "description",
		Status:      domain.TicketStatusOpen,
	}
}

func TestTicketStoreConditionalUpdateGuardsVersion(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryTicketStore()

	ticket := newTicket("usr-1")
	require.NoError(t, store.Create(ctx, ticket))
	require.EqualValues(t, 1, ticket.Version)

	updated, err := store.ConditionalUpdate(ctx, ticket.ID, 1, func(t *domain.Ticket) error {
		t.Status = domain.TicketStatusInProgress
		return nil
	})
	require.NoError(t, err)
	assert.EqualValues(t, 2, updated.Version)
	assert.Equal(t, domain.TicketStatusInProgress, updated.Status)

	// A writer holding the stale version loses.
	_, err = store.ConditionalUpdate(ctx, ticket.ID, 1, func(t *domain.Ticket) error {
		t.Status = domain.TicketStatusResolved
		return nil
	})
	assert.ErrorIs(t, err, repository.ErrVersionConflict)

	// The stored ticket kept the winner's state.
	current, err := store.GetByID(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusInProgress, current.Status)
	assert.EqualValues(t, 2, current.Version)
}

func TestTicketStoreConditionalUpdateMutateErrorLeavesTicketUntouched(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryTicketStore()

	ticket := newTicket("usr-1")
	require.NoError(t, store.Create(ctx, ticket))

	sentinel := assert.AnError
	_, err := store.ConditionalUpdate(ctx, ticket.ID, 1, func(t *domain.Ticket) error {
		t.Status = domain.TicketStatusClosed
		return sentinel
	})
	assert.ErrorIs(t, err, sentinel)

	current, err := store.GetByID(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusOpen, current.Status)
	assert.EqualValues(t, 1, current.Version)
}

func TestTicketStoreConcurrentConditionalUpdatesAdmitOneWinner(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryTicketStore()

	ticket := newTicket("usr-1")
	require.NoError(t, store.Create(ctx, ticket))

	const writers = 16
	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.ConditionalUpdate(ctx, ticket.ID, 1, func(t *domain.Ticket) error {
				t.Status = domain.TicketStatusInProgress
				return nil
			})
			if err == nil {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, winners)
	current, err := store.GetByID(ctx, ticket.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, current.Version)
}

func TestTicketStoreGetReturnsACopy(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryTicketStore()

	ticket := newTicket("usr-1")
	require.NoError(t, store.Create(ctx, ticket))

	got, err := store.GetByID(ctx, ticket.ID)
	require.NoError(t, err)
	got.Status = domain.TicketStatusClosed

	again, err := store.GetByID(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusOpen, again.Status)
}

func TestTicketStoreListWithFilter(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryTicketStore()

	engineer := "usr-eng"
	first := newTicket("usr-a")
	require.NoError(t, store.Create(ctx, first))
	second := newTicket("usr-a")
	second.EngineerID = &engineer
	second.Status = domain.TicketStatusInProgress
	require.NoError(t, store.Create(ctx, second))
	third := newTicket("usr-b")
	require.NoError(t, store.Create(ctx, third))

	customerA := "usr-a"
	byCustomer, err := store.ListWithFilter(ctx, repository.TicketFilter{CustomerID: &customerA})
	require.NoError(t, err)
	require.Len(t, byCustomer, 2)
	// Ascending id equals creation order.
	assert.Equal(t, first.ID, byCustomer[0].ID)
	assert.Equal(t, second.ID, byCustomer[1].ID)

	byEngineer, err := store.ListWithFilter(ctx, repository.TicketFilter{EngineerID: &engineer})
	require.NoError(t, err)
	require.Len(t, byEngineer, 1)
	assert.Equal(t, second.ID, byEngineer[0].ID)

	open, err := store.ListWithFilter(ctx, repository.TicketFilter{
		Statuses: []domain.TicketStatus{domain.TicketStatusOpen},
	})
	require.NoError(t, err)
	assert.Len(t, open, 2)

	paged, err := store.ListWithFilter(ctx, repository.TicketFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, paged, 1)
	assert.Equal(t, second.ID, paged[0].ID)

	past, err := store.ListWithFilter(ctx, repository.TicketFilter{Offset: 10})
	require.NoError(t, err)
	assert.Empty(t, past)
}

func TestTicketStoreListAppliesDefaultPageSize(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryTicketStore()

	for i := 0; i < 25; i++ {
		require.NoError(t, store.Create(ctx, newTicket("usr-1")))
	}

	page, err := store.ListWithFilter(ctx, repository.TicketFilter{})
	require.NoError(t, err)
	assert.Len(t, page, 20)

	all, err := store.ListWithFilter(ctx, repository.TicketFilter{Limit: 100})
	require.NoError(t, err)
	assert.Len(t, all, 25)
}

func TestUserRepositoryEnforcesUniqueEmail(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryUserRepository()

	require.NoError(t, repo.Create(ctx, &domain.User{Name: "alice", Email: "alice@example.com", PasswordHash: "x", Role: domain.RoleCustomer}))
	err := repo.Create(ctx, &domain.User{Name: "alice2", Email: "ALICE@example.com", PasswordHash: "x", Role: domain.RoleCustomer})
	assert.Error(t, err)
}

func TestUserRepositoryListEngineersAscending(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryUserRepository()

	e1 := &domain.User{Name: "e1", Email: "e1@example.com", PasswordHash: "x", Role: domain.RoleEngineer}
	require.NoError(t, repo.Create(ctx, e1))
	require.NoError(t, repo.Create(ctx, &domain.User{Name: "c", Email: "c@example.com", PasswordHash: "x", Role: domain.RoleCustomer}))
	e2 := &domain.User{Name: "e2", Email: "e2@example.com", PasswordHash: "x", Role: domain.RoleEngineer}
	require.NoError(t, repo.Create(ctx, e2))

	engineers, err := repo.ListEngineers(ctx)
	require.NoError(t, err)
	require.Len(t, engineers, 2)
	assert.Equal(t, e1.ID, engineers[0].ID)
	assert.Equal(t, e2.ID, engineers[1].ID)

	byEmail, err := repo.GetByEmail(ctx, "E1@EXAMPLE.COM")
	require.NoError(t, err)
	assert.Equal(t, e1.ID, byEmail.ID)
}

func TestEngineerQueuePopPushSemantics(t *testing.T) {
	ctx := context.Background()
	queue := repository.NewMemoryEngineerQueue()

	// Push adds to the head, Pop takes from the tail: FIFO across the pair.
	require.NoError(t, queue.Push(ctx, "e1"))
	require.NoError(t, queue.Push(ctx, "e2"))
	require.NoError(t, queue.Push(ctx, "e3"))

	id, err := queue.Pop(ctx)
	require.NoError(t, err)
	assert.Equal(t, "e1", id)
	id, err = queue.Pop(ctx)
	require.NoError(t, err)
	assert.Equal(t, "e2", id)
	id, err = queue.Pop(ctx)
	require.NoError(t, err)
	assert.Equal(t, "e3", id)

	_, err = queue.Pop(ctx)
	assert.ErrorIs(t, err, repository.ErrEmptyQueue)
}

func TestEngineerQueueRotateCyclesWithoutLosingMembers(t *testing.T) {
	ctx := context.Background()
	queue := repository.NewMemoryEngineerQueue()
	require.NoError(t, queue.Push(ctx, "e1"))
	require.NoError(t, queue.Push(ctx, "e2"))
	require.NoError(t, queue.Push(ctx, "e3"))

	var seen []string
	for i := 0; i < 6; i++ {
		id, err := queue.Rotate(ctx)
		require.NoError(t, err)
		seen = append(seen, id)
	}
	assert.Equal(t, []string{"e1", "e2", "e3", "e1", "e2", "e3"}, seen)

	length, err := queue.Length(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, length)
}

func TestEngineerQueueRotateOrSeed(t *testing.T) {
	ctx := context.Background()
	queue := repository.NewMemoryEngineerQueue()

	// Empty queue: seeded with the fallback, which is returned.
	id, err := queue.RotateOrSeed(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, "e1", id)
	length, err := queue.Length(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, length)

	// Non-empty queue: plain rotation, the fallback is ignored.
	require.NoError(t, queue.Push(ctx, "e2"))
	id, err = queue.RotateOrSeed(ctx, "e3")
	require.NoError(t, err)
	assert.Equal(t, "e1", id)
	length, err = queue.Length(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, length)
}

func TestEngineerQueueConcurrentRotateOrSeedSeedsOnce(t *testing.T) {
	ctx := context.Background()
	queue := repository.NewMemoryEngineerQueue()

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := queue.RotateOrSeed(ctx, "e1")
			assert.NoError(t, err)
			assert.Equal(t, "e1", id)
		}()
	}
	wg.Wait()

	// Exactly one caller seeded; everyone else rotated the single entry.
	length, err := queue.Length(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, length)
}

func TestEngineerQueueRotateEmpty(t *testing.T) {
	queue := repository.NewMemoryEngineerQueue()
	_, err := queue.Rotate(context.Background())
	assert.ErrorIs(t, err, repository.ErrEmptyQueue)
}

func TestEngineerQueueConcurrentRotatePreservesMembership(t *testing.T) {
	ctx := context.Background()
	queue := repository.NewMemoryEngineerQueue()
	members := []string{"e1", "e2", "e3", "e4", "e5"}
	for _, id := range members {
		require.NoError(t, queue.Push(ctx, id))
	}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := queue.Rotate(ctx)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	length, err := queue.Length(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, len(members), length)

	// Draining yields each member exactly once.
	seen := map[string]bool{}
	for range members {
		id, err := queue.Pop(ctx)
		require.NoError(t, err)
		assert.False(t, seen[id], "duplicate member %s", id)
		seen[id] = true
	}
	assert.Len(t, seen, len(members))
}

func TestNotificationStoreUnreadFilterAndMarkRead(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryNotificationStore()

	first := &domain.Notification{UserID: "usr-1", Content: "first"}
	require.NoError(t, store.Create(ctx, first))
	second := &domain.Notification{UserID: "usr-1", Content: "second"}
	require.NoError(t, store.Create(ctx, second))
	require.NoError(t, store.Create(ctx, &domain.Notification{UserID: "usr-2", Content: "other"}))

	require.NoError(t, store.MarkRead(ctx, first.ID))

	unread, err := store.ListByUser(ctx, "usr-1", true)
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.Equal(t, second.ID, unread[0].ID)

	all, err := store.ListByUser(ctx, "usr-1", false)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	assert.ErrorIs(t, store.MarkRead(ctx, "missing"), repository.ErrNotFound)
}

func TestServiceCatalogLookup(t *testing.T) {
	ctx := context.Background()
	catalog := repository.NewMemoryServiceCatalog("Network", "Email")

	svc, err := catalog.GetByName(ctx, "Email")
	require.NoError(t, err)
	assert.Equal(t, "Email", svc.Name)

	_, err = catalog.GetByName(ctx, "Catering")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	services, err := catalog.List(ctx)
	require.NoError(t, err)
	require.Len(t, services, 2)
	assert.Equal(t, "Email", services[0].Name)
	assert.Equal(t, "Network", services[1].Name)
}
