package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-routing/internal/domain"
	"github.com/spec-kit/ticket-routing/internal/events"
	"github.com/spec-kit/ticket-routing/internal/repository"
	apperrors "github.com/spec-kit/ticket-routing/pkg/util"
)

// AssignmentService binds a newly created ticket to exactly one engineer,
// rotating the shared engineer queue for round-robin fairness.
type AssignmentService struct {
	tickets    repository.TicketStore
	directory  repository.Directory
	queue      repository.EngineerQueue
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// AssignmentDependencies bundles collaborators.
type AssignmentDependencies struct {
	TicketStore repository.TicketStore
	Directory   repository.Directory
	Queue       repository.EngineerQueue
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
}

// NewAssignmentService creates the service.
func NewAssignmentService(deps AssignmentDependencies) *AssignmentService {
	return &AssignmentService{
		tickets:    deps.TicketStore,
		directory:  deps.Directory,
		queue:      deps.Queue,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
	}
}

// Assign routes the OPEN, unassigned ticket to the next engineer in rotation
// and moves it to IN_PROGRESS. The version-guarded write races cleanly with
// concurrent transitions; a lost race is retried once with fresh state before
// surfacing CONCURRENT_MODIFICATION.
func (s *AssignmentService) Assign(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	engineers, err := s.directory.ListEngineers(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if len(engineers) == 0 {
		return nil, apperrors.NewNoEngineerAvailable()
	}

	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	if err := assignable(ticket); err != nil {
		return nil, err
	}

	const attempts = 2
	for attempt := 1; ; attempt++ {
		// An unseeded queue is seeded with the first engineer in directory
		// order; the queue performs check-and-seed atomically so concurrent
		// assignments cannot double-seed the rotation.
		engineerID, err := s.queue.RotateOrSeed(ctx, engineers[0].ID)
		if err != nil {
			return nil, apperrors.MapError(err)
		}

		updated, err := s.tickets.ConditionalUpdate(ctx, ticket.ID, ticket.Version, func(t *domain.Ticket) error {
			if err := assignable(t); err != nil {
				return err
			}
			t.EngineerID = &engineerID
			t.Status = domain.TicketStatusInProgress
			return nil
		})
		if err == nil {
			s.publishAssigned(ctx, updated.ID, engineerID)
			return updated, nil
		}
		if !errors.Is(err, repository.ErrVersionConflict) {
			return nil, apperrors.MapError(err)
		}
		if attempt >= attempts {
			return nil, apperrors.NewConcurrentModification("ticket", map[string]any{"ticket_id": ticket.ID})
		}

		// Lost the race once; re-read and check the precondition still holds
		// before rotating the queue again.
		ticket, err = s.tickets.GetByID(ctx, ticket.ID)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		if err := assignable(ticket); err != nil {
			return nil, err
		}
		s.logger.Debug("assignment lost version race, retrying",
			zap.String("ticket_id", ticket.ID),
			zap.Int64("version", ticket.Version))
	}
}

func assignable(ticket *domain.Ticket) error {
	if ticket.Status != domain.TicketStatusOpen || ticket.EngineerID != nil {
		return apperrors.NewInvalidState("ticket is not open and unassigned", map[string]any{
			"ticket_id": ticket.ID,
			"status":    ticket.Status,
		})
	}
	return nil
}

func (s *AssignmentService) publishAssigned(ctx context.Context, ticketID, engineerID string) {
	if s.dispatcher == nil {
		return
	}
	event := events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventTicketAssigned,
		TicketID:  ticketID,
		Actor:     events.Actor{System: true},
		Timestamp: time.Now(),
		Payload:   events.TicketAssignedPayload{EngineerID: engineerID},
	}
	_ = s.dispatcher.Publish(ctx, event)
}
