package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-routing/internal/domain"
	"github.com/spec-kit/ticket-routing/internal/events"
	"github.com/spec-kit/ticket-routing/internal/repository"
	apperrors "github.com/spec-kit/ticket-routing/pkg/util"
)

// transitionActor names who may drive a transition.
type transitionActor int

const (
	// actorSystem transitions happen only inside the assignment engine and
	// are rejected when requested through Transition.
	actorSystem transitionActor = iota
	actorAssignedEngineer
	actorTicketCustomer
	actorAdmin
)

type transitionRule struct {
	actor            transitionActor
	requiresSolution bool
}

// transitionTable holds the legal (from, to) pairs outside the admin CLOSED
// override, which is handled separately because it applies from any
// non-terminal state.
var transitionTable = map[domain.TicketStatus]map[domain.TicketStatus]transitionRule{
	domain.TicketStatusOpen: {
		domain.TicketStatusInProgress: {actor: actorSystem},
	},
	domain.TicketStatusInProgress: {
		domain.TicketStatusResolved: {actor: actorAssignedEngineer, requiresSolution: true},
	},
	domain.TicketStatusResolved: {
		domain.TicketStatusConfirmed:  {actor: actorTicketCustomer},
		domain.TicketStatusInProgress: {actor: actorAssignedEngineer},
	},
}

// TransitionInput carries the optional payload of a transition.
type TransitionInput struct {
	Solution string
}

// LifecycleService validates and applies ticket status transitions.
type LifecycleService struct {
	tickets    repository.TicketStore
	directory  repository.Directory
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// LifecycleDependencies bundles collaborators.
type LifecycleDependencies struct {
	TicketStore repository.TicketStore
	Directory   repository.Directory
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
}

// NewLifecycleService creates the service.
func NewLifecycleService(deps LifecycleDependencies) *LifecycleService {
	return &LifecycleService{
		tickets:    deps.TicketStore,
		directory:  deps.Directory,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
	}
}

// Transition moves the ticket to target on behalf of actorID. The write is
// version-guarded; a competing writer surfaces as CONCURRENT_MODIFICATION and
// the caller decides whether to re-read and retry.
func (s *LifecycleService) Transition(ctx context.Context, ticketID string, target domain.TicketStatus, actorID string, input TransitionInput) (*domain.Ticket, error) {
	actor, err := s.directory.GetUser(ctx, actorID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("user", map[string]any{"user_id": actorID})
		}
		return nil, apperrors.MapError(err)
	}

	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}

	rule, err := ruleFor(ticket.Status, target)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(rule.actor, actor, ticket); err != nil {
		return nil, err
	}

	solution := strings.TrimSpace(input.Solution)
	if rule.requiresSolution && solution == "" {
		return nil, apperrors.NewValidationError("solution text is required", map[string]any{
			"target_status": target,
		})
	}

	oldStatus := ticket.Status
	updated, err := s.tickets.ConditionalUpdate(ctx, ticket.ID, ticket.Version, func(t *domain.Ticket) error {
		t.Status = target
		if solution != "" {
			t.Solution = &solution
		}
		if target == domain.TicketStatusClosed {
			now := time.Now()
			t.ClosedAt = &now
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			return nil, apperrors.NewConcurrentModification("ticket", map[string]any{"ticket_id": ticket.ID})
		}
		return nil, apperrors.MapError(err)
	}

	if err := s.publishStatusChanged(ctx, actor, updated, oldStatus); err != nil {
		return nil, apperrors.MapError(err)
	}
	return updated, nil
}

// ruleFor resolves the transition table entry, with the admin override to
// CLOSED from any non-terminal state handled first.
func ruleFor(current, target domain.TicketStatus) (transitionRule, error) {
	if current.Terminal() {
		return transitionRule{}, apperrors.NewIllegalTransition("ticket is in a terminal status", map[string]any{
			"status": current,
		})
	}
	if target == domain.TicketStatusClosed {
		return transitionRule{actor: actorAdmin}, nil
	}
	rule, ok := transitionTable[current][target]
	if !ok {
		return transitionRule{}, apperrors.NewIllegalTransition("status transition not allowed", map[string]any{
			"from": current,
			"to":   target,
		})
	}
	return rule, nil
}

func (s *LifecycleService) authorize(required transitionActor, actor *domain.User, ticket *domain.Ticket) error {
	switch required {
	case actorSystem:
		return apperrors.NewForbidden("transition is reserved for the assignment engine")
	case actorAssignedEngineer:
		if actor.Role == domain.RoleEngineer && ticket.EngineerID != nil && *ticket.EngineerID == actor.ID {
			return nil
		}
		return apperrors.NewForbidden("only the assigned engineer may perform this transition")
	case actorTicketCustomer:
		if actor.Role == domain.RoleCustomer && ticket.CustomerID == actor.ID {
			return nil
		}
		return apperrors.NewForbidden("only the ticket's customer may perform this transition")
	case actorAdmin:
		if actor.Role == domain.RoleAdmin {
			return nil
		}
		return apperrors.NewForbidden("admin role required")
	}
	return apperrors.NewForbidden("transition not permitted")
}

// publishStatusChanged runs the side-effect handlers synchronously so the
// paired notification lands before Transition returns.
func (s *LifecycleService) publishStatusChanged(ctx context.Context, actor *domain.User, ticket *domain.Ticket, oldStatus domain.TicketStatus) error {
	if s.dispatcher == nil {
		return nil
	}
	event := events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventTicketStatusChanged,
		TicketID:  ticket.ID,
		Actor:     events.Actor{Role: actor.Role, ActorID: actor.ID},
		Timestamp: time.Now(),
		Payload: events.TicketStatusChangedPayload{
			OldStatus:  oldStatus,
			NewStatus:  ticket.Status,
			CustomerID: ticket.CustomerID,
			EngineerID: ticket.EngineerID,
		},
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Error("status change side effect failed",
			zap.String("ticket_id", ticket.ID),
			zap.Error(err))
		return err
	}
	return nil
}
