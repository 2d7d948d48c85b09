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

// TicketService is the engine's outward face: it creates tickets, hands them
// to the assignment engine, and exposes role-scoped reads.
type TicketService struct {
	tickets    repository.TicketStore
	directory  repository.Directory
	catalog    repository.ServiceCatalog
	assigner   *AssignmentService
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// TicketDependencies bundles collaborators for ticket service.
type TicketDependencies struct {
	TicketStore repository.TicketStore
	Directory   repository.Directory
	Catalog     repository.ServiceCatalog
	Assigner    *AssignmentService
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Title       string
	ServiceType string
	Description string
}

// TicketListFilter describes listing options for the ticket views.
type TicketListFilter struct {
	Statuses []domain.TicketStatus
	Limit    int
	Offset   int
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets:    deps.TicketStore,
		directory:  deps.Directory,
		catalog:    deps.Catalog,
		assigner:   deps.Assigner,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
	}
}

// CreateTicket files a ticket for the customer in status OPEN and immediately
// invokes the assignment engine. When no engineer is registered yet the
// ticket is returned still OPEN; that outcome is recoverable and must not
// fail the creation.
func (s *TicketService) CreateTicket(ctx context.Context, customerID string, input TicketCreateInput) (*domain.Ticket, error) {
	customer, err := s.directory.GetUser(ctx, customerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("user", map[string]any{"user_id": customerID})
		}
		return nil, apperrors.MapError(err)
	}
	if customer.Role != domain.RoleCustomer {
		return nil, apperrors.NewForbidden("only customers may file tickets")
	}

	title := strings.TrimSpace(input.Title)
	description := strings.TrimSpace(input.Description)
	serviceType := strings.TrimSpace(input.ServiceType)
	if title == "" || description == "" || serviceType == "" {
		return nil, apperrors.NewValidationError("title, service_type and description are required", nil)
	}
	if _, err := s.catalog.GetByName(ctx, serviceType); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewValidationError("unknown service type", map[string]any{
				"service_type": serviceType,
			})
		}
		return nil, apperrors.MapError(err)
	}

	ticket := &domain.Ticket{
		ExternalKey: generateTicketKey(),
		CustomerID:  customer.ID,
		Title:       title,
		ServiceType: serviceType,
		Description: description,
		Status:      domain.TicketStatusOpen,
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Actor:    events.Actor{Role: domain.RoleCustomer, ActorID: customer.ID},
		Payload: events.TicketCreatedPayload{
			CustomerID:  ticket.CustomerID,
			ServiceType: ticket.ServiceType,
			Title:       ticket.Title,
		},
	})

	assigned, err := s.assigner.Assign(ctx, ticket.ID)
	if err != nil {
		if apperrors.HasCode(err, apperrors.CodeNoEngineerAvailable) {
			s.logger.Warn("ticket left open, no engineer available",
				zap.String("ticket_id", ticket.ID))
			return ticket, nil
		}
		return nil, err
	}
	return assigned, nil
}

// GetTicketForActor fetches a ticket the actor is allowed to see: its
// customer, its assigned engineer, or an admin.
func (s *TicketService) GetTicketForActor(ctx context.Context, actorID, ticketID string) (*domain.Ticket, error) {
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
	if !canView(actor, ticket) {
		return nil, apperrors.NewForbidden("access denied")
	}
	return ticket, nil
}

// ListCustomerTickets returns the customer's own tickets.
func (s *TicketService) ListCustomerTickets(ctx context.Context, customerID string, filter TicketListFilter) ([]domain.Ticket, error) {
	result, err := s.tickets.ListWithFilter(ctx, repository.TicketFilter{
		CustomerID: &customerID,
		Statuses:   filter.Statuses,
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return result, nil
}

// ListEngineerTickets returns tickets assigned to the engineer.
func (s *TicketService) ListEngineerTickets(ctx context.Context, engineerID string, filter TicketListFilter) ([]domain.Ticket, error) {
	result, err := s.tickets.ListWithFilter(ctx, repository.TicketFilter{
		EngineerID: &engineerID,
		Statuses:   filter.Statuses,
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return result, nil
}

func canView(actor *domain.User, ticket *domain.Ticket) bool {
	switch actor.Role {
	case domain.RoleAdmin:
		return true
	case domain.RoleCustomer:
		return ticket.CustomerID == actor.ID
	case domain.RoleEngineer:
		return ticket.EngineerID != nil && *ticket.EngineerID == actor.ID
	}
	return false
}

func generateTicketKey() string {
	return "TCK-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}
