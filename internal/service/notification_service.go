package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-routing/internal/domain"
	"github.com/spec-kit/ticket-routing/internal/events"
	"github.com/spec-kit/ticket-routing/internal/repository"
	apperrors "github.com/spec-kit/ticket-routing/pkg/util"
)

// NotificationService appends notification records for lifecycle transitions
// and lets owners read and acknowledge them.
type NotificationService struct {
	notifications repository.NotificationStore
	directory     repository.Directory
	dispatcher    events.Dispatcher
	logger        *zap.Logger
}

// NotificationDependencies bundles collaborators.
type NotificationDependencies struct {
	NotificationStore repository.NotificationStore
	Directory         repository.Directory
	Dispatcher        events.Dispatcher
	Logger            *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(deps NotificationDependencies) *NotificationService {
	return &NotificationService{
		notifications: deps.NotificationStore,
		directory:     deps.Directory,
		dispatcher:    deps.Dispatcher,
		logger:        deps.Logger,
	}
}

// RegisterHandlers subscribes to lifecycle events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketStatusChanged, n.handleTicketStatusChanged)
}

// handleTicketStatusChanged appends exactly one notification to the customer
// when their ticket enters RESOLVED. Other transitions carry no side effect.
func (n *NotificationService) handleTicketStatusChanged(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketStatusChangedPayload)
	if !ok {
		return nil
	}
	if payload.NewStatus != domain.TicketStatusResolved {
		return nil
	}
	content := fmt.Sprintf("Your ticket #%s has been resolved", event.TicketID)
	notification, err := n.Notify(ctx, payload.CustomerID, content)
	if err != nil {
		return err
	}
	n.logger.Info("resolution notification created",
		zap.String("ticket_id", event.TicketID),
		zap.String("notification_id", notification.ID),
		zap.String("user_id", payload.CustomerID))
	return nil
}

// Notify appends a new unread notification for the user. Existing records are
// never mutated or deduplicated.
func (n *NotificationService) Notify(ctx context.Context, userID, content string) (*domain.Notification, error) {
	if _, err := n.directory.GetUser(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewUnknownUser(userID)
		}
		return nil, apperrors.MapError(err)
	}
	notification := &domain.Notification{
		UserID:  userID,
		Content: content,
		Read:    false,
	}
	if err := n.notifications.Create(ctx, notification); err != nil {
		return nil, apperrors.MapError(err)
	}
	return notification, nil
}

// MarkRead flips the read flag for the owning user. Repeat calls are no-ops,
// not errors.
func (n *NotificationService) MarkRead(ctx context.Context, notificationID, actorID string) error {
	notification, err := n.notifications.GetByID(ctx, notificationID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NewNotFound("notification", map[string]any{"notification_id": notificationID})
		}
		return apperrors.MapError(err)
	}
	if notification.UserID != actorID {
		return apperrors.NewForbidden("notification belongs to another user")
	}
	if notification.Read {
		return nil
	}
	if err := n.notifications.MarkRead(ctx, notificationID); err != nil {
		return apperrors.MapError(err)
	}
	return nil
}

// ListForUser returns the user's notifications, newest first.
func (n *NotificationService) ListForUser(ctx context.Context, userID string, unreadOnly bool) ([]domain.Notification, error) {
	result, err := n.notifications.ListByUser(ctx, userID, unreadOnly)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return result, nil
}
