package notifications

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/mailer"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/registry"
)

// Consumer names used for idempotency marks.
const (
	RecorderConsumer = "admin-notifications"
	MailerConsumer   = "customer-mail"
)

type userLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type notificationWriter interface {
	Create(ctx context.Context, n *models.Notification) error
}

// Recorder turns committed domain events into admin dashboard notifications.
type Recorder struct {
	repo notificationWriter
	logg *logger.Logger
}

// NewRecorder builds the admin notification consumer.
func NewRecorder(repo notificationWriter, logg *logger.Logger) (*Recorder, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Recorder{repo: repo, logg: logg}, nil
}

func (r *Recorder) Name() string { return RecorderConsumer }

func (r *Recorder) Handles(eventType enums.OutboxEventType) bool {
	switch eventType {
	case enums.EventOrderCreated, enums.EventReturnRequested, enums.EventStockLow:
		return true
	}
	return false
}

func (r *Recorder) Handle(ctx context.Context, event *registry.ResolvedEvent) error {
	var notification *models.Notification
	switch p := event.Payload.(type) {
	case *payloads.OrderCreatedEvent:
		notification = &models.Notification{
			Type:    enums.NotificationTypeNewOrder,
			Title:   "New order " + p.OrderNumber,
			Message: fmt.Sprintf("%s placed an order of %d item(s) for %s.", p.CustomerName, p.ItemCount, p.TotalPrice.StringFixed(2)),
			Link:    stringPtr("/admin/orders/" + p.OrderID.String()),
		}
	case *payloads.ReturnRequestedEvent:
		notification = &models.Notification{
			Type:    enums.NotificationTypeReturnRequested,
			Title:   "Return requested for " + p.OrderNumber,
			Message: fmt.Sprintf("Reason: %s. Refund requested: %s.", p.Reason, p.RefundTotal.StringFixed(2)),
			Link:    stringPtr("/admin/returns/" + p.ReturnID.String()),
		}
	case *payloads.StockLowEvent:
		name := p.ProductName
		if p.Variation != "" {
			name = fmt.Sprintf("%s (%s)", name, p.Variation)
		}
		notification = &models.Notification{
			Type:    enums.NotificationTypeLowStock,
			Title:   "Low stock: " + p.ProductName,
			Message: fmt.Sprintf("%s has %d unit(s) left, below the threshold of %d.", name, p.Remaining, p.Threshold),
			Link:    stringPtr("/admin/products/" + p.ProductID.String()),
		}
	default:
		return nil
	}
	if err := r.repo.Create(ctx, notification); err != nil {
		return err
	}
	r.logg.Info(r.logg.WithField(ctx, "notification_type", notification.Type), "admin notification recorded")
	return nil
}

// Mailer emails customers about their orders, shipments and returns.
type Mailer struct {
	mail  mailer.Sender
	users userLookup
	logg  *logger.Logger
}

// NewMailer builds the customer mail consumer.
func NewMailer(mail mailer.Sender, users userLookup, logg *logger.Logger) (*Mailer, error) {
	if mail == nil {
		return nil, fmt.Errorf("mail sender required")
	}
	if users == nil {
		return nil, fmt.Errorf("user lookup required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Mailer{mail: mail, users: users, logg: logg}, nil
}

func (m *Mailer) Name() string { return MailerConsumer }

func (m *Mailer) Handles(eventType enums.OutboxEventType) bool {
	switch eventType {
	case enums.EventOrderCreated, enums.EventOrderStatusChanged, enums.EventShipmentStatusChanged, enums.EventReturnStatusChanged:
		return true
	}
	return false
}

func (m *Mailer) Handle(ctx context.Context, event *registry.ResolvedEvent) error {
	switch p := event.Payload.(type) {
	case *payloads.OrderCreatedEvent:
		return m.send(ctx, p.CustomerEmail, mailer.Message{
			Subject:  "We received order " + p.OrderNumber,
			Template: mailer.TemplateOrderCreated,
			Data: map[string]any{
				"CustomerName": p.CustomerName,
				"OrderNumber":  p.OrderNumber,
				"ItemCount":    p.ItemCount,
				"Total":        p.TotalPrice.StringFixed(2),
			},
		})
	case *payloads.OrderStatusChangedEvent:
		return m.send(ctx, p.CustomerEmail, mailer.Message{
			Subject:  fmt.Sprintf("Order %s is %s", p.OrderNumber, p.Status),
			Template: mailer.TemplateOrderStatus,
			Data: map[string]any{
				"CustomerName": p.CustomerName,
				"OrderNumber":  p.OrderNumber,
				"Status":       string(p.Status),
			},
		})
	case *payloads.ShipmentStatusChangedEvent:
		return m.send(ctx, p.CustomerEmail, mailer.Message{
			Subject:  fmt.Sprintf("Order %s is %s", p.OrderNumber, p.Status),
			Template: mailer.TemplateShipmentStatus,
			Data: map[string]any{
				"CustomerName": p.CustomerName,
				"OrderNumber":  p.OrderNumber,
				"Status":       string(p.Status),
			},
		})
	case *payloads.ReturnStatusChangedEvent:
		user, err := m.users.FindByID(ctx, p.UserID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				m.logg.Warn(m.logg.WithField(ctx, "user_id", p.UserID.String()), "return owner missing, mail skipped")
				return nil
			}
			return err
		}
		data := map[string]any{
			"OrderNumber": p.OrderNumber,
			"Status":      string(p.Status),
		}
		if p.RefundTotal.IsPositive() {
			data["RefundTotal"] = p.RefundTotal.StringFixed(2)
		}
		return m.send(ctx, user.Email, mailer.Message{
			Subject:  fmt.Sprintf("Return for order %s is %s", p.OrderNumber, p.Status),
			Template: mailer.TemplateReturnStatus,
			Data:     data,
		})
	}
	return nil
}

func (m *Mailer) send(ctx context.Context, to string, msg mailer.Message) error {
	if to == "" {
		m.logg.Warn(m.logg.WithField(ctx, "template", msg.Template), "customer email missing, mail skipped")
		return nil
	}
	msg.To = to
	return m.mail.Send(ctx, msg)
}

func stringPtr(value string) *string {
	return &value
}
