// Package notifier turns domain events into customer SMS and owner email.
package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/salonbook/salonbook/libs/apperr"
	"github.com/salonbook/salonbook/libs/events"
	"github.com/salonbook/salonbook/libs/kafkax"
	"github.com/salonbook/salonbook/libs/phone"
	"github.com/salonbook/salonbook/libs/sms"
	"github.com/salonbook/salonbook/services/notification-service/internal/email"
	"github.com/salonbook/salonbook/services/notification-service/internal/storage"
	"github.com/segmentio/kafka-go"
)

const (
	TemplateRequested = "appointment_requested"
	TemplateBooked    = "appointment_booked"
	TemplateConfirmed = "appointment_confirmed"
	TemplateCancelled = "appointment_cancelled"
	TemplateWelcome   = "tenant_welcome"
)

// Store is the persistence the notifier needs.
type Store interface {
	Customer(ctx context.Context, tenantID, customerID string) (storage.Contact, error)
	BusinessName(ctx context.Context, tenantID string) (string, error)
	Insert(ctx context.Context, n storage.Notification) error
}

type Notifier struct {
	store  Store
	sms    sms.Sender
	email  email.Sender
	logger *slog.Logger
	sent   *prometheus.CounterVec
}

// New registers the delivery counter on reg when it is non-nil.
func New(store Store, smsSender sms.Sender, emailSender email.Sender, logger *slog.Logger, reg prometheus.Registerer) *Notifier {
	sent := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "salonbook_notifications_total",
		Help: "Notification deliveries by channel, template and status.",
	}, []string{"channel", "template", "status"})
	if reg != nil {
		reg.MustRegister(sent)
	}
	return &Notifier{store: store, sms: smsSender, email: emailSender, logger: logger, sent: sent}
}

// Handle processes one Kafka message. Malformed payloads and events that need
// no message are dropped without error; only storage failures are returned.
func (n *Notifier) Handle(ctx context.Context, msg kafka.Message) error {
	meta := kafkax.ExtractEventMeta(msg)
	switch meta.EventType {
	case events.AppointmentCreated, events.AppointmentStatusChanged, events.AppointmentDeleted:
		var appt events.Appointment
		if err := json.Unmarshal(msg.Value, &appt); err != nil {
			n.logger.Error("invalid appointment payload", "err", err, "event_id", meta.EventID)
			return nil
		}
		return n.appointment(ctx, meta.EventType, appt)
	case events.TenantRegistered:
		var tenant events.Tenant
		if err := json.Unmarshal(msg.Value, &tenant); err != nil {
			n.logger.Error("invalid tenant payload", "err", err, "event_id", meta.EventID)
			return nil
		}
		return n.welcome(ctx, tenant)
	default:
		n.logger.Debug("event ignored", "event_type", meta.EventType)
		return nil
	}
}

// TemplateFor picks the SMS template for an appointment event, or "" when the
// customer is not told about it.
func TemplateFor(eventType string, appt events.Appointment) string {
	switch eventType {
	case events.AppointmentCreated:
		if appt.Status == "pending" {
			return TemplateRequested
		}
		return TemplateBooked
	case events.AppointmentStatusChanged:
		switch appt.Status {
		case "confirmed":
			return TemplateConfirmed
		case "cancelled":
			return TemplateCancelled
		}
	}
	return ""
}

func renderSMS(template, salon string, appt events.Appointment) string {
	var body string
	switch template {
	case TemplateRequested:
		body = fmt.Sprintf("We received your request for %s at %s. We will confirm it shortly.", appt.Date, appt.Time)
	case TemplateBooked:
		body = fmt.Sprintf("Your appointment on %s at %s is booked.", appt.Date, appt.Time)
	case TemplateConfirmed:
		body = fmt.Sprintf("Your appointment on %s at %s is confirmed.", appt.Date, appt.Time)
	case TemplateCancelled:
		body = fmt.Sprintf("Your appointment on %s at %s was cancelled.", appt.Date, appt.Time)
	}
	if salon != "" {
		body = "[" + salon + "] " + body
	}
	return body
}

func (n *Notifier) appointment(ctx context.Context, eventType string, appt events.Appointment) error {
	template := TemplateFor(eventType, appt)
	if template == "" {
		return nil
	}
	contact, err := n.store.Customer(ctx, appt.TenantID, appt.CustomerID)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			n.logger.Warn("customer not found, skipping sms", "appointment_id", appt.AppointmentID, "customer_id", appt.CustomerID)
			return nil
		}
		return err
	}
	salon, err := n.store.BusinessName(ctx, appt.TenantID)
	if err != nil {
		return err
	}

	record := storage.Notification{
		TenantID:      appt.TenantID,
		AppointmentID: appt.AppointmentID,
		Channel:       storage.ChannelSMS,
		Recipient:     contact.Phone,
		Template:      template,
		Provider:      n.sms.ProviderID(),
	}
	sendErr := n.sms.Send(ctx, contact.Phone, renderSMS(template, salon, appt))
	if sendErr != nil {
		n.logger.Error("sms send failed", "err", sendErr, "to", phone.Mask(contact.Phone), "appointment_id", appt.AppointmentID)
	}
	return n.record(ctx, record, sendErr)
}

func (n *Notifier) welcome(ctx context.Context, tenant events.Tenant) error {
	if tenant.OwnerEmail == "" {
		return nil
	}
	record := storage.Notification{
		TenantID:      tenant.TenantID,
		AppointmentID: tenant.TenantID,
		Channel:       storage.ChannelEmail,
		Recipient:     tenant.OwnerEmail,
		Template:      TemplateWelcome,
		Provider:      n.email.ProviderID(),
	}
	sendErr := n.email.Send(ctx, email.Message{
		To:      tenant.OwnerEmail,
		Subject: "Welcome to SalonBook",
		Body: fmt.Sprintf("%s is ready. Add your staff and services, then share your booking link with customers.",
			tenant.BusinessName),
	})
	if sendErr != nil {
		n.logger.Error("email send failed", "err", sendErr, "tenant_id", tenant.TenantID)
	}
	return n.record(ctx, record, sendErr)
}

func (n *Notifier) record(ctx context.Context, rec storage.Notification, sendErr error) error {
	rec.Status = storage.StatusSent
	if sendErr != nil {
		rec.Status = storage.StatusFailed
		rec.Error = sendErr.Error()
	}
	n.sent.WithLabelValues(rec.Channel, rec.Template, rec.Status).Inc()
	if err := n.store.Insert(ctx, rec); err != nil {
		return err
	}
	n.logger.Info("notification processed", "channel", rec.Channel, "template", rec.Template, "status", rec.Status)
	return nil
}
