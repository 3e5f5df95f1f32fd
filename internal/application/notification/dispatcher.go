// Package notification entrega avisos internos al personal y correos a clientes.
package notification

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jhoicas/msp-api/internal/application/ports"
	"github.com/jhoicas/msp-api/internal/domain/entity"
	"github.com/jhoicas/msp-api/internal/domain/repository"
)

// Tipos de destinatario.
const (
	RecipientUser  = "user"  // aviso interno (tabla notifications)
	RecipientEmail = "email" // correo HTML
)

// Recipient destinatario ya resuelto.
type Recipient struct {
	Type   string
	UserID string
	Email  string
}

// Message contenido de la notificación. HTML solo se usa para destinatarios de correo;
// si va vacío se envía Body.
type Message struct {
	Subject  string
	Body     string
	HTML     string
	Link     string
	Priority string
}

// Dispatcher entrega mensajes a una lista de destinatarios. Es fire-and-forget:
// los fallos se registran y no se propagan.
type Dispatcher struct {
	users         repository.UserRepository
	notifications repository.NotificationRepository
	email         ports.EmailSender
	metrics       ports.BillingMetrics
	log           zerolog.Logger
	now           func() time.Time
}

// NewDispatcher construye el despachador. email puede ser nil (sin SMTP configurado).
func NewDispatcher(
	users repository.UserRepository,
	notifications repository.NotificationRepository,
	email ports.EmailSender,
	metrics ports.BillingMetrics,
	log zerolog.Logger,
) *Dispatcher {
	if metrics == nil {
		metrics = ports.NopMetrics{}
	}
	return &Dispatcher{
		users:         users,
		notifications: notifications,
		email:         email,
		metrics:       metrics,
		log:           log.With().Str("component", "notification").Logger(),
		now:           time.Now,
	}
}

// StaffRecipients todos los admin/tech activos como destinatarios internos.
func (d *Dispatcher) StaffRecipients(ctx context.Context) ([]Recipient, error) {
	staff, err := d.users.ListActiveStaff(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Recipient, 0, len(staff))
	for _, u := range staff {
		out = append(out, Recipient{Type: RecipientUser, UserID: u.ID, Email: u.Email})
	}
	return out, nil
}

// Notify entrega msg a cada destinatario y devuelve cuántas entregas tuvieron éxito.
func (d *Dispatcher) Notify(ctx context.Context, recipients []Recipient, msg Message) int {
	if msg.Priority == "" {
		msg.Priority = entity.PriorityNormal
	}
	sent := 0
	for _, r := range recipients {
		var err error
		switch r.Type {
		case RecipientUser:
			err = d.notifications.Create(ctx, &entity.Notification{
				ID:        uuid.New().String(),
				UserID:    r.UserID,
				Subject:   msg.Subject,
				Message:   msg.Body,
				Link:      msg.Link,
				Priority:  msg.Priority,
				CreatedAt: d.now(),
			})
		case RecipientEmail:
			if d.email == nil {
				d.log.Warn().Str("to", r.Email).Msg("correo omitido: SMTP no configurado")
				continue
			}
			body := msg.HTML
			if body == "" {
				body = PlainToHTML(msg.Body)
			}
			err = d.email.Send(ctx, r.Email, msg.Subject, body)
		default:
			d.log.Warn().Str("type", r.Type).Msg("tipo de destinatario desconocido")
			continue
		}
		if err != nil {
			d.metrics.NotificationFailed(r.Type)
			d.log.Error().Err(err).
				Str("type", r.Type).
				Str("user_id", r.UserID).
				Str("to", r.Email).
				Msg("fallo al entregar notificación")
			continue
		}
		sent++
	}
	return sent
}
