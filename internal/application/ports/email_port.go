package ports

import "context"

// EmailSender puerto de salida para el envío de correo (SMTP u otro proveedor).
// Un error de envío nunca debe deshacer el trabajo de facturación ya confirmado.
type EmailSender interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}
