package domain

import "errors"

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound     = errors.New("recurso no encontrado")
	ErrInvalidInput = errors.New("entrada inválida")
	ErrDuplicate    = errors.New("recurso duplicado")
	ErrUnauthorized = errors.New("no autorizado")
	ErrForbidden    = errors.New("acceso denegado")
	ErrConflict     = errors.New("conflicto con el estado actual")
)

// Errores de facturación. Son rechazos de precondición: se devuelven al
// llamador con un motivo descriptivo y nunca se reintentan automáticamente.
var (
	ErrNothingToBill      = errors.New("no unbilled items for ticket")
	ErrZeroValue          = errors.New("calculated billable value is zero")
	ErrInvoiceAlreadyPaid = errors.New("invoice already paid")
	ErrInvoiceNotDraft    = errors.New("invoice must be in draft status")
	ErrInvoiceLocked      = errors.New("invoice is paid or void and cannot be edited")
	ErrInvalidTransition  = errors.New("invalid invoice status transition")
	ErrAlreadyInvoiced    = errors.New("source record already invoiced")
	ErrRenewalLockHeld    = errors.New("asset already has a pending renewal invoice")
)
