package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Frecuencias de cobro de productos recurrentes.
const (
	BillingFrequencyMonthly   = "monthly"
	BillingFrequencyQuarterly = "quarterly"
	BillingFrequencyYearly    = "yearly"
)

// Product definición de facturación: tarifa horaria, material o servicio recurrente.
type Product struct {
	ID               string
	Name             string
	UnitPrice        decimal.Decimal
	IsRecurring      bool
	BillingFrequency string // "" si no es recurrente
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
