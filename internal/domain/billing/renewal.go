package billing

import (
	"time"

	"github.com/jhoicas/msp-api/internal/domain/entity"
)

// Ventanas por defecto del ciclo de renovación (días).
const (
	DefaultRenewalWindowDays    = 30 // vence dentro de 30 días -> se factura
	DefaultDedupWindowDays      = 45 // una factura de renovación en 45 días bloquea otra
	DefaultEscalationWindowDays = 7  // pendiente y a 7 días de vencer -> aviso crítico
	DefaultExpiringWindowDays   = 90 // activo pasa a "expiring"
	DefaultTicketDueDays        = 14
)

// DateOnly trunca a medianoche conservando la zona horaria.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// AddDays suma días calendario sobre la fecha (sin hora).
func AddDays(t time.Time, days int) time.Time {
	return DateOnly(t).AddDate(0, 0, days)
}

// DaysUntil días calendario entre today y expires (negativo si ya venció).
func DaysUntil(expires, today time.Time) int {
	e := DateOnly(expires)
	td := DateOnly(today)
	e = time.Date(e.Year(), e.Month(), e.Day(), 0, 0, 0, 0, time.UTC)
	td = time.Date(td.Year(), td.Month(), td.Day(), 0, 0, 0, 0, time.UTC)
	return int(e.Sub(td).Hours() / 24)
}

// IsRenewalDue un activo está por facturar si expires <= today + windowDays.
// Incluye vencimientos ya pasados (caso de puesta al día).
func IsRenewalDue(expires *time.Time, today time.Time, windowDays int) bool {
	if expires == nil {
		return false
	}
	return DaysUntil(*expires, today) <= windowDays
}

// WithinWindow today <= expires <= today + days.
func WithinWindow(expires *time.Time, today time.Time, days int) bool {
	if expires == nil {
		return false
	}
	n := DaysUntil(*expires, today)
	return n >= 0 && n <= days
}

// NextExpiry nueva fecha de vencimiento tras un ciclo de cobro.
//
// Solo se reconocen "monthly" y "yearly"; para el resto devuelve false.
// Reglas de calendario (aproximadas a propósito, se conservan tal cual):
//   - yearly: 29 de febrero pasa a 28 de febrero si el año destino no es bisiesto.
//   - monthly: si el día no existe en el mes destino (29-31) se fija en 28.
func NextExpiry(expires time.Time, frequency string) (time.Time, bool) {
	y, m, d := expires.Date()
	loc := expires.Location()
	switch frequency {
	case entity.BillingFrequencyYearly:
		ty := y + 1
		if !validDay(ty, m, d) {
			d = 28
		}
		return time.Date(ty, m, d, 0, 0, 0, 0, loc), true
	case entity.BillingFrequencyMonthly:
		tm, ty := m+1, y
		if tm > time.December {
			tm, ty = time.January, y+1
		}
		if !validDay(ty, tm, d) {
			d = 28
		}
		return time.Date(ty, tm, d, 0, 0, 0, 0, loc), true
	default:
		return time.Time{}, false
	}
}

func validDay(year int, month time.Month, day int) bool {
	return day <= daysIn(year, month)
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// NextAssetStatus regla del escaneo periódico de estados:
//   - expires < today                        -> expired (salvo expired/decommissioned)
//   - today <= expires <= today+expiringDays y active -> expiring
//
// Devuelve el nuevo estado y true si cambia.
func NextAssetStatus(a *entity.Asset, today time.Time, expiringDays int) (string, bool) {
	if a.ExpiresAt == nil {
		return a.Status, false
	}
	n := DaysUntil(*a.ExpiresAt, today)
	if n < 0 {
		if a.Status == entity.AssetStatusExpired || a.Status == entity.AssetStatusDecommissioned {
			return a.Status, false
		}
		return entity.AssetStatusExpired, true
	}
	if n <= expiringDays && a.Status == entity.AssetStatusActive {
		return entity.AssetStatusExpiring, true
	}
	return a.Status, false
}
