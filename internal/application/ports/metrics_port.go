package ports

// BillingMetrics contadores de negocio de facturación y renovaciones.
type BillingMetrics interface {
	InvoiceGenerated(source string)
	RenewalOutcome(outcome string)
	EscalationSent()
	NotificationFailed(channel string)
	TaskFailed(task string)
}

// NopMetrics implementación vacía para tests y comandos sin /metrics.
type NopMetrics struct{}

func (NopMetrics) InvoiceGenerated(string)   {}
func (NopMetrics) RenewalOutcome(string)     {}
func (NopMetrics) EscalationSent()           {}
func (NopMetrics) NotificationFailed(string) {}
func (NopMetrics) TaskFailed(string)         {}
