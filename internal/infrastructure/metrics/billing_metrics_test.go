package metrics_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/msp-api/internal/infrastructure/metrics"
)

func TestBillingMetrics_Contadores(t *testing.T) {
	m := metrics.NewBillingMetrics(nil)

	m.InvoiceGenerated("ticket")
	m.InvoiceGenerated("ticket")
	m.RenewalOutcome("created")
	m.EscalationSent()
	m.TaskFailed("renewal-check")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.InvoicesGenerated.WithLabelValues("ticket")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RenewalOutcomes.WithLabelValues("created")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EscalationsSent))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TasksFailed.WithLabelValues("renewal-check")))
}

func TestBillingMetrics_InstanciasIndependientes(t *testing.T) {
	a := metrics.NewBillingMetrics(nil)
	b := metrics.NewBillingMetrics(nil)
	a.EscalationSent()
	assert.Equal(t, 0.0, testutil.ToFloat64(b.EscalationsSent))
}
