package notification

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLabel(t *testing.T) {
	assert.Equal(t, "Yearly", Label("yearly"))
	assert.Equal(t, "Domain Name", Label("domain_name"))
	assert.Equal(t, "", Label(""))
}

func TestPlainToHTML_Escapa(t *testing.T) {
	assert.Equal(t, "<p>&lt;b&gt;hola&lt;/b&gt;<br>chao</p>", PlainToHTML("<b>hola</b>\nchao"))
}

func TestRenewalInvoiceEmail_Render(t *testing.T) {
	e := RenewalInvoiceEmail{
		AccountName: "Acme <Pty>",
		AssetName:   "M365 Tenant",
		AssetType:   "software_license",
		ProductName: "Microsoft 365",
		Frequency:   "yearly",
		ExpiresAt:   "2025-03-25",
		Total:       "$290.40",
		DueDate:     "2025-03-25",
		InvoiceURL:  "https://billing.msp.test/invoices/inv-1",
	}

	html, err := e.Render()
	require.NoError(t, err)
	assert.Equal(t, "Renewal invoice: M365 Tenant", e.Subject())
	assert.Contains(t, html, "Acme &lt;Pty&gt;")
	assert.Contains(t, html, "Software License")
	assert.Contains(t, html, "(Yearly)")
	assert.Contains(t, html, "$290.40")
	assert.Contains(t, html, `href="https://billing.msp.test/invoices/inv-1"`)
}

func TestRenewalInvoiceEmail_SinEnlaceNiFrecuencia(t *testing.T) {
	html, err := RenewalInvoiceEmail{AssetName: "Dominio", AssetType: "domain"}.Render()
	require.NoError(t, err)
	assert.NotContains(t, html, "View invoice")
	assert.NotContains(t, html, "()")
}
