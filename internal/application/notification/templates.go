package notification

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Label etiqueta legible: "yearly" -> "Yearly", "domain_name" -> "Domain Name".
func Label(s string) string {
	if s == "" {
		return ""
	}
	// Caser no es seguro entre goroutines.
	return cases.Title(language.English).String(strings.ReplaceAll(s, "_", " "))
}

// PlainToHTML convierte texto plano en un párrafo HTML escapado.
func PlainToHTML(s string) string {
	return "<p>" + strings.ReplaceAll(template.HTMLEscapeString(s), "\n", "<br>") + "</p>"
}

// RenewalInvoiceEmail datos del correo al cliente con la factura de renovación.
type RenewalInvoiceEmail struct {
	AccountName string
	AssetName   string
	AssetType   string
	ProductName string
	Frequency   string
	ExpiresAt   string
	Total       string
	DueDate     string
	InvoiceURL  string
}

// Subject asunto del correo.
func (e RenewalInvoiceEmail) Subject() string {
	return fmt.Sprintf("Renewal invoice: %s", e.AssetName)
}

var renewalInvoiceTmpl = template.Must(template.New("renewal_invoice").Funcs(template.FuncMap{
	"label": Label,
}).Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #222;">
  <p>Hello {{.AccountName}},</p>
  <p>Your {{label .AssetType}} <strong>{{.AssetName}}</strong> expires on {{.ExpiresAt}}.
  We have issued a renewal invoice for {{.ProductName}}{{if .Frequency}} ({{label .Frequency}}){{end}}.</p>
  <table cellpadding="6" style="border-collapse: collapse;">
    <tr><td>Amount due (incl. GST)</td><td><strong>{{.Total}}</strong></td></tr>
    <tr><td>Due date</td><td>{{.DueDate}}</td></tr>
  </table>
  {{if .InvoiceURL}}<p><a href="{{.InvoiceURL}}">View invoice</a></p>{{end}}
  <p>Thank you.</p>
</body>
</html>`))

// Render genera el HTML del correo.
func (e RenewalInvoiceEmail) Render() (string, error) {
	var buf bytes.Buffer
	if err := renewalInvoiceTmpl.Execute(&buf, e); err != nil {
		return "", fmt.Errorf("render renewal email: %w", err)
	}
	return buf.String(), nil
}
