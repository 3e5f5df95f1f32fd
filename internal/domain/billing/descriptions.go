package billing

import (
	"fmt"
	"strings"
	"time"
)

// DefaultLabourName nombre usado cuando la entrada de horas no tiene tarifa vinculada.
const DefaultLabourName = "Labour"

// ExpiryLayout formato de fecha mostrado en descripciones y correos (dd/mm/yyyy).
const ExpiryLayout = "02/01/2006"

// TimeEntryDescription "Remote Support - Ana: reset router [Ticket #42]".
func TimeEntryDescription(productName, technician, note string, ticketNumber int) string {
	if strings.TrimSpace(productName) == "" {
		productName = DefaultLabourName
	}
	var b strings.Builder
	b.WriteString(productName)
	if technician != "" {
		b.WriteString(" - ")
		b.WriteString(technician)
	}
	if n := strings.TrimSpace(note); n != "" {
		b.WriteString(": ")
		b.WriteString(n)
	}
	fmt.Fprintf(&b, " [Ticket #%d]", ticketNumber)
	return b.String()
}

// MaterialDescription "Cat6 cable 3m (spare) [Ticket #42]".
func MaterialDescription(productName, note string, ticketNumber int) string {
	var b strings.Builder
	b.WriteString(productName)
	if n := strings.TrimSpace(note); n != "" {
		b.WriteString(" (")
		b.WriteString(n)
		b.WriteString(")")
	}
	fmt.Fprintf(&b, " [Ticket #%d]", ticketNumber)
	return b.String()
}

// RenewalDescription línea de renovación de un activo. La nueva fecha solo se
// incluye si la frecuencia del producto es reconocida (hasNext).
func RenewalDescription(productName, assetName string, next time.Time, hasNext bool) string {
	s := fmt.Sprintf("Renewal: %s - %s", productName, assetName)
	if hasNext {
		s += " (New expiry: " + next.Format(ExpiryLayout) + ")"
	}
	return s
}
