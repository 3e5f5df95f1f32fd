package billing

import (
	"time"

	"github.com/jhoicas/msp-api/internal/application/dto"
	"github.com/jhoicas/msp-api/internal/domain/entity"
)

func toInvoiceResponse(inv *entity.Invoice, items []*entity.InvoiceItem, accountName string) *dto.InvoiceResponse {
	resp := &dto.InvoiceResponse{
		ID:            inv.ID,
		AccountID:     inv.AccountID,
		AccountName:   accountName,
		Status:        inv.Status,
		Subtotal:      inv.Subtotal,
		Tax:           inv.Tax,
		Total:         inv.Total,
		DueDate:       inv.DueDate.Format("2006-01-02"),
		GeneratedAt:   inv.GeneratedAt.Format(time.RFC3339),
		PaymentTerms:  inv.PaymentTerms,
		PaymentMethod: inv.PaymentMethod,
		Items:         make([]dto.InvoiceItemResponse, 0, len(items)),
	}
	if inv.PaidAt != nil {
		resp.PaidAt = inv.PaidAt.Format(time.RFC3339)
	}
	for _, it := range items {
		ir := dto.InvoiceItemResponse{
			ID:          it.ID,
			Description: it.Description,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			Total:       it.Total,
		}
		if it.Source != nil {
			ir.SourceType = it.Source.Type
			ir.SourceID = it.Source.ID
		}
		resp.Items = append(resp.Items, ir)
	}
	return resp
}
