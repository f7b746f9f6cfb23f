package invoicing

import (
	"time"

	"github.com/google/uuid"
	"github.com/invoicehub/backend/internal/domain/invoicing"
	"github.com/shopspring/decimal"
)

// CreateInvoiceRequest represents a request to create an invoice
type CreateInvoiceRequest struct {
	CustomerID uuid.UUID          `json:"customer_id" binding:"required"`
	DueDate    time.Time          `json:"due_date" binding:"required"`
	Items      []InvoiceItemInput `json:"items" binding:"required,min=1,dive"`
}

// InvoiceItemInput represents a line item in create and update requests.
// Subtotals and totals are always computed server-side.
type InvoiceItemInput struct {
	ItemName string          `json:"item_name" binding:"required,min=1,max=255"`
	Quantity int             `json:"qty" binding:"required,min=1"`
	Price    decimal.Decimal `json:"price" binding:"required"`
}

// UpdateInvoiceRequest represents a request to update an invoice.
// Updates carry the complete document: customer, due date and the full item
// list are all required, exactly as on create, and overwrite the stored
// values. Version is optional; when provided it must match the current
// aggregate version.
type UpdateInvoiceRequest struct {
	CustomerID uuid.UUID          `json:"customer_id" binding:"required"`
	DueDate    time.Time          `json:"due_date" binding:"required"`
	Items      []InvoiceItemInput `json:"items" binding:"required,min=1,dive"`
	Version    *int               `json:"version"`
}

// InvoiceListFilter represents filter options for the invoice list
type InvoiceListFilter struct {
	Search     string     `form:"search"`
	CustomerID *uuid.UUID `form:"customer_id"`
	DueBefore  *time.Time `form:"due_before"`
	DueAfter   *time.Time `form:"due_after"`
	Page       int        `form:"page" binding:"omitempty,min=1"`
	PageSize   int        `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy    string     `form:"order_by" binding:"omitempty,oneof=created_at due_date invoice_number total"`
	OrderDir   string     `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// InvoiceItemResponse represents a line item in API responses
type InvoiceItemResponse struct {
	ID       uuid.UUID       `json:"id"`
	ItemName string          `json:"item_name"`
	Quantity int             `json:"qty"`
	Price    decimal.Decimal `json:"price"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

// InvoiceResponse represents an invoice in API responses
type InvoiceResponse struct {
	ID            uuid.UUID             `json:"id"`
	InvoiceNumber string                `json:"invoice_number"`
	CustomerID    uuid.UUID             `json:"customer_id"`
	CustomerName  string                `json:"customer_name,omitempty"`
	DueDate       time.Time             `json:"due_date"`
	Items         []InvoiceItemResponse `json:"items"`
	ItemCount     int                   `json:"item_count"`
	Total         decimal.Decimal       `json:"total"`
	Version       int                   `json:"version"`
	CreatedAt     time.Time             `json:"created_at"`
	UpdatedAt     time.Time             `json:"updated_at"`
}

// ToInvoiceResponse maps an invoice aggregate to its API representation
func ToInvoiceResponse(inv *invoicing.Invoice) InvoiceResponse {
	items := make([]InvoiceItemResponse, len(inv.Items))
	for i, item := range inv.Items {
		items[i] = InvoiceItemResponse{
			ID:       item.ID,
			ItemName: item.ItemName,
			Quantity: item.Quantity,
			Price:    item.Price,
			Subtotal: item.Subtotal,
		}
	}

	resp := InvoiceResponse{
		ID:            inv.ID,
		InvoiceNumber: inv.InvoiceNumber,
		CustomerID:    inv.CustomerID,
		DueDate:       inv.DueDate,
		Items:         items,
		ItemCount:     len(items),
		Total:         inv.Total,
		Version:       inv.Version,
		CreatedAt:     inv.CreatedAt,
		UpdatedAt:     inv.UpdatedAt,
	}
	if inv.Customer != nil {
		resp.CustomerName = inv.Customer.Name
	}
	return resp
}

// toItemInputs maps request items to domain item inputs
func toItemInputs(items []InvoiceItemInput) []invoicing.ItemInput {
	inputs := make([]invoicing.ItemInput, len(items))
	for i, item := range items {
		inputs[i] = invoicing.ItemInput{
			ItemName: item.ItemName,
			Quantity: item.Quantity,
			Price:    item.Price,
		}
	}
	return inputs
}
