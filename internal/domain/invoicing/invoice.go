package invoicing

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/invoicehub/backend/internal/domain/partner"
	"github.com/invoicehub/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// InvoiceItem represents a line item on an invoice.
// Subtotal is always Quantity * Price, computed at construction and never
// accepted from callers.
type InvoiceItem struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey"`
	InvoiceID uuid.UUID       `gorm:"type:uuid;not null;index"`
	ItemName  string          `gorm:"size:255;not null"`
	Quantity  int             `gorm:"not null"`
	Price     decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Subtotal  decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	CreatedAt time.Time       `gorm:"not null"`
	UpdatedAt time.Time       `gorm:"not null"`
}

// TableName returns the database table name
func (InvoiceItem) TableName() string {
	return "invoice_items"
}

// NewInvoiceItem creates a new line item with a computed subtotal
func NewInvoiceItem(invoiceID uuid.UUID, itemName string, quantity int, price decimal.Decimal) (*InvoiceItem, error) {
	itemName = strings.TrimSpace(itemName)
	if itemName == "" {
		return nil, shared.NewDomainError("INVALID_ITEM_NAME", "Item name cannot be empty")
	}
	if len(itemName) > 255 {
		return nil, shared.NewDomainError("INVALID_ITEM_NAME", "Item name cannot exceed 255 characters")
	}
	if quantity < 1 {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Quantity must be at least 1")
	}
	if price.IsNegative() {
		return nil, shared.NewDomainError("INVALID_PRICE", "Price cannot be negative")
	}

	now := time.Now()
	return &InvoiceItem{
		ID:        uuid.New(),
		InvoiceID: invoiceID,
		ItemName:  itemName,
		Quantity:  quantity,
		Price:     price,
		Subtotal:  price.Mul(decimal.NewFromInt(int64(quantity))),
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Invoice is the aggregate root for an invoice and its line items.
// The invoice number is assigned exactly once at creation and the total is
// recomputed from item subtotals on every mutation of the item set.
type Invoice struct {
	shared.OwnedAggregateRoot
	InvoiceNumber string            `gorm:"size:50;not null;uniqueIndex"`
	CustomerID    uuid.UUID         `gorm:"type:uuid;not null;index"`
	Customer      *partner.Customer `gorm:"foreignKey:CustomerID"`
	DueDate       time.Time         `gorm:"type:date;not null"`
	Items         []InvoiceItem     `gorm:"foreignKey:InvoiceID"`
	Total         decimal.Decimal   `gorm:"type:decimal(18,2);not null"`
}

// TableName returns the database table name
func (Invoice) TableName() string {
	return "invoices"
}

// NewInvoice creates a new empty invoice. The caller must add at least one
// item before the invoice is valid for persistence.
func NewInvoice(ownerID uuid.UUID, invoiceNumber string, customerID uuid.UUID, dueDate time.Time) (*Invoice, error) {
	if ownerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_OWNER", "Owner ID cannot be empty")
	}
	if invoiceNumber == "" {
		return nil, shared.NewDomainError("INVALID_INVOICE_NUMBER", "Invoice number cannot be empty")
	}
	if len(invoiceNumber) > 50 {
		return nil, shared.NewDomainError("INVALID_INVOICE_NUMBER", "Invoice number cannot exceed 50 characters")
	}
	if customerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_CUSTOMER", "Customer ID cannot be empty")
	}
	if dueDate.IsZero() {
		return nil, shared.NewDomainError("INVALID_DUE_DATE", "Due date cannot be empty")
	}

	return &Invoice{
		OwnedAggregateRoot: shared.NewOwnedAggregateRoot(ownerID),
		InvoiceNumber:      invoiceNumber,
		CustomerID:         customerID,
		DueDate:            dueDate,
		Items:              make([]InvoiceItem, 0),
		Total:              decimal.Zero,
	}, nil
}

// AddItem appends a line item and recalculates the total
func (inv *Invoice) AddItem(itemName string, quantity int, price decimal.Decimal) (*InvoiceItem, error) {
	item, err := NewInvoiceItem(inv.ID, itemName, quantity, price)
	if err != nil {
		return nil, err
	}

	inv.Items = append(inv.Items, *item)
	inv.recalculateTotal()
	inv.IncrementVersion()
	return item, nil
}

// ReplaceItems drops all existing line items and adds the given ones.
// The item set must end up non-empty; on any validation failure the
// invoice is left unchanged.
func (inv *Invoice) ReplaceItems(items []ItemInput) error {
	if len(items) == 0 {
		return shared.NewDomainError("INVALID_ITEMS", "Invoice must have at least one item")
	}

	newItems := make([]InvoiceItem, 0, len(items))
	for _, in := range items {
		item, err := NewInvoiceItem(inv.ID, in.ItemName, in.Quantity, in.Price)
		if err != nil {
			return err
		}
		newItems = append(newItems, *item)
	}

	inv.Items = newItems
	inv.recalculateTotal()
	inv.IncrementVersion()
	return nil
}

// ItemInput carries the caller-supplied fields of a line item
type ItemInput struct {
	ItemName string
	Quantity int
	Price    decimal.Decimal
}

// ChangeCustomer reassigns the invoice to another customer
func (inv *Invoice) ChangeCustomer(customerID uuid.UUID) error {
	if customerID == uuid.Nil {
		return shared.NewDomainError("INVALID_CUSTOMER", "Customer ID cannot be empty")
	}
	inv.CustomerID = customerID
	inv.Customer = nil
	inv.IncrementVersion()
	return nil
}

// ChangeDueDate updates the due date
func (inv *Invoice) ChangeDueDate(dueDate time.Time) error {
	if dueDate.IsZero() {
		return shared.NewDomainError("INVALID_DUE_DATE", "Due date cannot be empty")
	}
	inv.DueDate = dueDate
	inv.IncrementVersion()
	return nil
}

// Validate checks aggregate-level invariants before persistence
func (inv *Invoice) Validate() error {
	if len(inv.Items) == 0 {
		return shared.NewDomainError("INVALID_ITEMS", "Invoice must have at least one item")
	}
	return nil
}

// recalculateTotal sums the item subtotals into Total
func (inv *Invoice) recalculateTotal() {
	total := decimal.Zero
	for _, item := range inv.Items {
		total = total.Add(item.Subtotal)
	}
	inv.Total = total
}
