package partner

import (
	"context"

	"github.com/google/uuid"
	"github.com/invoicehub/backend/internal/domain/shared"
)

// CustomerRepository defines persistence operations for customers
type CustomerRepository interface {
	shared.OwnedRepository[Customer]

	// HasInvoices reports whether any invoices still reference the customer.
	// Deletion is refused while references exist.
	HasInvoices(ctx context.Context, customerID uuid.UUID) (bool, error)
}
