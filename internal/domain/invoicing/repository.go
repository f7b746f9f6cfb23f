package invoicing

import (
	"context"

	"github.com/invoicehub/backend/internal/domain/shared"
)

// InvoiceNumberPrefix is the fixed prefix of every invoice number.
// Full numbers look like INV-20260901-0001: prefix, issue date, then a
// zero-padded sequence of at least four digits.
const InvoiceNumberPrefix = "INV"

// InvoiceRepository defines persistence operations for invoices.
// Save and SaveWithLock persist the aggregate and its items in a single
// transaction, replacing the stored item set with the in-memory one.
type InvoiceRepository interface {
	shared.OwnedRepository[Invoice]

	// SaveWithLock persists the aggregate only if the stored version matches
	// the version the aggregate was loaded at. Returns
	// shared.ErrConcurrencyConflict otherwise.
	SaveWithLock(ctx context.Context, invoice *Invoice, expectedVersion int) error

	// GenerateInvoiceNumber returns the next number for today: the highest
	// existing sequence for the current date plus one. The read and the
	// subsequent insert are not atomic; the unique index on invoice_number
	// catches the race and callers retry a bounded number of times.
	GenerateInvoiceNumber(ctx context.Context) (string, error)
}
