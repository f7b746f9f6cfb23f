package invoicing

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/invoicehub/backend/internal/domain/invoicing"
	"github.com/invoicehub/backend/internal/domain/partner"
	"github.com/invoicehub/backend/internal/domain/shared"
)

// maxNumberRetries bounds how often creation retries after losing the race
// for an invoice number to a concurrent request.
const maxNumberRetries = 3

// InvoiceService handles invoice business operations
type InvoiceService struct {
	invoiceRepo  invoicing.InvoiceRepository
	customerRepo partner.CustomerRepository
}

// NewInvoiceService creates a new InvoiceService
func NewInvoiceService(invoiceRepo invoicing.InvoiceRepository, customerRepo partner.CustomerRepository) *InvoiceService {
	return &InvoiceService{
		invoiceRepo:  invoiceRepo,
		customerRepo: customerRepo,
	}
}

// Create creates a new invoice for the given owner.
// The invoice number is generated server-side; the total is computed from the
// submitted items. Nothing is persisted when any item is invalid.
func (s *InvoiceService) Create(ctx context.Context, ownerID uuid.UUID, req CreateInvoiceRequest) (*InvoiceResponse, error) {
	if err := s.checkCustomer(ctx, ownerID, req.CustomerID); err != nil {
		return nil, err
	}

	var invoice *invoicing.Invoice
	for attempt := 0; ; attempt++ {
		invoiceNumber, err := s.invoiceRepo.GenerateInvoiceNumber(ctx)
		if err != nil {
			return nil, err
		}

		invoice, err = invoicing.NewInvoice(ownerID, invoiceNumber, req.CustomerID, req.DueDate)
		if err != nil {
			return nil, err
		}

		for _, item := range req.Items {
			if _, err := invoice.AddItem(item.ItemName, item.Quantity, item.Price); err != nil {
				return nil, err
			}
		}

		if err := invoice.Validate(); err != nil {
			return nil, err
		}

		err = s.invoiceRepo.Save(ctx, invoice)
		if err == nil {
			break
		}
		// A concurrent creation can claim the same number; the unique index
		// rejects the second insert and we generate a fresh one.
		if isDuplicateNumberError(err) && attempt < maxNumberRetries {
			continue
		}
		return nil, err
	}

	return s.respond(ctx, invoice.ID)
}

// GetByID retrieves an invoice owned by the given user.
// An existing invoice owned by someone else is reported as forbidden, not as
// missing: the two cases stay distinguishable.
func (s *InvoiceService) GetByID(ctx context.Context, ownerID, invoiceID uuid.UUID) (*InvoiceResponse, error) {
	invoice, err := s.invoiceRepo.FindByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if !invoice.IsOwnedBy(ownerID) {
		return nil, shared.ErrForbidden
	}

	response := ToInvoiceResponse(invoice)
	return &response, nil
}

// List retrieves the owner's invoices with filtering and pagination
func (s *InvoiceService) List(ctx context.Context, ownerID uuid.UUID, filter InvoiceListFilter) ([]InvoiceResponse, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	if filter.OrderBy == "" {
		filter.OrderBy = "created_at"
	}
	if filter.OrderDir == "" {
		filter.OrderDir = "desc"
	}

	domainFilter := shared.Filter{
		Page:     filter.Page,
		PageSize: filter.PageSize,
		OrderBy:  filter.OrderBy,
		OrderDir: filter.OrderDir,
		Search:   filter.Search,
		Filters:  make(map[string]interface{}),
	}
	if filter.CustomerID != nil {
		domainFilter.Filters["customer_id"] = *filter.CustomerID
	}
	if filter.DueBefore != nil {
		domainFilter.Filters["due_before"] = *filter.DueBefore
	}
	if filter.DueAfter != nil {
		domainFilter.Filters["due_after"] = *filter.DueAfter
	}

	invoices, err := s.invoiceRepo.FindAllForOwner(ctx, ownerID, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.invoiceRepo.CountForOwner(ctx, ownerID, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]InvoiceResponse, len(invoices))
	for i := range invoices {
		responses[i] = ToInvoiceResponse(&invoices[i])
	}

	return responses, total, nil
}

// Update replaces the invoice's customer, due date and full item set.
// Persistence uses optimistic locking on the version loaded here; when the
// client sends a version it is checked against the current one first.
func (s *InvoiceService) Update(ctx context.Context, ownerID, invoiceID uuid.UUID, req UpdateInvoiceRequest) (*InvoiceResponse, error) {
	invoice, err := s.invoiceRepo.FindByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if !invoice.IsOwnedBy(ownerID) {
		return nil, shared.ErrForbidden
	}

	if req.Version != nil && *req.Version != invoice.Version {
		return nil, shared.ErrConcurrencyConflict
	}
	expectedVersion := invoice.Version

	if err := s.checkCustomer(ctx, ownerID, req.CustomerID); err != nil {
		return nil, err
	}
	if err := invoice.ChangeCustomer(req.CustomerID); err != nil {
		return nil, err
	}
	if err := invoice.ChangeDueDate(req.DueDate); err != nil {
		return nil, err
	}

	if err := invoice.ReplaceItems(toItemInputs(req.Items)); err != nil {
		return nil, err
	}

	if err := s.invoiceRepo.SaveWithLock(ctx, invoice, expectedVersion); err != nil {
		return nil, err
	}

	return s.respond(ctx, invoice.ID)
}

// Delete removes an invoice and all of its line items
func (s *InvoiceService) Delete(ctx context.Context, ownerID, invoiceID uuid.UUID) error {
	invoice, err := s.invoiceRepo.FindByID(ctx, invoiceID)
	if err != nil {
		return err
	}
	if !invoice.IsOwnedBy(ownerID) {
		return shared.ErrForbidden
	}

	return s.invoiceRepo.DeleteForOwner(ctx, ownerID, invoiceID)
}

// checkCustomer verifies the referenced customer exists and belongs to the
// owner. A customer of another user is reported as missing so invoice
// operations never confirm its existence.
func (s *InvoiceService) checkCustomer(ctx context.Context, ownerID, customerID uuid.UUID) error {
	customer, err := s.customerRepo.FindByID(ctx, customerID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return shared.NewDomainError("CUSTOMER_NOT_FOUND", "Customer not found")
		}
		return err
	}
	if !customer.IsOwnedBy(ownerID) {
		return shared.NewDomainError("CUSTOMER_NOT_FOUND", "Customer not found")
	}
	return nil
}

// respond loads the invoice fresh so the response carries the persisted state
// with its customer preloaded
func (s *InvoiceService) respond(ctx context.Context, invoiceID uuid.UUID) (*InvoiceResponse, error) {
	invoice, err := s.invoiceRepo.FindByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	response := ToInvoiceResponse(invoice)
	return &response, nil
}

// isDuplicateNumberError reports whether the error is a unique constraint
// violation on the invoice number
func isDuplicateNumberError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "23505")
}
