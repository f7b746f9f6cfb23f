package partner

import (
	"context"

	"github.com/google/uuid"
	"github.com/invoicehub/backend/internal/domain/partner"
	"github.com/invoicehub/backend/internal/domain/shared"
)

// CustomerService handles customer business operations
type CustomerService struct {
	customerRepo partner.CustomerRepository
}

// NewCustomerService creates a new CustomerService
func NewCustomerService(customerRepo partner.CustomerRepository) *CustomerService {
	return &CustomerService{customerRepo: customerRepo}
}

// Create creates a new customer owned by the given user
func (s *CustomerService) Create(ctx context.Context, ownerID uuid.UUID, req CreateCustomerRequest) (*CustomerResponse, error) {
	customer, err := partner.NewCustomer(ownerID, req.Name, req.Email, req.Phone)
	if err != nil {
		return nil, err
	}

	if err := s.customerRepo.Save(ctx, customer); err != nil {
		return nil, err
	}

	response := ToCustomerResponse(customer)
	return &response, nil
}

// GetByID retrieves a customer owned by the given user.
// A customer owned by someone else answers forbidden rather than missing.
func (s *CustomerService) GetByID(ctx context.Context, ownerID, customerID uuid.UUID) (*CustomerResponse, error) {
	customer, err := s.findOwned(ctx, ownerID, customerID)
	if err != nil {
		return nil, err
	}

	response := ToCustomerResponse(customer)
	return &response, nil
}

// List retrieves the owner's customers with filtering and pagination
func (s *CustomerService) List(ctx context.Context, ownerID uuid.UUID, filter CustomerListFilter) ([]CustomerResponse, int64, error) {
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

	customers, err := s.customerRepo.FindAllForOwner(ctx, ownerID, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.customerRepo.CountForOwner(ctx, ownerID, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]CustomerResponse, len(customers))
	for i := range customers {
		responses[i] = ToCustomerResponse(&customers[i])
	}

	return responses, total, nil
}

// Update updates a customer's fields
func (s *CustomerService) Update(ctx context.Context, ownerID, customerID uuid.UUID, req UpdateCustomerRequest) (*CustomerResponse, error) {
	customer, err := s.findOwned(ctx, ownerID, customerID)
	if err != nil {
		return nil, err
	}

	if err := customer.Update(req.Name, req.Email, req.Phone); err != nil {
		return nil, err
	}

	if err := s.customerRepo.Save(ctx, customer); err != nil {
		return nil, err
	}

	response := ToCustomerResponse(customer)
	return &response, nil
}

// Delete removes a customer. Customers still referenced by invoices cannot
// be deleted.
func (s *CustomerService) Delete(ctx context.Context, ownerID, customerID uuid.UUID) error {
	if _, err := s.findOwned(ctx, ownerID, customerID); err != nil {
		return err
	}

	hasInvoices, err := s.customerRepo.HasInvoices(ctx, customerID)
	if err != nil {
		return err
	}
	if hasInvoices {
		return shared.NewDomainError("CUSTOMER_IN_USE", "Customer has invoices and cannot be deleted")
	}

	return s.customerRepo.DeleteForOwner(ctx, ownerID, customerID)
}

// findOwned loads a customer and enforces ownership
func (s *CustomerService) findOwned(ctx context.Context, ownerID, customerID uuid.UUID) (*partner.Customer, error) {
	customer, err := s.customerRepo.FindByID(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if !customer.IsOwnedBy(ownerID) {
		return nil, shared.ErrForbidden
	}
	return customer, nil
}
