package partner

import (
	"strings"

	"github.com/google/uuid"
	"github.com/invoicehub/backend/internal/domain/shared"
)

// Customer represents a billable party owned by a user
type Customer struct {
	shared.OwnedAggregateRoot
	Name  string `gorm:"size:255;not null;index"`
	Email string `gorm:"size:255"`
	Phone string `gorm:"size:50"`
}

// TableName returns the database table name
func (Customer) TableName() string {
	return "customers"
}

// NewCustomer creates a new customer for the given owner
func NewCustomer(ownerID uuid.UUID, name, email, phone string) (*Customer, error) {
	if ownerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_OWNER", "Owner ID cannot be empty")
	}
	if err := validateName(name); err != nil {
		return nil, err
	}
	if err := validateContact(email, phone); err != nil {
		return nil, err
	}

	return &Customer{
		OwnedAggregateRoot: shared.NewOwnedAggregateRoot(ownerID),
		Name:               strings.TrimSpace(name),
		Email:              email,
		Phone:              phone,
	}, nil
}

func validateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return shared.NewDomainError("INVALID_CUSTOMER_NAME", "Customer name cannot be empty")
	}
	if len(name) > 255 {
		return shared.NewDomainError("INVALID_CUSTOMER_NAME", "Customer name cannot exceed 255 characters")
	}
	return nil
}

func validateContact(email, phone string) error {
	if email != "" && (!strings.Contains(email, "@") || len(email) > 255) {
		return shared.NewDomainError("INVALID_EMAIL", "Email is not valid")
	}
	if len(phone) > 50 {
		return shared.NewDomainError("INVALID_PHONE", "Phone cannot exceed 50 characters")
	}
	return nil
}

// Update replaces the customer's editable fields
func (c *Customer) Update(name, email, phone string) error {
	if err := validateName(name); err != nil {
		return err
	}
	if err := validateContact(email, phone); err != nil {
		return err
	}

	c.Name = strings.TrimSpace(name)
	c.Email = email
	c.Phone = phone
	c.IncrementVersion()
	return nil
}
