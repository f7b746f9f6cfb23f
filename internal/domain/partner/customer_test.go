package partner

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/invoicehub/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCustomer(t *testing.T) {
	ownerID := uuid.New()

	t.Run("creates customer with valid inputs", func(t *testing.T) {
		customer, err := NewCustomer(ownerID, "Acme Corp", "billing@acme.test", "+62-21-5551234")
		require.NoError(t, err)
		require.NotNil(t, customer)

		assert.Equal(t, ownerID, customer.OwnerID)
		assert.Equal(t, "Acme Corp", customer.Name)
		assert.Equal(t, "billing@acme.test", customer.Email)
		assert.Equal(t, "+62-21-5551234", customer.Phone)
		assert.Equal(t, 1, customer.Version)
		assert.NotEqual(t, uuid.Nil, customer.ID)
	})

	t.Run("allows empty contact details", func(t *testing.T) {
		customer, err := NewCustomer(ownerID, "Acme Corp", "", "")
		require.NoError(t, err)
		assert.Empty(t, customer.Email)
		assert.Empty(t, customer.Phone)
	})

	t.Run("trims name whitespace", func(t *testing.T) {
		customer, err := NewCustomer(ownerID, "  Acme Corp  ", "", "")
		require.NoError(t, err)
		assert.Equal(t, "Acme Corp", customer.Name)
	})

	t.Run("fails with nil owner", func(t *testing.T) {
		_, err := NewCustomer(uuid.Nil, "Acme Corp", "", "")
		require.Error(t, err)
		assert.True(t, shared.IsDomainError(err, "INVALID_OWNER"))
	})

	t.Run("fails with empty name", func(t *testing.T) {
		_, err := NewCustomer(ownerID, "   ", "", "")
		require.Error(t, err)
		assert.True(t, shared.IsDomainError(err, "INVALID_CUSTOMER_NAME"))
	})

	t.Run("fails with overlong name", func(t *testing.T) {
		_, err := NewCustomer(ownerID, strings.Repeat("x", 256), "", "")
		require.Error(t, err)
		assert.True(t, shared.IsDomainError(err, "INVALID_CUSTOMER_NAME"))
	})

	t.Run("fails with invalid email", func(t *testing.T) {
		_, err := NewCustomer(ownerID, "Acme Corp", "not-an-email", "")
		require.Error(t, err)
		assert.True(t, shared.IsDomainError(err, "INVALID_EMAIL"))
	})

	t.Run("fails with overlong phone", func(t *testing.T) {
		_, err := NewCustomer(ownerID, "Acme Corp", "", strings.Repeat("9", 51))
		require.Error(t, err)
		assert.True(t, shared.IsDomainError(err, "INVALID_PHONE"))
	})
}

func TestCustomer_Update(t *testing.T) {
	newCustomer := func(t *testing.T) *Customer {
		customer, err := NewCustomer(uuid.New(), "Acme Corp", "billing@acme.test", "")
		require.NoError(t, err)
		return customer
	}

	t.Run("replaces editable fields and bumps version", func(t *testing.T) {
		customer := newCustomer(t)

		err := customer.Update("Globex", "accounts@globex.test", "+62-21-5559876")
		require.NoError(t, err)

		assert.Equal(t, "Globex", customer.Name)
		assert.Equal(t, "accounts@globex.test", customer.Email)
		assert.Equal(t, "+62-21-5559876", customer.Phone)
		assert.Equal(t, 2, customer.Version)
	})

	t.Run("rejects empty name and keeps state", func(t *testing.T) {
		customer := newCustomer(t)

		err := customer.Update("", "accounts@globex.test", "")
		require.Error(t, err)
		assert.True(t, shared.IsDomainError(err, "INVALID_CUSTOMER_NAME"))
		assert.Equal(t, "Acme Corp", customer.Name)
		assert.Equal(t, 1, customer.Version)
	})

	t.Run("rejects invalid email", func(t *testing.T) {
		customer := newCustomer(t)

		err := customer.Update("Globex", "not-an-email", "")
		require.Error(t, err)
		assert.True(t, shared.IsDomainError(err, "INVALID_EMAIL"))
	})
}
