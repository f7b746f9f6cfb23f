package persistence

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/invoicehub/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// newMockCustomerRepository creates a GormCustomerRepository with a mocked SQL connection
func newMockCustomerRepository(t *testing.T) (*GormCustomerRepository, sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return NewGormCustomerRepository(gormDB), mock, mockDB
}

func TestGormCustomerRepository_FindByID(t *testing.T) {
	t.Run("finds existing customer", func(t *testing.T) {
		repo, mock, mockDB := newMockCustomerRepository(t)
		defer mockDB.Close()

		customerID := uuid.New()
		ownerID := uuid.New()

		rows := sqlmock.NewRows([]string{"id", "owner_id", "version", "name", "email", "phone"}).
			AddRow(customerID, ownerID, 1, "Acme Corp", "billing@acme.example", "555-0100")

		mock.ExpectQuery(`SELECT \* FROM "customers" WHERE id = \$1 ORDER BY .* LIMIT .*`).
			WithArgs(customerID, 1).
			WillReturnRows(rows)

		customer, err := repo.FindByID(context.Background(), customerID)

		assert.NoError(t, err)
		require.NotNil(t, customer)
		assert.Equal(t, customerID, customer.ID)
		assert.Equal(t, "Acme Corp", customer.Name)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns not found for missing customer", func(t *testing.T) {
		repo, mock, mockDB := newMockCustomerRepository(t)
		defer mockDB.Close()

		customerID := uuid.New()

		mock.ExpectQuery(`SELECT \* FROM "customers" WHERE id = \$1 ORDER BY .* LIMIT .*`).
			WithArgs(customerID, 1).
			WillReturnError(gorm.ErrRecordNotFound)

		customer, err := repo.FindByID(context.Background(), customerID)

		assert.Error(t, err)
		assert.Nil(t, customer)
		assert.Equal(t, shared.ErrNotFound, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormCustomerRepository_HasInvoices(t *testing.T) {
	t.Run("reports customer referenced by invoices", func(t *testing.T) {
		repo, mock, mockDB := newMockCustomerRepository(t)
		defer mockDB.Close()

		customerID := uuid.New()

		mock.ExpectQuery(`SELECT count\(\*\) FROM "invoices" WHERE customer_id = \$1`).
			WithArgs(customerID).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

		has, err := repo.HasInvoices(context.Background(), customerID)

		assert.NoError(t, err)
		assert.True(t, has)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("reports customer with no invoices", func(t *testing.T) {
		repo, mock, mockDB := newMockCustomerRepository(t)
		defer mockDB.Close()

		customerID := uuid.New()

		mock.ExpectQuery(`SELECT count\(\*\) FROM "invoices" WHERE customer_id = \$1`).
			WithArgs(customerID).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

		has, err := repo.HasInvoices(context.Background(), customerID)

		assert.NoError(t, err)
		assert.False(t, has)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormCustomerRepository_DeleteForOwner(t *testing.T) {
	t.Run("returns not found when customer belongs to another owner", func(t *testing.T) {
		repo, mock, mockDB := newMockCustomerRepository(t)
		defer mockDB.Close()

		ownerID := uuid.New()
		customerID := uuid.New()

		mock.ExpectExec(`DELETE FROM "customers" WHERE owner_id = \$1 AND id = \$2`).
			WithArgs(ownerID, customerID).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.DeleteForOwner(context.Background(), ownerID, customerID)

		assert.Equal(t, shared.ErrNotFound, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
