package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/invoicehub/backend/internal/domain/invoicing"
	"github.com/invoicehub/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormInvoiceRepository implements InvoiceRepository using GORM
type GormInvoiceRepository struct {
	db *gorm.DB
}

// NewGormInvoiceRepository creates a new GormInvoiceRepository
func NewGormInvoiceRepository(db *gorm.DB) *GormInvoiceRepository {
	return &GormInvoiceRepository{db: db}
}

// FindByID finds an invoice by its ID with items and customer preloaded
func (r *GormInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*invoicing.Invoice, error) {
	var invoice invoicing.Invoice
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Customer").
		First(&invoice, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &invoice, nil
}

// FindAllForOwner finds all invoices for an owner with filtering
func (r *GormInvoiceRepository) FindAllForOwner(ctx context.Context, ownerID uuid.UUID, filter shared.Filter) ([]invoicing.Invoice, error) {
	var invoices []invoicing.Invoice
	query := r.applyFilter(
		r.db.WithContext(ctx).Model(&invoicing.Invoice{}).
			Preload("Items").
			Preload("Customer").
			Where("owner_id = ?", ownerID),
		filter,
	)

	if err := query.Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}

// Save creates or updates an invoice together with its line items.
// The stored item set is replaced by the aggregate's in-memory one.
func (r *GormInvoiceRepository) Save(ctx context.Context, invoice *invoicing.Invoice) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Items", "Customer").Save(invoice).Error; err != nil {
			return err
		}

		currentItemIDs := make([]uuid.UUID, len(invoice.Items))
		for i, item := range invoice.Items {
			currentItemIDs[i] = item.ID
		}

		// Delete items no longer on the invoice
		if len(currentItemIDs) > 0 {
			if err := tx.Where("invoice_id = ? AND id NOT IN ?", invoice.ID, currentItemIDs).
				Delete(&invoicing.InvoiceItem{}).Error; err != nil {
				return err
			}
		} else {
			if err := tx.Where("invoice_id = ?", invoice.ID).
				Delete(&invoicing.InvoiceItem{}).Error; err != nil {
				return err
			}
		}

		for i := range invoice.Items {
			invoice.Items[i].InvoiceID = invoice.ID
			if err := tx.Save(&invoice.Items[i]).Error; err != nil {
				return err
			}
		}

		return nil
	})
}

// SaveWithLock saves with optimistic locking. The update predicate carries the
// version the aggregate was loaded at; zero affected rows means someone else
// got there first.
func (r *GormInvoiceRepository) SaveWithLock(ctx context.Context, invoice *invoicing.Invoice, expectedVersion int) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invoice.Version = expectedVersion + 1
		invoice.UpdatedAt = time.Now()

		result := tx.Model(&invoicing.Invoice{}).
			Where("id = ? AND version = ?", invoice.ID, expectedVersion).
			Updates(map[string]interface{}{
				"customer_id": invoice.CustomerID,
				"due_date":    invoice.DueDate,
				"total":       invoice.Total,
				"version":     invoice.Version,
				"updated_at":  invoice.UpdatedAt,
			})

		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			// Either the invoice is gone or the version moved on
			var count int64
			if err := tx.Model(&invoicing.Invoice{}).Where("id = ?", invoice.ID).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return shared.ErrNotFound
			}
			return shared.ErrConcurrencyConflict
		}

		currentItemIDs := make([]uuid.UUID, len(invoice.Items))
		for i, item := range invoice.Items {
			currentItemIDs[i] = item.ID
		}

		if len(currentItemIDs) > 0 {
			if err := tx.Where("invoice_id = ? AND id NOT IN ?", invoice.ID, currentItemIDs).
				Delete(&invoicing.InvoiceItem{}).Error; err != nil {
				return err
			}
		} else {
			if err := tx.Where("invoice_id = ?", invoice.ID).
				Delete(&invoicing.InvoiceItem{}).Error; err != nil {
				return err
			}
		}

		for i := range invoice.Items {
			invoice.Items[i].InvoiceID = invoice.ID
			if err := tx.Save(&invoice.Items[i]).Error; err != nil {
				return err
			}
		}

		return nil
	})
}

// Delete deletes an invoice and its items
func (r *GormInvoiceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("invoice_id = ?", id).Delete(&invoicing.InvoiceItem{}).Error; err != nil {
			return err
		}

		result := tx.Delete(&invoicing.Invoice{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

// DeleteForOwner deletes an invoice scoped to an owner
func (r *GormInvoiceRepository) DeleteForOwner(ctx context.Context, ownerID, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var invoice invoicing.Invoice
		if err := tx.Where("owner_id = ? AND id = ?", ownerID, id).First(&invoice).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return shared.ErrNotFound
			}
			return err
		}

		if err := tx.Where("invoice_id = ?", id).Delete(&invoicing.InvoiceItem{}).Error; err != nil {
			return err
		}

		result := tx.Delete(&invoicing.Invoice{}, "owner_id = ? AND id = ?", ownerID, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

// CountForOwner counts invoices for an owner with optional filters
func (r *GormInvoiceRepository) CountForOwner(ctx context.Context, ownerID uuid.UUID, filter shared.Filter) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&invoicing.Invoice{}).Where("owner_id = ?", ownerID)
	query = r.applyFilterWithoutPagination(query, filter)

	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// ExistsBy checks if an invoice exists with the given field value
func (r *GormInvoiceRepository) ExistsBy(ctx context.Context, field string, value interface{}) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&invoicing.Invoice{}).
		Where(fmt.Sprintf("%s = ?", field), value).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// GenerateInvoiceNumber generates the next invoice number.
// Format: INV-YYYYMMDD-NNNN (e.g., INV-20260901-0001). The date part reflects
// the creation day, but the sequence is a single counter across all invoices
// and never resets; it is padded to at least four digits. The maximum is
// taken numerically from the parsed sequence part, so ordering stays correct
// once sequences grow past 9999.
// The read and the later insert are two separate statements; concurrent
// creations can observe the same maximum. The unique index on invoice_number
// rejects the loser, and the service retries generation a bounded number of
// times rather than serializing all creations here.
func (r *GormInvoiceRepository) GenerateInvoiceNumber(ctx context.Context) (string, error) {
	var maxSeq int64
	if err := r.db.WithContext(ctx).
		Model(&invoicing.Invoice{}).
		Select("COALESCE(MAX(CAST(split_part(invoice_number, '-', 3) AS bigint)), 0)").
		Scan(&maxSeq).Error; err != nil {
		return "", err
	}

	return fmt.Sprintf("%s-%s-%04d",
		invoicing.InvoiceNumberPrefix, time.Now().Format("20060102"), maxSeq+1), nil
}

// applyFilter applies filter options to the query
func (r *GormInvoiceRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	query = r.applyFilterWithoutPagination(query, filter)

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	if filter.OrderBy != "" {
		orderDir := "ASC"
		if strings.ToLower(filter.OrderDir) == "desc" {
			orderDir = "DESC"
		}
		query = query.Order(filter.OrderBy + " " + orderDir)
	} else {
		query = query.Order("created_at DESC")
	}

	return query
}

// applyFilterWithoutPagination applies filter options without pagination
func (r *GormInvoiceRepository) applyFilterWithoutPagination(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Search != "" {
		searchPattern := "%" + filter.Search + "%"
		query = query.Where("invoice_number ILIKE ?", searchPattern)
	}

	for key, value := range filter.Filters {
		switch key {
		case "customer_id":
			query = query.Where("customer_id = ?", value)
		case "due_before":
			if t, ok := value.(time.Time); ok {
				query = query.Where("due_date <= ?", t)
			}
		case "due_after":
			if t, ok := value.(time.Time); ok {
				query = query.Where("due_date >= ?", t)
			}
		}
	}

	return query
}

// Ensure GormInvoiceRepository implements InvoiceRepository
var _ invoicing.InvoiceRepository = (*GormInvoiceRepository)(nil)
