package writer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/prismo-finance/prismo-ingest/internal/mapper"
)

// Writer commits a structured transaction and all of its sub-entities
// atomically, returning the generated transaction id. Any error leaves the
// store untouched and is treated by the processor as a retriable failure.
type Writer interface {
	Write(ctx context.Context, tx *mapper.StructuredTransaction) (string, error)
}

// Open connects to Postgres and verifies the connection.
func Open(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		return nil, errors.New("postgres dsn is required")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open gorm postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("resolve postgres sql db handle: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// Migrate creates or updates the relational schema.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&Transaction{},
		&Counterparty{},
		&PaymentMethod{},
		&TransactionTag{},
		&Recurrence{},
		&Attachment{},
		&Location{},
		&TransactionMetadata{},
	)
}

// PostgresWriter implements Writer on gorm.
type PostgresWriter struct {
	db     *gorm.DB
	idFunc func() string
}

// NewPostgresWriter returns a Writer backed by db.
func NewPostgresWriter(db *gorm.DB) *PostgresWriter {
	return &PostgresWriter{
		db:     db,
		idFunc: uuid.NewString,
	}
}

// Write commits the transaction row and every sub-entity in one database
// transaction. The user is created or reused keyed by email, so a retried
// record referencing the same email never duplicates users.
//
// Write is idempotent on the external id: a row that already committed on a
// prior attempt (the raw record's bookkeeping may have failed after the
// commit) is returned as success with the existing id instead of failing on
// the unique index, so a retried record still converges.
func (w *PostgresWriter) Write(ctx context.Context, st *mapper.StructuredTransaction) (string, error) {
	record := toModel(st, w.idFunc())

	err := w.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing Transaction
		lookupErr := tx.Select("id").
			Where("external_id = ?", st.ExternalID).
			Take(&existing).Error
		if lookupErr == nil {
			record.ID = existing.ID
			return nil
		}
		if !errors.Is(lookupErr, gorm.ErrRecordNotFound) {
			return fmt.Errorf("lookup transaction by external id: %w", lookupErr)
		}

		user := User{Email: st.User.Email}
		if err := tx.Where(User{Email: st.User.Email}).
			Attrs(User{APIToken: st.User.APIToken}).
			FirstOrCreate(&user).Error; err != nil {
			return fmt.Errorf("upsert user: %w", err)
		}
		record.UserID = user.ID

		if err := tx.Create(record).Error; err != nil {
			return fmt.Errorf("create transaction: %w", err)
		}
		return nil
	})
	if err == nil {
		return record.ID, nil
	}

	// A concurrent writer can commit the same external id between the
	// lookup and the create; resolve to the row it won with.
	if isUniqueViolation(err) {
		var existing Transaction
		if lookupErr := w.db.WithContext(ctx).
			Select("id").
			Where("external_id = ?", st.ExternalID).
			Take(&existing).Error; lookupErr == nil {
			return existing.ID, nil
		}
	}
	return "", err
}

// isUniqueViolation reports whether err carries the Postgres
// unique-constraint SQLSTATE (23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// toModel converts the mapper output into the relational shape. Pure; kept
// separate from Write so it can be unit tested without a database.
func toModel(st *mapper.StructuredTransaction, id string) *Transaction {
	record := &Transaction{
		ID:                   id,
		ExternalID:           st.ExternalID,
		Amount:               st.Amount,
		TransactionType:      st.TransactionType,
		Description:          st.Description,
		TransactionTimestamp: st.TransactionTimestamp,
		Category:             st.Category,
		Counterparty: &Counterparty{
			Name:    st.Counterparty.Name,
			IsKnown: st.Counterparty.IsKnown,
		},
		PaymentMethod: &PaymentMethod{
			Type:     st.PaymentMethod.Type,
			Provider: st.PaymentMethod.Provider,
			Nickname: st.PaymentMethod.Nickname,
			LastFour: st.PaymentMethod.LastFour,
		},
		Recurrence: &Recurrence{
			IsRecurring: st.Recurrence.IsRecurring,
			Frequency:   st.Recurrence.Frequency,
			StartDate:   st.Recurrence.StartDate,
			EndDate:     st.Recurrence.EndDate,
		},
	}

	for _, tag := range st.Tags {
		record.Tags = append(record.Tags, TransactionTag{Tag: tag})
	}
	for _, a := range st.Attachments {
		record.Attachments = append(record.Attachments, Attachment{
			Type:        a.Type,
			URL:         a.URL,
			Description: a.Description,
		})
	}
	if st.Location != nil {
		record.Location = &Location{
			EstablishmentName: st.Location.EstablishmentName,
			Address:           st.Location.Address,
			Latitude:          st.Location.Latitude,
			Longitude:         st.Location.Longitude,
		}
	}
	if st.Metadata != nil {
		record.TransactionMetadata = &TransactionMetadata{
			DeviceModel: st.Metadata.DeviceModel,
			AppVersion:  st.Metadata.AppVersion,
		}
	}
	return record
}
