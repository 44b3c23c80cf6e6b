package writer

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/prismo-finance/prismo-ingest/internal/mapper"
)

func TestToModel_FullShape(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	lat, lng := 51.5, -0.1
	st := &mapper.StructuredTransaction{
		ExternalID:           "tx-001",
		Amount:               15075,
		TransactionType:      1,
		Description:          "Grocery run",
		TransactionTimestamp: time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC),
		Category:             "groceries",
		Tags:                 []string{"food", "weekly"},
		Counterparty:         mapper.Counterparty{Name: "Wholefoods", IsKnown: true},
		PaymentMethod:        mapper.PaymentMethod{Type: "card", Provider: "visa", LastFour: "4242"},
		Recurrence:           mapper.Recurrence{IsRecurring: true, Frequency: "weekly", StartDate: &start},
		Attachments: []mapper.Attachment{
			{Type: "receipt", URL: "https://example.com/r/1.pdf"},
		},
		Location: &mapper.Location{EstablishmentName: "Wholefoods Market", Latitude: &lat, Longitude: &lng},
		Metadata: &mapper.Metadata{DeviceModel: "Pixel 8", AppVersion: "2.4.1"},
		User:     mapper.User{Email: "ana@example.com", APIToken: "tok-123"},
	}

	record := toModel(st, "gen-id-1")

	if record.ID != "gen-id-1" || record.ExternalID != "tx-001" {
		t.Fatalf("identifiers mismatch: %+v", record)
	}
	if record.Amount != 15075 || record.Category != "groceries" {
		t.Fatalf("scalar fields mismatch: %+v", record)
	}
	if record.Counterparty == nil || !record.Counterparty.IsKnown {
		t.Fatalf("counterparty mismatch: %+v", record.Counterparty)
	}
	if record.PaymentMethod == nil || record.PaymentMethod.LastFour != "4242" {
		t.Fatalf("payment method mismatch: %+v", record.PaymentMethod)
	}
	if len(record.Tags) != 2 || record.Tags[0].Tag != "food" {
		t.Fatalf("tags mismatch: %+v", record.Tags)
	}
	if record.Recurrence == nil || record.Recurrence.StartDate == nil || !record.Recurrence.StartDate.Equal(start) {
		t.Fatalf("recurrence mismatch: %+v", record.Recurrence)
	}
	if len(record.Attachments) != 1 || record.Attachments[0].URL != "https://example.com/r/1.pdf" {
		t.Fatalf("attachments mismatch: %+v", record.Attachments)
	}
	if record.Location == nil || *record.Location.Latitude != 51.5 {
		t.Fatalf("location mismatch: %+v", record.Location)
	}
	if record.TransactionMetadata == nil || record.TransactionMetadata.AppVersion != "2.4.1" {
		t.Fatalf("metadata mismatch: %+v", record.TransactionMetadata)
	}
	// user linkage is resolved inside the database transaction
	if record.UserID != 0 {
		t.Fatalf("user id must be unset before the upsert")
	}
}

func TestToModel_OptionalSectionsAbsent(t *testing.T) {
	st := &mapper.StructuredTransaction{
		ExternalID: "tx-min",
		Amount:     10,
		User:       mapper.User{Email: "ana@example.com"},
	}

	record := toModel(st, "gen-id-2")

	if record.Location != nil || record.TransactionMetadata != nil {
		t.Fatalf("absent optional sections must stay nil")
	}
	if len(record.Tags) != 0 || len(record.Attachments) != 0 {
		t.Fatalf("absent collections must stay empty")
	}
}

func TestOpen_RequiresDSN(t *testing.T) {
	if _, err := Open(""); err == nil {
		t.Fatalf("expected error for empty dsn")
	}
}

func TestIsUniqueViolation(t *testing.T) {
	dup := &pgconn.PgError{Code: "23505", ConstraintName: "idx_transactions_external_id"}

	if !isUniqueViolation(dup) {
		t.Fatalf("expected 23505 to be a unique violation")
	}
	if !isUniqueViolation(fmt.Errorf("create transaction: %w", dup)) {
		t.Fatalf("expected wrapped 23505 to be a unique violation")
	}
	if isUniqueViolation(&pgconn.PgError{Code: "40001"}) {
		t.Fatalf("serialization failure is not a unique violation")
	}
	if isUniqueViolation(errors.New("connection refused")) {
		t.Fatalf("plain errors are not unique violations")
	}
}
