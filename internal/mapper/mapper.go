package mapper

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"time"

	validatorv10 "github.com/go-playground/validator/v10"
)

// FieldError is a mapping failure attributable to a single payload field.
// The message is what ends up in processing_errors, so it names the field
// the way the caller submitted it, e.g. "user.email is required".
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

// payload shapes mirror the submitted JSON: timestamps arrive as strings and
// are parsed explicitly, never cast.
type rawShape struct {
	ExternalID           string           `json:"externalId" validate:"required"`
	Amount               *float64         `json:"amount" validate:"required"`
	TransactionType      int              `json:"transactionType"`
	Description          string           `json:"description"`
	TransactionTimestamp string           `json:"transactionTimestamp"`
	Category             string           `json:"category"`
	Tags                 []string         `json:"tags"`
	Counterparty         rawCounterparty  `json:"counterparty"`
	PaymentMethod        rawPaymentMethod `json:"paymentMethod"`
	Recurrence           rawRecurrence    `json:"recurrence"`
	Attachments          []rawAttachment  `json:"attachments"`
	Location             *rawLocation     `json:"location"`
	Metadata             *rawMetadata     `json:"metadata"`
	User                 rawUser          `json:"user"`
}

type rawCounterparty struct {
	Name    string `json:"name"`
	IsKnown bool   `json:"is_known"`
}

type rawPaymentMethod struct {
	Type     string `json:"type"`
	Provider string `json:"provider"`
	Nickname string `json:"nickname"`
	LastFour string `json:"last_four"`
}

type rawRecurrence struct {
	IsRecurring bool   `json:"is_recurring"`
	Frequency   string `json:"frequency"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
}

type rawAttachment struct {
	Type        string `json:"type"`
	URL         string `json:"url"`
	Description string `json:"description"`
}

type rawLocation struct {
	EstablishmentName string   `json:"establishment_name"`
	Address           string   `json:"address"`
	Latitude          *float64 `json:"latitude"`
	Longitude         *float64 `json:"longitude"`
}

type rawMetadata struct {
	DeviceModel string `json:"device_model"`
	AppVersion  string `json:"app_version"`
}

type rawUser struct {
	Email    string `json:"email" validate:"required"`
	APIToken string `json:"api_token"`
}

// timestamp layouts accepted for string timestamp fields, tried in order.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// Mapper transforms untyped payloads into StructuredTransactions. It
// performs no I/O; every failure is a *FieldError naming the offending
// payload field.
type Mapper struct {
	validate *validatorv10.Validate
}

// New returns a Mapper with field names resolved from json tags so
// validation errors read as payload paths.
func New() *Mapper {
	v := validatorv10.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Mapper{validate: v}
}

// Map decodes and validates a raw payload. Missing required fields
// (externalId, amount, user.email) and malformed timestamps are reported
// per-field; a shape mismatch anywhere in the document is a mapping error.
func (m *Mapper) Map(payload map[string]interface{}) (*StructuredTransaction, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}

	var raw rawShape
	if err := json.Unmarshal(body, &raw); err != nil {
		if ute, ok := err.(*json.UnmarshalTypeError); ok && ute.Field != "" {
			return nil, &FieldError{Field: ute.Field, Reason: fmt.Sprintf("has unexpected type %s", ute.Value)}
		}
		return nil, fmt.Errorf("decode payload: %w", err)
	}

	if err := m.validate.Struct(&raw); err != nil {
		if ve, ok := err.(validatorv10.ValidationErrors); ok && len(ve) > 0 {
			return nil, toFieldError(ve[0])
		}
		return nil, err
	}

	ts, err := parseTimestamp("transactionTimestamp", raw.TransactionTimestamp)
	if err != nil {
		return nil, err
	}

	tx := &StructuredTransaction{
		ExternalID:           raw.ExternalID,
		Amount:               *raw.Amount,
		TransactionType:      raw.TransactionType,
		Description:          raw.Description,
		TransactionTimestamp: ts,
		Category:             raw.Category,
		Tags:                 raw.Tags,
		Counterparty: Counterparty{
			Name:    raw.Counterparty.Name,
			IsKnown: raw.Counterparty.IsKnown,
		},
		PaymentMethod: PaymentMethod{
			Type:     raw.PaymentMethod.Type,
			Provider: raw.PaymentMethod.Provider,
			Nickname: raw.PaymentMethod.Nickname,
			LastFour: raw.PaymentMethod.LastFour,
		},
		Recurrence: Recurrence{
			IsRecurring: raw.Recurrence.IsRecurring,
			Frequency:   raw.Recurrence.Frequency,
		},
		User: User{
			Email:    raw.User.Email,
			APIToken: raw.User.APIToken,
		},
	}

	if raw.Recurrence.StartDate != "" {
		t, err := parseTimestamp("recurrence.start_date", raw.Recurrence.StartDate)
		if err != nil {
			return nil, err
		}
		tx.Recurrence.StartDate = &t
	}
	if raw.Recurrence.EndDate != "" {
		t, err := parseTimestamp("recurrence.end_date", raw.Recurrence.EndDate)
		if err != nil {
			return nil, err
		}
		tx.Recurrence.EndDate = &t
	}

	for _, a := range raw.Attachments {
		tx.Attachments = append(tx.Attachments, Attachment{
			Type:        a.Type,
			URL:         a.URL,
			Description: a.Description,
		})
	}
	if raw.Location != nil {
		tx.Location = &Location{
			EstablishmentName: raw.Location.EstablishmentName,
			Address:           raw.Location.Address,
			Latitude:          raw.Location.Latitude,
			Longitude:         raw.Location.Longitude,
		}
	}
	if raw.Metadata != nil {
		tx.Metadata = &Metadata{
			DeviceModel: raw.Metadata.DeviceModel,
			AppVersion:  raw.Metadata.AppVersion,
		}
	}

	return tx, nil
}

func toFieldError(fe validatorv10.FieldError) *FieldError {
	// Namespace is e.g. "rawShape.user.email" with json tag names; drop the
	// struct segment to get the payload path.
	path := fe.Namespace()
	if i := strings.Index(path, "."); i >= 0 {
		path = path[i+1:]
	}
	reason := "is invalid"
	if fe.Tag() == "required" {
		reason = "is required"
	}
	return &FieldError{Field: path, Reason: reason}
}

func parseTimestamp(field, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, &FieldError{Field: field, Reason: "is required"}
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, &FieldError{Field: field, Reason: fmt.Sprintf("is not a valid timestamp: %q", value)}
}
