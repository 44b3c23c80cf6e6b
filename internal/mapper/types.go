package mapper

import "time"

// StructuredTransaction is the validated, normalized representation of a
// submitted payload, ready for the relational commit.
type StructuredTransaction struct {
	ExternalID           string
	Amount               float64
	TransactionType      int
	Description          string
	TransactionTimestamp time.Time
	Category             string
	Tags                 []string
	Counterparty         Counterparty
	PaymentMethod        PaymentMethod
	Recurrence           Recurrence
	Attachments          []Attachment
	Location             *Location
	Metadata             *Metadata
	User                 User
}

type Counterparty struct {
	Name    string
	IsKnown bool
}

type PaymentMethod struct {
	Type     string
	Provider string
	Nickname string
	LastFour string
}

type Recurrence struct {
	IsRecurring bool
	Frequency   string
	StartDate   *time.Time
	EndDate     *time.Time
}

type Attachment struct {
	Type        string
	URL         string
	Description string
}

type Location struct {
	EstablishmentName string
	Address           string
	Latitude          *float64
	Longitude         *float64
}

type Metadata struct {
	DeviceModel string
	AppVersion  string
}

type User struct {
	Email    string
	APIToken string
}
