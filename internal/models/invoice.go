package models

import (
	"time"

	"lastseat/server/internal/utils"
)

// PaymentStatus is the lifecycle state of an invoice.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusPaid      PaymentStatus = "paid"
	PaymentStatusCancelled PaymentStatus = "cancelled"
)

// ValidPaymentStatus reports whether s is one of the known statuses.
func ValidPaymentStatus(s PaymentStatus) bool {
	switch s {
	case PaymentStatusPending, PaymentStatusPaid, PaymentStatusCancelled:
		return true
	}
	return false
}

// PaymentMethod records how the customer paid (or declared to have paid).
type PaymentMethod string

const (
	PaymentMethodCard         PaymentMethod = "card"
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
)

// Cabin classes offered on quotes and invoices.
const (
	CabinEconomy  = "Economy"
	CabinBusiness = "Business"
	CabinFirst    = "First Class"
)

// ValidCabinClass reports whether c is a sellable cabin class.
func ValidCabinClass(c string) bool {
	return c == CabinEconomy || c == CabinBusiness || c == CabinFirst
}

// Currencies the agency invoices in.
var SupportedCurrencies = []string{"USD", "EUR", "GBP", "EGP"}

// ValidCurrency reports whether code is one of SupportedCurrencies.
func ValidCurrency(code string) bool {
	for _, c := range SupportedCurrencies {
		if c == code {
			return true
		}
	}
	return false
}

// FlightLeg holds the optional structured detail for one direction of travel.
type FlightLeg struct {
	DepartureTime string `bson:"departure_time,omitempty" json:"departure_time,omitempty"` // e.g. "09:35"
	ArrivalTime   string `bson:"arrival_time,omitempty" json:"arrival_time,omitempty"`
	Duration      string `bson:"duration,omitempty" json:"duration,omitempty"` // e.g. "4h 20m"
	Stops         int    `bson:"stops" json:"stops"`
	StopDetails   string `bson:"stop_details,omitempty" json:"stop_details,omitempty"` // free text per-stop breakdown
}

// Invoice is a billable flight booking created by an admin. The customer pays
// it through the public payment-link page; payment_link is the sole credential
// for that page.
type Invoice struct {
	Base          `bson:",inline"`
	InvoiceNumber string `bson:"invoice_number" json:"invoice_number"` // INV-<8 digits>-<3 digits>

	// Customer (free text, not linked to any account)
	CustomerName  string `bson:"customer_name" json:"customer_name"`
	CustomerEmail string `bson:"customer_email" json:"customer_email"`
	CustomerPhone string `bson:"customer_phone" json:"customer_phone"`

	// Flight
	Origin        string     `bson:"origin" json:"origin"`
	Destination   string     `bson:"destination" json:"destination"`
	DepartureDate time.Time  `bson:"departure_date" json:"departure_date"`
	ReturnDate    *time.Time `bson:"return_date,omitempty" json:"return_date,omitempty"`
	Passengers    int        `bson:"passengers" json:"passengers"`
	CabinClass    string     `bson:"cabin_class" json:"cabin_class"`
	OutboundLeg   *FlightLeg `bson:"outbound_leg,omitempty" json:"outbound_leg,omitempty"`
	ReturnLeg     *FlightLeg `bson:"return_leg,omitempty" json:"return_leg,omitempty"`

	// Commercial
	Amount   float64 `bson:"amount" json:"amount"`
	Currency string  `bson:"currency" json:"currency"`
	Notes    string  `bson:"notes,omitempty" json:"notes,omitempty"`

	// Payment
	PaymentStatus PaymentStatus  `bson:"payment_status" json:"payment_status"`
	PaymentMethod *PaymentMethod `bson:"payment_method,omitempty" json:"payment_method,omitempty"`
	PaymentLink   string         `bson:"payment_link" json:"payment_link"` // unique, index-enforced
	PaidAt        *time.Time     `bson:"paid_at,omitempty" json:"paid_at,omitempty"`

	// Version is incremented on every write. Admin status updates must supply
	// the version they last observed; stale writes are rejected.
	Version int64 `bson:"version" json:"version"`

	// Provenance
	CreatedByID    utils.UID `bson:"created_by_admin_id" json:"created_by_admin_id"`
	CreatedByEmail string    `bson:"created_by_admin_email" json:"created_by_admin_email"`
	CreatedAt      time.Time `bson:"created_at" json:"created_at"`
}
