package models

import (
	"time"
)

// InquiryKind distinguishes the public lead forms that feed the inquiries
// collection.
type InquiryKind string

const (
	InquiryKindContact     InquiryKind = "contact"
	InquiryKindFlight      InquiryKind = "flight"
	InquiryKindGiftVoucher InquiryKind = "gift_voucher"
)

// InquiryStatus tracks staff follow-up on an inquiry.
type InquiryStatus string

const (
	InquiryStatusNew       InquiryStatus = "new"
	InquiryStatusPending   InquiryStatus = "pending"
	InquiryStatusContacted InquiryStatus = "contacted"
	InquiryStatusCompleted InquiryStatus = "completed"
	InquiryStatusCancelled InquiryStatus = "cancelled"
)

// ValidInquiryStatus reports whether s is a known inquiry status.
func ValidInquiryStatus(s InquiryStatus) bool {
	switch s {
	case InquiryStatusNew, InquiryStatusPending, InquiryStatusContacted,
		InquiryStatusCompleted, InquiryStatusCancelled:
		return true
	}
	return false
}

// Inquiry is an unauthenticated lead-form submission: a general contact
// message, a flight-quote request, or a gift-voucher request. Same CRUD shape
// as Invoice but without payment fields.
type Inquiry struct {
	Base    `bson:",inline"`
	Kind    InquiryKind `bson:"kind" json:"kind"`
	Name    string      `bson:"name" json:"name"`
	Email   string      `bson:"email" json:"email"`
	Phone   string      `bson:"phone,omitempty" json:"phone,omitempty"`
	Message string      `bson:"message,omitempty" json:"message,omitempty"`

	// Flight-quote fields (kind == flight)
	Origin        string     `bson:"origin,omitempty" json:"origin,omitempty"`
	Destination   string     `bson:"destination,omitempty" json:"destination,omitempty"`
	DepartureDate *time.Time `bson:"departure_date,omitempty" json:"departure_date,omitempty"`
	ReturnDate    *time.Time `bson:"return_date,omitempty" json:"return_date,omitempty"`
	Passengers    int        `bson:"passengers,omitempty" json:"passengers,omitempty"`
	CabinClass    string     `bson:"cabin_class,omitempty" json:"cabin_class,omitempty"`

	// Gift-voucher fields (kind == gift_voucher)
	VoucherAmount   float64 `bson:"voucher_amount,omitempty" json:"voucher_amount,omitempty"`
	VoucherCurrency string  `bson:"voucher_currency,omitempty" json:"voucher_currency,omitempty"`
	RecipientName   string  `bson:"recipient_name,omitempty" json:"recipient_name,omitempty"`

	Status     InquiryStatus `bson:"status" json:"status"`
	AdminNotes string        `bson:"admin_notes,omitempty" json:"admin_notes,omitempty"`
	CreatedAt  time.Time     `bson:"created_at" json:"created_at"`
	UpdatedAt  time.Time     `bson:"updated_at" json:"updated_at"`
}
