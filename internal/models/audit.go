package models

import (
	"time"

	"lastseat/server/internal/utils"
)

// AuditAction identifies the privileged mutation an audit entry describes.
type AuditAction string

const (
	AuditCreateInvoice       AuditAction = "create_invoice"
	AuditUpdateInvoice       AuditAction = "update_invoice"
	AuditUpdateInvoiceStatus AuditAction = "update_invoice_status"
	AuditDeleteInvoice       AuditAction = "delete_invoice"
	AuditUpdateInquiryStatus AuditAction = "update_inquiry_status"
	AuditDeleteInquiry       AuditAction = "delete_inquiry"
	AuditUpsertRoutePrice    AuditAction = "upsert_route_price"
	AuditDeleteRoutePrice    AuditAction = "delete_route_price"
)

// AuditEntry is one append-only record of a privileged admin action. Entries
// are never updated or deleted by the application.
type AuditEntry struct {
	Base       `bson:",inline"`
	ActorID    utils.UID              `bson:"actor_id" json:"actor_id"`
	ActorEmail string                 `bson:"actor_email" json:"actor_email"`
	Action     AuditAction            `bson:"action_type" json:"action_type"`
	EntityType string                 `bson:"entity_type" json:"entity_type"` // e.g. "invoice"
	EntityID   string                 `bson:"entity_id" json:"entity_id"`
	Details    map[string]interface{} `bson:"details,omitempty" json:"details,omitempty"`
	CreatedAt  time.Time              `bson:"created_at" json:"created_at"`
}
