package models

import (
	"time"

	"github.com/uptrace/bun"
)

// User represents an authenticated app user.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID           int64     `bun:"id,pk,autoincrement"`
	Username     string    `bun:"username,unique,notnull"`
	PasswordHash string    `bun:"password_hash,notnull"`
	Role         string    `bun:"role,notnull"`
	CreatedAt    time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt    time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

// Session is used by middleware and auth handlers.
type Session struct {
	bun.BaseModel `bun:"table:sessions,alias:s"`

	ID                string         `bun:"id,pk"`
	UserID            int64          `bun:"user_id,notnull"`
	User              User           `bun:"rel:belongs-to,join:user_id=id"`
	UserRoles         []string       `bun:"-"`
	ScreenPermissions map[string]int `bun:"-"`
	ExpiresAt         time.Time      `bun:"expires_at,notnull"`
	CreatedAt         time.Time      `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt         time.Time      `bun:"updated_at,notnull,default:current_timestamp"`
}

// Expired returns true when the session expiry time has passed.
func (s Session) Expired() bool {
	return time.Now().After(s.ExpiresAt)
}

// CostCenter is the allocation target master (jobs, holding accounts).
type CostCenter struct {
	bun.BaseModel `bun:"table:cost_centers,alias:cc"`

	ID        int64     `bun:"id,pk,autoincrement"`
	Code      string    `bun:"code,notnull,unique"`
	Name      string    `bun:"name,notnull"`
	Kind      string    `bun:"kind,notnull,default:'job'"`
	Active    bool      `bun:"active,notnull,default:true"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

// Document is the header of an editable business document. Status is
// authoritative from the database once the row exists; an editor working
// on a document that has never been saved treats it as draft.
type Document struct {
	bun.BaseModel `bun:"table:documents,alias:d"`

	ID              int64      `bun:"id,pk,autoincrement"`
	DocType         string     `bun:"doc_type,notnull"`
	DocNumber       string     `bun:"doc_number,notnull,unique"`
	Status          string     `bun:"status,notnull,default:'draft'"`
	Supplier        string     `bun:"supplier"`
	JobRef          string     `bun:"job_ref"`
	Notes           string     `bun:"notes"`
	Currency        string     `bun:"currency,notnull,default:'GBP'"`
	ExpectedDate    *time.Time `bun:"expected_date"`
	LedgerRef       string     `bun:"ledger_ref"`
	CreatedByUserID int64      `bun:"created_by_user_id,notnull"`
	CreatedAt       time.Time  `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt       time.Time  `bun:"updated_at,notnull,default:current_timestamp"`
}

// DocumentLine is one row of a document's tabular sections. Kind
// discriminates material, time and adjustment rows. UnitCost is NULL
// while the price is still to be confirmed by the supplier.
type DocumentLine struct {
	bun.BaseModel `bun:"table:document_lines,alias:dl"`

	ID           int64     `bun:"id,pk,autoincrement"`
	DocumentID   int64     `bun:"document_id,notnull"`
	Kind         string    `bun:"kind,notnull"`
	Description  string    `bun:"description"`
	PartNumber   string    `bun:"part_number"`
	CostCenterID *int64    `bun:"cost_center_id"`
	Quantity     float64   `bun:"quantity,notnull,default:0"`
	UnitCost     *float64  `bun:"unit_cost"`
	Hours        float64   `bun:"hours,notnull,default:0"`
	ReceivedQty  float64   `bun:"received_qty,notnull,default:0"`
	Position     int64     `bun:"position,notnull,default:0"`
	CreatedAt    time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt    time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

// AllocationEntry distributes a line's received quantity across cost centers.
// For every line the entry quantities must sum to the line's received qty.
type AllocationEntry struct {
	bun.BaseModel `bun:"table:allocation_entries,alias:ae"`

	ID             int64     `bun:"id,pk,autoincrement"`
	DocumentLineID int64     `bun:"document_line_id,notnull"`
	CostCenterID   int64     `bun:"cost_center_id,notnull"`
	Quantity       float64   `bun:"quantity,notnull,default:0"`
	CreatedAt      time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt      time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

// AuditLog captures immutable change history for key operations.
type AuditLog struct {
	bun.BaseModel `bun:"table:audit_logs,alias:al"`

	ID         int64     `bun:"id,pk,autoincrement"`
	UserID     int64     `bun:"user_id,notnull"`
	Action     string    `bun:"action,notnull"`
	EntityType string    `bun:"entity_type,notnull"`
	EntityID   string    `bun:"entity_id,notnull"`
	BeforeJSON string    `bun:"before_json"`
	AfterJSON  string    `bun:"after_json"`
	CreatedAt  time.Time `bun:"created_at,notnull,default:current_timestamp"`
}
