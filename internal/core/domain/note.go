package domain

import (
	"strconv"
	"strings"
	"time"
)

// NoteRecord is one note header as returned by the ERP for a tenant.
// The remote schema is dynamic, so optional fields stay nil when the
// payload omits them; they are never defaulted to zero.
type NoteRecord struct {
	NoteID        int64      `json:"note_id"`
	OperationType *int64     `json:"operation_type,omitempty"`
	SaleType      *int64     `json:"sale_type,omitempty"`
	PartnerCode   *int64     `json:"partner_code,omitempty"`
	Salesperson   *int64     `json:"salesperson,omitempty"`
	TotalAmount   *float64   `json:"total_amount,omitempty"`
	NegotiatedAt  *time.Time `json:"negotiated_at,omitempty"`
	MovementType  string     `json:"movement_type,omitempty"`
}

// NotePage is one page of note headers plus the remote paging indicator.
type NotePage struct {
	Notes   []NoteRecord `json:"notes"`
	HasMore bool         `json:"has_more"`
	Total   int64        `json:"total"`
}

// Active flag values used by the mirror table.
const (
	FlagActive   = "S"
	FlagInactive = "N"
)

// MirrorNote is the persisted counterpart of a NoteRecord, keyed by
// (tenant id, note id). Rows are soft-deleted: Active flips to "N" when
// the note disappears from the source, the row itself is never removed.
type MirrorNote struct {
	TenantID      int64      `json:"tenant_id"`
	NoteID        int64      `json:"note_id"`
	OperationType *int64     `json:"operation_type,omitempty"`
	SaleType      *int64     `json:"sale_type,omitempty"`
	PartnerCode   *int64     `json:"partner_code,omitempty"`
	Salesperson   *int64     `json:"salesperson,omitempty"`
	TotalAmount   *float64   `json:"total_amount,omitempty"`
	NegotiatedAt  *time.Time `json:"negotiated_at,omitempty"`
	MovementType  string     `json:"movement_type,omitempty"`
	Active        string     `json:"active"`
	RefreshedAt   time.Time  `json:"refreshed_at"`
	CreatedAt     time.Time  `json:"created_at"`
}

// IsActive reports whether the row was present in the latest snapshot.
func (m *MirrorNote) IsActive() bool {
	return m.Active == FlagActive
}

// ParseNoteDate parses the ERP's negotiation-date field. Two shapes are
// accepted, each with an optional time component after the first space:
//
//	2024-03-15[ 10:30:00]
//	15/03/2024[ 10:30:00]
//
// Anything else yields nil; a bad date never fails the record carrying it.
func ParseNoteDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	// The mirror keeps dates only, the time component is discarded.
	if i := strings.IndexByte(s, ' '); i >= 0 {
		s = s[:i]
	}

	var year, month, day int
	switch {
	case strings.Contains(s, "-"):
		parts := strings.Split(s, "-")
		if len(parts) != 3 {
			return nil
		}
		year, month, day = atoi(parts[0]), atoi(parts[1]), atoi(parts[2])
	case strings.Contains(s, "/"):
		parts := strings.Split(s, "/")
		if len(parts) != 3 {
			return nil
		}
		day, month, year = atoi(parts[0]), atoi(parts[1]), atoi(parts[2])
	default:
		return nil
	}

	if year <= 0 || month < 1 || month > 12 || day < 1 || day > 31 {
		return nil
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes impossible dates (Feb 31 becomes Mar 3); treat
	// those as unparseable instead of storing a shifted date.
	if t.Year() != year || t.Month() != time.Month(month) || t.Day() != day {
		return nil
	}
	return &t
}

func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return -1
	}
	return n
}
