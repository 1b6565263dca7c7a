package entity

import "time"

// Index names shared by the record stores
const (
	// IndexCaseID is the non-unique foreign key to the owning recruitment case
	IndexCaseID = "case_id"
	// IndexRef is the unique human-readable reference (code, document number, natural key)
	IndexRef = "ref"
	// IndexApplicationID is the non-unique foreign key to a candidate application
	IndexApplicationID = "application_id"
	// IndexParentID is the non-unique foreign key to the owning sub-record (committee, record, test...)
	IndexParentID = "parent_id"
)

// IndexEntry is one secondary index value of a record
type IndexEntry struct {
	Name   string
	Value  string
	Unique bool
}

// Record is implemented by every persisted entity
type Record interface {
	// Kind names the entity type; stores partition records by kind
	Kind() string
	GetID() int64
	SetID(id int64)
	// Stamp sets UpdatedAt, and CreatedAt when it is still zero
	Stamp(now time.Time)
	// Indexes returns the secondary index values of the record
	Indexes() []IndexEntry
}

// Base carries the identity and timestamps every record has
type Base struct {
	ID        int64     `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// GetID returns the record ID
func (b *Base) GetID() int64 { return b.ID }

// SetID assigns the record ID
func (b *Base) SetID(id int64) { b.ID = id }

// Stamp updates the timestamps
func (b *Base) Stamp(now time.Time) {
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = now
}

func caseIndex(caseID int64) IndexEntry {
	return IndexEntry{Name: IndexCaseID, Value: formatID(caseID)}
}

func parentIndex(parentID int64) IndexEntry {
	return IndexEntry{Name: IndexParentID, Value: formatID(parentID)}
}

func applicationIndex(applicationID int64) IndexEntry {
	return IndexEntry{Name: IndexApplicationID, Value: formatID(applicationID)}
}

func refIndex(value string) IndexEntry {
	return IndexEntry{Name: IndexRef, Value: value, Unique: true}
}
