package elements

import (
	"time"

	"github.com/google/uuid"
)

// Audit is the creation/modification/deletion record reserved on every
// Element. The fields are stamped by internal/platform/audit, never by the
// aggregate itself.
type Audit struct {
	CreatedAt  time.Time  `json:"createdAt"`
	CreatedBy  *uuid.UUID `json:"createdBy,omitempty"`
	ModifiedAt *time.Time `json:"modifiedAt,omitempty"`
	ModifiedBy *uuid.UUID `json:"modifiedBy,omitempty"`
	IsDeleted  bool       `json:"isDeleted"`
	DeletedAt  *time.Time `json:"deletedAt,omitempty"`
	DeletedBy  *uuid.UUID `json:"deletedBy,omitempty"`
}

// ResetAudit replaces the audit record. Repositories use it to drop stamps
// from a write that did not persist.
func (e *Element) ResetAudit(a Audit) {
	if e == nil {
		return
	}
	e.audit = a
}

func (e *Element) StampCreated(at time.Time, by *uuid.UUID) {
	if e == nil {
		return
	}
	e.audit.CreatedAt = at
	e.audit.CreatedBy = by
}

func (e *Element) StampModified(at time.Time, by *uuid.UUID) {
	if e == nil {
		return
	}
	e.audit.ModifiedAt = &at
	e.audit.ModifiedBy = by
}

func (e *Element) StampDeleted(at time.Time, by *uuid.UUID) {
	if e == nil {
		return
	}
	e.audit.IsDeleted = true
	e.audit.DeletedAt = &at
	e.audit.DeletedBy = by
}
