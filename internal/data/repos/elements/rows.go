package elements

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	domain "github.com/yungbote/elementstore/internal/domain/elements"
)

// Element is the relational row of an element. The table name comes from
// the connection's naming strategy ("app_elements" with the default prefix).
type Element struct {
	ID               uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	Name             string            `gorm:"not null;column:name;index" json:"name"`
	Description      string            `gorm:"not null;column:description" json:"description"`
	ExtraProperties  datatypes.JSONMap `gorm:"column:extra_properties" json:"extra_properties,omitempty"`
	ConcurrencyStamp string            `gorm:"size:40;not null;column:concurrency_stamp" json:"concurrency_stamp"`

	CreatedAt  time.Time      `gorm:"not null;column:created_at;index" json:"created_at"`
	CreatedBy  *uuid.UUID     `gorm:"type:uuid;column:created_by" json:"created_by,omitempty"`
	ModifiedAt *time.Time     `gorm:"column:modified_at" json:"modified_at,omitempty"`
	ModifiedBy *uuid.UUID     `gorm:"type:uuid;column:modified_by" json:"modified_by,omitempty"`
	IsDeleted  bool           `gorm:"not null;default:false;column:is_deleted;index" json:"is_deleted"`
	DeletedAt  gorm.DeletedAt `gorm:"column:deleted_at;index" json:"deleted_at,omitempty"`
	DeletedBy  *uuid.UUID     `gorm:"type:uuid;column:deleted_by" json:"deleted_by,omitempty"`

	SubElements []SubElement `gorm:"foreignKey:ElementID;constraint:OnDelete:CASCADE" json:"sub_elements"`
}

// SubElement is one owned value row. Position keeps the insertion order.
type SubElement struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"-"`
	ElementID uuid.UUID `gorm:"type:uuid;not null;column:element_id;index" json:"element_id"`
	Position  int       `gorm:"not null;column:position" json:"position"`
	Name      string    `gorm:"not null;column:name" json:"name"`
	Value     string    `gorm:"not null;column:value" json:"value"`
}

// Models lists the row types owned by the relational adapter, in creation
// order.
func Models() []any {
	return []any{&Element{}, &SubElement{}}
}

func toRow(el *domain.Element) *Element {
	a := el.Audit()
	row := &Element{
		ID:               el.ID(),
		Name:             el.Name(),
		Description:      el.Description(),
		ConcurrencyStamp: el.ConcurrencyStamp(),
		CreatedAt:        a.CreatedAt,
		CreatedBy:        a.CreatedBy,
		ModifiedAt:       a.ModifiedAt,
		ModifiedBy:       a.ModifiedBy,
		IsDeleted:        a.IsDeleted,
		DeletedBy:        a.DeletedBy,
	}
	if a.DeletedAt != nil {
		row.DeletedAt = gorm.DeletedAt{Time: *a.DeletedAt, Valid: true}
	}
	if props := el.Properties(); len(props) > 0 {
		row.ExtraProperties = datatypes.JSONMap(props)
	}
	row.SubElements = toSubRows(el.ID(), el.SubElements())
	return row
}

func toSubRows(id uuid.UUID, subs []domain.SubElement) []SubElement {
	if len(subs) == 0 {
		return nil
	}
	out := make([]SubElement, 0, len(subs))
	for i, s := range subs {
		out = append(out, SubElement{ElementID: id, Position: i, Name: s.Name, Value: s.Value})
	}
	return out
}

func toDomain(row *Element) *domain.Element {
	a := domain.Audit{
		CreatedAt:  row.CreatedAt,
		CreatedBy:  row.CreatedBy,
		ModifiedAt: row.ModifiedAt,
		ModifiedBy: row.ModifiedBy,
		IsDeleted:  row.IsDeleted,
		DeletedBy:  row.DeletedBy,
	}
	if row.DeletedAt.Valid {
		at := row.DeletedAt.Time
		a.DeletedAt = &at
	}
	subs := make([]domain.SubElement, 0, len(row.SubElements))
	for _, s := range row.SubElements {
		subs = append(subs, domain.NewSubElement(s.Name, s.Value))
	}
	return domain.Restore(row.ID, row.Name, row.Description, subs, a, map[string]any(row.ExtraProperties), row.ConcurrencyStamp)
}
