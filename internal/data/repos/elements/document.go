package elements

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	domain "github.com/yungbote/elementstore/internal/domain/elements"
)

// document is the stored JSON shape of an element in the document backend.
// SubElements are embedded; there is no separate collection for them.
type document struct {
	ID               uuid.UUID           `json:"id"`
	Name             string              `json:"name"`
	Description      string              `json:"description"`
	SubElements      []domain.SubElement `json:"subElements"`
	ExtraProperties  map[string]any      `json:"extraProperties,omitempty"`
	ConcurrencyStamp string              `json:"concurrencyStamp"`
	Audit            domain.Audit        `json:"audit"`
}

func toDocument(el *domain.Element) document {
	subs := el.SubElements()
	if subs == nil {
		subs = []domain.SubElement{}
	}
	doc := document{
		ID:               el.ID(),
		Name:             el.Name(),
		Description:      el.Description(),
		SubElements:      subs,
		ConcurrencyStamp: el.ConcurrencyStamp(),
		Audit:            el.Audit(),
	}
	if props := el.Properties(); len(props) > 0 {
		doc.ExtraProperties = props
	}
	return doc
}

func (d document) toDomain() *domain.Element {
	return domain.Restore(d.ID, d.Name, d.Description, d.SubElements, d.Audit, d.ExtraProperties, d.ConcurrencyStamp)
}

// mergeModified keeps the stored creation and deletion fields and takes the
// modification fields from next.
func mergeModified(stored, next domain.Audit) domain.Audit {
	stored.ModifiedAt = next.ModifiedAt
	stored.ModifiedBy = next.ModifiedBy
	return stored
}

func encodeDocument(el *domain.Element) (string, error) {
	raw, err := json.Marshal(toDocument(el))
	if err != nil {
		return "", fmt.Errorf("encode element %s: %w", el.ID(), err)
	}
	return string(raw), nil
}

func decodeDocument(raw string) (*domain.Element, error) {
	var doc document
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("decode element document: %w", err)
	}
	return doc.toDomain(), nil
}
