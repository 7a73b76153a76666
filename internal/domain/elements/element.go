package elements

import (
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/elementstore/internal/domain/aggregates"
	"github.com/yungbote/elementstore/internal/platform/guid"
)

// Element is the aggregate root.
type Element struct {
	id               uuid.UUID
	name             string
	description      string
	subElements      []SubElement
	audit            Audit
	extra            map[string]any
	concurrencyStamp string
}

// New creates an Element whose identity comes from gen.
func New(gen guid.Generator, name, description string) (*Element, error) {
	if gen == nil {
		return nil, aggregates.InvalidArgument("elements.new", "generator", "is required")
	}
	return NewWithID(gen.Create(), name, description)
}

// NewWithID creates an Element with a caller-supplied identity. uuid.Nil is
// replaced by a random identity.
func NewWithID(id uuid.UUID, name, description string) (*Element, error) {
	const op = "elements.new"
	if err := requireText(op, "name", name); err != nil {
		return nil, err
	}
	if err := requireText(op, "description", description); err != nil {
		return nil, err
	}
	if id == uuid.Nil {
		id = uuid.New()
	}
	return &Element{
		id:               id,
		name:             name,
		description:      description,
		concurrencyStamp: NewConcurrencyStamp(),
	}, nil
}

// Restore rebuilds an Element from stored state. Adapters use it; it applies
// no validation so that stored data is returned as-is.
func Restore(id uuid.UUID, name, description string, subs []SubElement, audit Audit, extra map[string]any, stamp string) *Element {
	el := &Element{
		id:               id,
		name:             name,
		description:      description,
		audit:            audit,
		concurrencyStamp: stamp,
	}
	if len(subs) > 0 {
		el.subElements = append([]SubElement(nil), subs...)
	}
	if len(extra) > 0 {
		el.extra = make(map[string]any, len(extra))
		for k, v := range extra {
			el.extra[k] = v
		}
	}
	return el
}

func requireText(op, arg, v string) error {
	if strings.TrimSpace(v) == "" {
		return aggregates.InvalidArgument(op, arg, "is required")
	}
	return nil
}

func (e *Element) ID() uuid.UUID            { return e.id }
func (e *Element) Name() string             { return e.name }
func (e *Element) Description() string      { return e.description }
func (e *Element) Audit() Audit             { return e.audit }
func (e *Element) ConcurrencyStamp() string { return e.concurrencyStamp }

// SetConcurrencyStamp records the stamp a repository persisted.
func (e *Element) SetConcurrencyStamp(stamp string) { e.concurrencyStamp = stamp }

func (e *Element) Rename(name string) error {
	if err := requireText("elements.rename", "name", name); err != nil {
		return err
	}
	e.name = name
	return nil
}

func (e *Element) Describe(description string) error {
	if err := requireText("elements.describe", "description", description); err != nil {
		return err
	}
	e.description = description
	return nil
}

// SubElements returns a copy of the ordered collection.
func (e *Element) SubElements() []SubElement {
	out := make([]SubElement, len(e.subElements))
	copy(out, e.subElements)
	return out
}

func (e *Element) Len() int { return len(e.subElements) }

func (e *Element) contains(s SubElement) bool {
	for _, existing := range e.subElements {
		if existing.Equal(s) {
			return true
		}
	}
	return false
}

// HasSubElement reports whether an equal SubElement is present.
func (e *Element) HasSubElement(s SubElement) bool { return e.contains(s) }

// AddSubElement appends s unless an equal SubElement is already present.
func (e *Element) AddSubElement(s SubElement) error {
	if s.IsZero() {
		return aggregates.InvalidArgument("elements.add_sub_element", "subElement", "is required")
	}
	if e.contains(s) {
		return nil
	}
	e.subElements = append(e.subElements, s)
	return nil
}

// RemoveSubElement removes every SubElement equal to s.
func (e *Element) RemoveSubElement(s SubElement) error {
	if s.IsZero() {
		return aggregates.InvalidArgument("elements.remove_sub_element", "subElement", "is required")
	}
	if !e.contains(s) {
		return nil
	}
	kept := e.subElements[:0]
	for _, existing := range e.subElements {
		if !existing.Equal(s) {
			kept = append(kept, existing)
		}
	}
	for i := len(kept); i < len(e.subElements); i++ {
		e.subElements[i] = SubElement{}
	}
	e.subElements = kept
	return nil
}

func (e *Element) RemoveAllSubElements() {
	e.subElements = nil
}

// Property returns an extra property.
func (e *Element) Property(key string) (any, bool) {
	v, ok := e.extra[key]
	return v, ok
}

func (e *Element) SetProperty(key string, value any) {
	if e.extra == nil {
		e.extra = map[string]any{}
	}
	e.extra[key] = value
}

func (e *Element) RemoveProperty(key string) {
	delete(e.extra, key)
}

// Properties returns a copy of the extra properties.
func (e *Element) Properties() map[string]any {
	out := make(map[string]any, len(e.extra))
	for k, v := range e.extra {
		out[k] = v
	}
	return out
}

// NewConcurrencyStamp returns a fresh opaque stamp.
func NewConcurrencyStamp() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
