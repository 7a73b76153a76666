package elements

import "strings"

// SubElement is a named key/value pair owned by an Element. It has no identity
// of its own.
type SubElement struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

func NewSubElement(name, value string) SubElement {
	return SubElement{Name: name, Value: value}
}

// Equal compares name and value jointly, ignoring case.
func (s SubElement) Equal(other SubElement) bool {
	return strings.EqualFold(s.Name, other.Name) && strings.EqualFold(s.Value, other.Value)
}

// IsZero reports whether s carries neither a name nor a value.
func (s SubElement) IsZero() bool {
	return s.Name == "" && s.Value == ""
}
