package dxcc

import "strings"

// Kind is the element type of a Record.
type Kind string

const (
	KindHeader        Kind = "header"
	KindEntity        Kind = "entity"
	KindPrefix        Kind = "prefix"
	KindException     Kind = "exception"
	KindInvalid       Kind = "invalid"
	KindZoneException Kind = "zone_exception"
)

// Record is one untyped element of the reference document: its attributes
// and the text of its child elements, keyed by element name.
type Record struct {
	Kind   Kind
	Attrs  map[string]string
	Fields map[string]string
}

// Field returns the trimmed text of a child element.
// A present but empty element counts as absent.
func (r Record) Field(name string) (string, bool) {
	v, ok := r.Fields[name]
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

// Attr returns the trimmed value of an attribute.
func (r Record) Attr(name string) (string, bool) {
	v, ok := r.Attrs[name]
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}
