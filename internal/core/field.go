package core

import (
	"fmt"
	"strings"
)

// Field names a movement column usable as a filter or grouping dimension.
type Field string

const (
	FieldType        Field = "type"
	FieldEntity      Field = "entity"
	FieldGroup       Field = "group"
	FieldCategory    Field = "category"
	FieldSubcategory Field = "subcategory"
	FieldDetail      Field = "detail"
	FieldCode        Field = "code"
	FieldPeriod      Field = "period"
	FieldAmount      Field = "amount"
)

// Fields lists the text fields in display order. FieldAmount is numeric
// and not part of it.
var Fields = []Field{FieldDetail, FieldEntity, FieldType, FieldGroup, FieldCategory, FieldSubcategory, FieldCode, FieldPeriod}

// ParseField validates a field name.
func ParseField(s string) (Field, error) {
	f := Field(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Fields {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown field %q", s)
}

// Value returns the text of field f on m. The period field reads as the
// raw token the row was imported with.
func (f Field) Value(m Movement) string {
	switch f {
	case FieldType:
		return m.Type
	case FieldEntity:
		return m.Entity
	case FieldGroup:
		return m.Group
	case FieldCategory:
		return m.Category
	case FieldSubcategory:
		return m.Subcategory
	case FieldDetail:
		return m.Detail
	case FieldCode:
		return m.Code
	case FieldPeriod:
		if m.RawPeriod != "" {
			return m.RawPeriod
		}
		return m.Period.Token()
	case FieldAmount:
		return m.Amount.String()
	}
	return ""
}
