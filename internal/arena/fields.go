package arena

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"arena-sheets/internal/chrono"
)

type ValueKind int

const (
	KindString ValueKind = iota
	KindBool
	KindInt
)

func (k ValueKind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	default:
		return "string"
	}
}

// Value is a typed PersonRecord field value, used to evaluate filters.
type Value struct {
	Kind   ValueKind
	Bool   bool
	Int    int
	String string
}

func BoolValue(v bool) Value     { return Value{Kind: KindBool, Bool: v} }
func IntValue(v int) Value       { return Value{Kind: KindInt, Int: v} }
func StringValue(v string) Value { return Value{Kind: KindString, String: v} }

func (v Value) Equal(other Value) bool {
	if v.Kind != other.Kind {
		return false
	}
	switch v.Kind {
	case KindBool:
		return v.Bool == other.Bool
	case KindInt:
		return v.Int == other.Int
	default:
		return v.String == other.String
	}
}

func (v Value) Format() string {
	switch v.Kind {
	case KindBool:
		return strconv.FormatBool(v.Bool)
	case KindInt:
		return strconv.Itoa(v.Int)
	default:
		return v.String
	}
}

type fieldGetter struct {
	kind ValueKind
	get  func(p PersonRecord) (Value, bool)
}

func stringField(get func(p PersonRecord) string) fieldGetter {
	return fieldGetter{kind: KindString, get: func(p PersonRecord) (Value, bool) {
		return StringValue(get(p)), true
	}}
}

func boolField(get func(p PersonRecord) bool) fieldGetter {
	return fieldGetter{kind: KindBool, get: func(p PersonRecord) (Value, bool) {
		return BoolValue(get(p)), true
	}}
}

var fieldGetters = map[string]fieldGetter{
	"fullname":         stringField(func(p PersonRecord) string { return p.FullName }),
	"lastname":         stringField(func(p PersonRecord) string { return p.LastName }),
	"firstname":        stringField(func(p PersonRecord) string { return p.FirstName }),
	"gender":           stringField(func(p PersonRecord) string { return p.Gender }),
	"dob":              stringField(func(p PersonRecord) string { return p.DOB }),
	"email":            stringField(func(p PersonRecord) string { return p.Email }),
	"cellphone":        stringField(func(p PersonRecord) string { return p.CellPhone }),
	"homephone":        stringField(func(p PersonRecord) string { return p.HomePhone }),
	"address":          stringField(func(p PersonRecord) string { return p.Address }),
	"citystatezip":     stringField(func(p PersonRecord) string { return p.CityStateZip }),
	"role":             stringField(func(p PersonRecord) string { return p.Role }),
	"dateadded":        stringField(func(p PersonRecord) string { return p.DateAdded }),
	"firstpresent":     stringField(func(p PersonRecord) string { return chrono.FormatDate(p.FirstPresent) }),
	"lastpresent":      stringField(func(p PersonRecord) string { return chrono.FormatDate(p.LastPresent) }),
	"dateinactive":     stringField(func(p PersonRecord) string { return chrono.FormatDate(p.DateInactive) }),
	"ismember":         boolField(func(p PersonRecord) bool { return p.IsMember }),
	"isactive":         boolField(func(p PersonRecord) bool { return p.IsActive }),
	"isactivemia":      boolField(func(p PersonRecord) bool { return p.IsActiveMIA }),
	"attendancejoined": boolField(func(p PersonRecord) bool { return p.AttendanceJoined }),
	// weeks ago only exist when the matching date is known
	"firstpresentweeksago": {kind: KindInt, get: func(p PersonRecord) (Value, bool) {
		if p.FirstPresent.IsZero() {
			return Value{}, false
		}
		return IntValue(p.FirstPresentWeeksAgo), true
	}},
	"lastpresentweeksago": {kind: KindInt, get: func(p PersonRecord) (Value, bool) {
		if p.LastPresent.IsZero() {
			return Value{}, false
		}
		return IntValue(p.LastPresentWeeksAgo), true
	}},
}

// NormalizeFieldName makes "isMember", "is_member" and "IsMember" the same field.
func NormalizeFieldName(name string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(name), "_", ""))
}

// FieldKind returns the kind of a named field, an error for unknown fields.
func FieldKind(name string) (ValueKind, error) {
	getter, ok := fieldGetters[NormalizeFieldName(name)]
	if !ok {
		return 0, fmt.Errorf("unknown person field %q, known fields: %s", name, strings.Join(FieldNames(), ", "))
	}
	return getter.kind, nil
}

// FieldNames lists the normalized names of every filterable field.
func FieldNames() []string {
	names := make([]string, 0, len(fieldGetters))
	for name := range fieldGetters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Field returns the named field, false if the field is unknown or has no value.
func (p PersonRecord) Field(name string) (Value, bool) {
	getter, ok := fieldGetters[NormalizeFieldName(name)]
	if !ok {
		return Value{}, false
	}
	return getter.get(p)
}
