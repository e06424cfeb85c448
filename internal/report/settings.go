package report

import (
	"fmt"
	"math"
	"sort"

	"arena-sheets/internal/arena"
	"arena-sheets/lib/configutil"

	"github.com/titanous/json5"
)

// Condition is a single field-equality predicate over a PersonRecord.
type Condition struct {
	Field string
	Value arena.Value
}

func (c Condition) Matches(p arena.PersonRecord) bool {
	value, ok := p.Field(c.Field)
	if !ok {
		return false
	}
	return value.Equal(c.Value)
}

// Filter is a conjunction of conditions, an empty filter matches everyone.
type Filter []Condition

func (f Filter) Matches(p arena.PersonRecord) bool {
	for _, c := range f {
		if !c.Matches(p) {
			return false
		}
	}
	return true
}

// NewFilter builds a filter from a {field: value} object, conditions are
// ordered by field name.
func NewFilter(fields map[string]any) (Filter, error) {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	filter := make(Filter, 0, len(names))
	for _, name := range names {
		kind, err := arena.FieldKind(name)
		if err != nil {
			return nil, err
		}
		value, err := toValue(kind, fields[name])
		if err != nil {
			return nil, fmt.Errorf("filter field %q: %w", name, err)
		}
		filter = append(filter, Condition{Field: name, Value: value})
	}
	return filter, nil
}

func toValue(kind arena.ValueKind, raw any) (arena.Value, error) {
	switch kind {
	case arena.KindBool:
		v, ok := raw.(bool)
		if !ok {
			return arena.Value{}, fmt.Errorf("expected bool, got %T", raw)
		}
		return arena.BoolValue(v), nil
	case arena.KindInt:
		switch v := raw.(type) {
		case int:
			return arena.IntValue(v), nil
		case float64:
			if v != math.Trunc(v) {
				return arena.Value{}, fmt.Errorf("expected whole number, got %v", v)
			}
			return arena.IntValue(int(v)), nil
		}
		return arena.Value{}, fmt.Errorf("expected number, got %T", raw)
	default:
		v, ok := raw.(string)
		if !ok {
			return arena.Value{}, fmt.Errorf("expected string, got %T", raw)
		}
		return arena.StringValue(v), nil
	}
}

func (f *Filter) UnmarshalJSON(data []byte) error {
	var fields map[string]any
	err := json5.Unmarshal(data, &fields)
	if err != nil {
		return err
	}
	parsed, err := NewFilter(fields)
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

func (f Filter) String() string {
	out := "{"
	for i, c := range f {
		if i > 0 {
			out += ", "
		}
		out += c.Field + "=" + c.Value.Format()
	}
	return out + "}"
}

// Rule tags every active person matching Filter with Reason in the contact queue.
type Rule struct {
	Reason string `json:"reason"`
	Filter Filter `json:"filter"`
}

// ClassSettings is the per-class configuration.
type ClassSettings struct {
	Skip              bool   `json:"skip"`
	ContactQueueItems []Rule `json:"contact_queue_items"`

	// Notify lists email addresses told about new contact queue entries.
	Notify []string `json:"notify"`
}

// UnmarshalJSON accepts both contact_queue_items and contactQueueItems, the
// latter being the key used by older configs.
func (c *ClassSettings) UnmarshalJSON(data []byte) error {
	var raw struct {
		Skip                    bool     `json:"skip"`
		ContactQueueItems       []Rule   `json:"contact_queue_items"`
		LegacyContactQueueItems []Rule   `json:"contactQueueItems"`
		Notify                  []string `json:"notify"`
	}
	err := json5.Unmarshal(data, &raw)
	if err != nil {
		return err
	}
	if raw.ContactQueueItems != nil && raw.LegacyContactQueueItems != nil {
		return fmt.Errorf("both contact_queue_items and contactQueueItems are set")
	}
	items := raw.ContactQueueItems
	if items == nil {
		items = raw.LegacyContactQueueItems
	}
	*c = ClassSettings{
		Skip:              raw.Skip,
		ContactQueueItems: items,
		Notify:            raw.Notify,
	}
	return nil
}

func mustFilter(fields map[string]any) Filter {
	filter, err := NewFilter(fields)
	if err != nil {
		panic(err)
	}
	return filter
}

// DefaultClassSettings returns the settings used for any class without
// configuration, a fresh copy every call.
func DefaultClassSettings() ClassSettings {
	return ClassSettings{
		ContactQueueItems: []Rule{
			{
				Reason: "First Time Visitor",
				Filter: mustFilter(map[string]any{"isMember": false, "firstPresentWeeksAgo": 0}),
			},
			{
				Reason: "Member Absent 3 Weeks",
				Filter: mustFilter(map[string]any{"isMember": true, "lastPresentWeeksAgo": 4}),
			},
			{
				Reason: "Member 2 Months",
				Filter: mustFilter(map[string]any{"isMember": true, "lastPresentWeeksAgo": 9}),
			},
		},
	}
}

// SettingsTable holds the configured settings of each class by class id.
type SettingsTable map[string]ClassSettings

// For returns the settings of a class, unset fields are taken from
// DefaultClassSettings.
func (t SettingsTable) For(classID string) (ClassSettings, error) {
	configured, ok := t[classID]
	if !ok {
		return DefaultClassSettings(), nil
	}
	settings, err := configutil.WithDefaults(configured, DefaultClassSettings())
	if err != nil {
		return ClassSettings{}, fmt.Errorf("class %s settings: %w", classID, err)
	}
	return settings, nil
}

// Skip reports whether a class is configured to be skipped.
func (t SettingsTable) Skip(classID string) bool {
	return t[classID].Skip
}
