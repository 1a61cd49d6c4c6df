// Package harvest defines core types shared across subsystems.
package harvest

import (
	"strings"
	"time"
)

// Phase represents which half of the cycle the controller is in.
type Phase string

// Phase values persisted in the checkpoint.
const (
	PhaseHarvesting Phase = "harvesting"
	PhaseVerifying  Phase = "verifying"
)

// Category is one of the item kinds scanned on every search page.
type Category string

// Categories scanned by default, in scan order.
const (
	CategoryDog Category = "dog"
	CategoryCat Category = "cat"
)

// KeyColumn is the table column holding the record key.
const KeyColumn = "link"

// fieldNames is the fixed, ordered field set of a record. The on-disk
// table column order is KeyColumn followed by this list.
var fieldNames = []string{
	"name",
	"location",
	"age",
	"gender",
	"size",
	"color",
	"breed",
	"spayed_neutered",
	"vaccinated",
	"special_needs",
	"kids_compatible",
	"dogs_compatible",
	"cats_compatible",
	"about_me",
	"image",
}

// FieldNames returns the ordered field set of a record.
func FieldNames() []string {
	out := make([]string, len(fieldNames))
	copy(out, fieldNames)
	return out
}

// ColumnNames returns the full on-disk column order, key first.
func ColumnNames() []string {
	return append([]string{KeyColumn}, fieldNames...)
}

// Record is one harvested item keyed by its canonical URL.
//
// Fields maps field name to stored string value; booleans are stored as
// "True"/"False". A field absent from the map was not captured by this
// fetch and must not erase a previously stored value on merge.
type Record struct {
	Key    string
	Fields map[string]string
}

// Field returns the stored value for name, or "" if absent.
func (r Record) Field(name string) string {
	return r.Fields[name]
}

// Clone returns a deep copy of the record.
func (r Record) Clone() Record {
	cp := Record{Key: r.Key}
	if r.Fields != nil {
		cp.Fields = make(map[string]string, len(r.Fields))
		for k, v := range r.Fields {
			cp.Fields[k] = v
		}
	}
	return cp
}

// EscapeMultiline rewrites literal line breaks to "\n" so multi-line free
// text stays on one table row.
func EscapeMultiline(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\\n")
	s = strings.ReplaceAll(s, "\n", "\\n")
	return strings.ReplaceAll(s, "\r", "\\n")
}

// Checkpoint is the single durable resume marker for the controller.
//
// For PhaseHarvesting, Page and Category locate the cursor. For
// PhaseVerifying, ResumeKey names the record about to be verified; empty
// means start from the beginning of the table.
type Checkpoint struct {
	Phase     Phase     `json:"phase"`
	Page      int       `json:"page,omitempty"`
	Category  Category  `json:"category,omitempty"`
	ResumeKey string    `json:"resume_key,omitempty"`
	SavedAt   time.Time `json:"saved_at"`
}

// DefaultCheckpoint is where a cycle begins when no checkpoint exists or
// the stored one is unreadable or out of range.
func DefaultCheckpoint(categories []Category) Checkpoint {
	first := CategoryDog
	if len(categories) > 0 {
		first = categories[0]
	}
	return Checkpoint{Phase: PhaseHarvesting, Page: 1, Category: first}
}
