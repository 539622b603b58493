package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// ID identifies Owners, Albums and Images. Comparisons are always done on this type, never on strings.
type ID = uuid.UUID

var NilID ID

func NewID() ID {
	return uuid.New()
}

func ParseID(s string) (ID, error) {
	return uuid.Parse(s)
}

// IDSet is an unordered set of ids persisted as a JSON array.
// Add and Remove have add-to-set / pull semantics: adding a present id or removing an absent one is a no-op.
type IDSet []ID

func (s IDSet) Contains(id ID) bool {
	for _, v := range s {
		if v == id {
			return true
		}
	}
	return false
}

// Add returns false if id was already present
func (s *IDSet) Add(id ID) bool {
	if s.Contains(id) {
		return false
	}
	*s = append(*s, id)
	return true
}

// Remove returns false if id was not present
func (s *IDSet) Remove(id ID) bool {
	for i, v := range *s {
		if v == id {
			*s = append((*s)[:i:i], (*s)[i+1:]...)
			return true
		}
	}
	return false
}

func (s IDSet) Clone() IDSet {
	if s == nil {
		return nil
	}
	return append(IDSet{}, s...)
}

func (s IDSet) Value() (driver.Value, error) {
	return marshalJSONColumn(s)
}

func (s *IDSet) Scan(value any) error {
	return unmarshalJSONColumn(value, s)
}

// StringSet is an unordered set of free-text values persisted as a JSON array.
type StringSet []string

func NewStringSet(values ...string) StringSet {
	s := StringSet{}
	for _, v := range values {
		s.Add(v)
	}
	return s
}

func (s StringSet) Contains(value string) bool {
	for _, v := range s {
		if v == value {
			return true
		}
	}
	return false
}

// ContainsAny reports whether the two sets intersect
func (s StringSet) ContainsAny(values []string) bool {
	for _, v := range values {
		if s.Contains(v) {
			return true
		}
	}
	return false
}

func (s *StringSet) Add(value string) bool {
	if s.Contains(value) {
		return false
	}
	*s = append(*s, value)
	return true
}

func (s *StringSet) Remove(value string) bool {
	for i, v := range *s {
		if v == value {
			*s = append((*s)[:i:i], (*s)[i+1:]...)
			return true
		}
	}
	return false
}

func (s StringSet) Clone() StringSet {
	if s == nil {
		return nil
	}
	return append(StringSet{}, s...)
}

func (s StringSet) Value() (driver.Value, error) {
	return marshalJSONColumn(s)
}

func (s *StringSet) Scan(value any) error {
	return unmarshalJSONColumn(value, s)
}

// StringList keeps insertion order and duplicates (comments)
type StringList []string

func (l StringList) Clone() StringList {
	if l == nil {
		return nil
	}
	return append(StringList{}, l...)
}

func (l StringList) Value() (driver.Value, error) {
	return marshalJSONColumn(l)
}

func (l *StringList) Scan(value any) error {
	return unmarshalJSONColumn(value, l)
}

func marshalJSONColumn(v any) (driver.Value, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func unmarshalJSONColumn(value any, target any) error {
	var b []byte
	switch v := value.(type) {
	case nil:
		return nil
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into a JSON column", value)
	}
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	return json.Unmarshal(b, target)
}
