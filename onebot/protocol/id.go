package protocol

import (
	"encoding/json"
	"fmt"
)

// ID is a string-backed identifier that decodes from either a JSON number or
// a JSON string on the wire, the way every *_id field in the OneBot protocol
// does. It always marshals back out as a JSON string.
type ID string

// UnmarshalJSON accepts a bare number or a string and normalizes to string.
func (id *ID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected number or string id, got %s", data)
	}
	*id = ID(n.String())
	return nil
}

// MarshalJSON always emits a JSON string.
func (id ID) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(id))
}

// OptionalID is like ID but an absent/null field decodes to "" with IsSet
// reporting false, mirroring option_id_deserializer.
type OptionalID struct {
	Value string
	IsSet bool
}

func (o *OptionalID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		o.Value, o.IsSet = "", false
		return nil
	}
	var id ID
	if err := id.UnmarshalJSON(data); err != nil {
		return err
	}
	o.Value, o.IsSet = string(id), true
	return nil
}

func (o OptionalID) MarshalJSON() ([]byte, error) {
	if !o.IsSet {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}

// String returns the underlying value regardless of IsSet.
func (o OptionalID) String() string {
	return o.Value
}
