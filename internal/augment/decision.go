package augment

import "encoding/json"

// Decision records the outcome of one dispatch.
//
// Name is set only when Applied is true. Params is non-nil only when Applied
// is true and the configuration echoes parameters.
type Decision struct {
	Applied bool
	Name    string
	Params  Params
}

// Metadata shapes d into the caller-visible record: "applied" always, "name"
// when applied, and "params" when applied with parameter echo enabled.
func (d Decision) Metadata() map[string]any {
	md := map[string]any{"applied": d.Applied}
	if !d.Applied {
		return md
	}
	md["name"] = d.Name
	if d.Params != nil {
		md["params"] = d.Params
	}
	return md
}

// MarshalJSON encodes d as its Metadata.
func (d Decision) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Metadata())
}

// UnmarshalJSON decodes a record produced by MarshalJSON.
func (d *Decision) UnmarshalJSON(data []byte) error {
	var raw struct {
		Applied bool           `json:"applied"`
		Name    string         `json:"name"`
		Params  map[string]any `json:"params"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*d = Decision{Applied: raw.Applied, Name: raw.Name}
	if raw.Params != nil {
		d.Params = Params(raw.Params)
	}
	return nil
}
