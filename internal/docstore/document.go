package docstore

import (
	"encoding/json"
	"fmt"
	"maps"
	"strings"
)

// Document is a keyed bag of JSON fields. Each field carries the updatedAt
// stamp of the write that last set it, which is what last-write-wins merges
// compare. Version counts committed writes; zero means the document does not
// exist yet.
type Document struct {
	Key       string                     `json:"key"`
	Fields    map[string]json.RawMessage `json:"fields"`
	Stamps    map[string]int64           `json:"stamps"`
	UpdatedAt int64                      `json:"updatedAt"`
	Version   int64                      `json:"version"`
}

func NewDocument(key string) *Document {
	return &Document{
		Key:    key,
		Fields: make(map[string]json.RawMessage),
		Stamps: make(map[string]int64),
	}
}

// UnmarshalDocument decodes a stored document body.
func UnmarshalDocument(key string, body []byte) (*Document, error) {
	doc := NewDocument(key)
	if len(body) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(body, doc); err != nil {
		return nil, fmt.Errorf("decode document %q: %w", key, err)
	}
	doc.Key = key
	doc.init()
	return doc, nil
}

func (d *Document) init() {
	if d.Fields == nil {
		d.Fields = make(map[string]json.RawMessage)
	}
	if d.Stamps == nil {
		d.Stamps = make(map[string]int64)
	}
}

func (d *Document) Exists() bool { return d.Version > 0 }

func (d *Document) Marshal() ([]byte, error) {
	return json.Marshal(d)
}

func (d *Document) Clone() *Document {
	c := &Document{
		Key:       d.Key,
		Fields:    make(map[string]json.RawMessage, len(d.Fields)),
		Stamps:    maps.Clone(d.Stamps),
		UpdatedAt: d.UpdatedAt,
		Version:   d.Version,
	}
	for k, v := range d.Fields {
		c.Fields[k] = append(json.RawMessage(nil), v...)
	}
	if c.Stamps == nil {
		c.Stamps = make(map[string]int64)
	}
	return c
}

// Decode unmarshals the document's fields into v as if they were one JSON
// object.
func (d *Document) Decode(v any) error {
	body, err := json.Marshal(d.Fields)
	if err != nil {
		return fmt.Errorf("encode fields of %q: %w", d.Key, err)
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decode fields of %q: %w", d.Key, err)
	}
	return nil
}

// Int returns an integer field, or zero if it is missing or not a number.
func (d *Document) Int(field string) int64 {
	raw, ok := d.Fields[field]
	if !ok {
		return 0
	}
	var n int64
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0
	}
	return n
}

// IntsWithPrefix collects integer fields named prefix+id, keyed by id.
func (d *Document) IntsWithPrefix(prefix string) map[string]int64 {
	out := make(map[string]int64)
	for name := range d.Fields {
		if id, ok := strings.CutPrefix(name, prefix); ok {
			out[id] = d.Int(name)
		}
	}
	return out
}

// MergeRemote overlays every field r carries onto d, so the remote copy wins
// for those fields. Fields only d knows about are kept.
func (d *Document) MergeRemote(r *Document) {
	d.init()
	for name, raw := range r.Fields {
		d.Fields[name] = append(json.RawMessage(nil), raw...)
		d.Stamps[name] = r.Stamps[name]
	}
	if r.UpdatedAt > d.UpdatedAt {
		d.UpdatedAt = r.UpdatedAt
	}
	if r.Version > d.Version {
		d.Version = r.Version
	}
}
