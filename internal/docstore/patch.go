package docstore

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrGuard is returned when an increment would take a field below its floor.
var ErrGuard = errors.New("field floor violated")

// Patch is a partial update. Set fields merge last-write-wins against the
// per-field stamps; Inc fields are added atomically regardless of stamps.
type Patch struct {
	UpdatedAt int64            `json:"updatedAt"`
	Set       map[string]any   `json:"set,omitempty"`
	Inc       map[string]int64 `json:"inc,omitempty"`
	Min       map[string]int64 `json:"min,omitempty"`
}

func NewPatch() *Patch {
	return &Patch{}
}

func (p *Patch) SetField(name string, v any) *Patch {
	if p.Set == nil {
		p.Set = make(map[string]any)
	}
	p.Set[name] = v
	return p
}

// SetAll sets every top-level JSON field of v.
func (p *Patch) SetAll(v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode patch fields: %w", err)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return fmt.Errorf("patch fields must be an object: %w", err)
	}
	for name, raw := range fields {
		p.SetField(name, raw)
	}
	return nil
}

func (p *Patch) Increment(name string, delta int64) *Patch {
	if p.Inc == nil {
		p.Inc = make(map[string]int64)
	}
	p.Inc[name] += delta
	return p
}

// Floor makes the patch fail with ErrGuard if name would end below min.
func (p *Patch) Floor(name string, min int64) *Patch {
	if p.Min == nil {
		p.Min = make(map[string]int64)
	}
	p.Min[name] = min
	return p
}

func (p *Patch) Empty() bool {
	return len(p.Set) == 0 && len(p.Inc) == 0
}

// ApplyTo merges p into d. Either every change lands or none does.
func (p *Patch) ApplyTo(d *Document) error {
	d.init()

	sets := make(map[string]json.RawMessage, len(p.Set))
	for name, v := range p.Set {
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encode field %q: %w", name, err)
		}
		sets[name] = raw
	}

	incs := make(map[string]int64, len(p.Inc))
	for name, delta := range p.Inc {
		next := d.Int(name) + delta
		if min, ok := p.Min[name]; ok && next < min {
			return fmt.Errorf("%s would be %d, floor %d: %w", name, next, min, ErrGuard)
		}
		incs[name] = next
	}

	for name, raw := range sets {
		if p.UpdatedAt < d.Stamps[name] {
			continue
		}
		d.Fields[name] = raw
		d.Stamps[name] = p.UpdatedAt
	}
	for name, next := range incs {
		raw, _ := json.Marshal(next)
		d.Fields[name] = raw
		if p.UpdatedAt > d.Stamps[name] {
			d.Stamps[name] = p.UpdatedAt
		}
	}
	if p.UpdatedAt > d.UpdatedAt {
		d.UpdatedAt = p.UpdatedAt
	}
	return nil
}

// Revert undoes p on a local copy after the remote refused it. Increments are
// subtracted again. A field p was the last to set takes the remote's value
// when remote carries it and is dropped otherwise. remote may be nil when it
// could not be fetched.
func (p *Patch) Revert(d *Document, remote *Document) {
	d.init()
	restore := func(name string) {
		if remote != nil {
			if raw, ok := remote.Fields[name]; ok {
				d.Fields[name] = append(json.RawMessage(nil), raw...)
				d.Stamps[name] = remote.Stamps[name]
				return
			}
		}
		delete(d.Fields, name)
		delete(d.Stamps, name)
	}

	for name := range p.Set {
		if d.Stamps[name] == p.UpdatedAt {
			restore(name)
		}
	}
	for name, delta := range p.Inc {
		next := d.Int(name) - delta
		if next == 0 && d.Stamps[name] == p.UpdatedAt {
			restore(name)
			continue
		}
		raw, _ := json.Marshal(next)
		d.Fields[name] = raw
	}
}
