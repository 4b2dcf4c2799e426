package streams

import "fmt"

// FieldPair is one name/value pair of an Entry's fields, kept in
// insertion order per spec §9 ("Field ordering") rather than the
// source's unordered map.
type FieldPair struct {
	Name  string
	Value string
}

// Entry is an immutable (id, fields) record. Once constructed it is
// never mutated; Stream.Delete removes the Entry object entirely rather
// than clearing its fields.
type Entry struct {
	ID     EntryID
	Fields []FieldPair
}

// NewFields builds an ordered field list from a flat, must-be-even
// [name, value, name, value, ...] slice, as XADD receives its trailing
// arguments. A repeated name updates the existing pair's value in
// place, keeping the "keys unique" invariant of spec §3 without losing
// the position of the first occurrence.
func NewFields(flat []string) ([]FieldPair, error) {
	if len(flat)%2 != 0 {
		return nil, fmt.Errorf("wrong number of arguments for 'xadd' command")
	}

	fields := make([]FieldPair, 0, len(flat)/2)
	index := make(map[string]int, len(flat)/2)

	for i := 0; i < len(flat); i += 2 {
		name, value := flat[i], flat[i+1]
		if pos, ok := index[name]; ok {
			fields[pos].Value = value
			continue
		}
		index[name] = len(fields)
		fields = append(fields, FieldPair{Name: name, Value: value})
	}

	return fields, nil
}

// Flat returns the fields as an alternating [name, value, ...] slice,
// the shape the wire codec needs for a stream-read reply (spec §6).
func (e Entry) Flat() []string {
	flat := make([]string, 0, len(e.Fields)*2)
	for _, f := range e.Fields {
		flat = append(flat, f.Name, f.Value)
	}
	return flat
}
