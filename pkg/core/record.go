package core

// Record is an ordered mapping from variable names to string values.
// One Record is built per source document; the global configuration mapping
// handed to the renderer is a Record as well.
//
// A Record is filled once while it is being built and must be treated as
// read-only afterwards. A nil *Record behaves as an empty mapping.
type Record struct {
	keys   []string
	values map[string]string
}

// NewRecord creates an empty record.
func NewRecord() *Record {
	return &Record{values: make(map[string]string)}
}

// RecordFromPairs builds a record from alternating key/value arguments.
// A trailing key without a value is stored with an empty value.
func RecordFromPairs(pairs ...string) *Record {
	r := NewRecord()
	for i := 0; i < len(pairs); i += 2 {
		value := ""
		if i+1 < len(pairs) {
			value = pairs[i+1]
		}
		r.Set(pairs[i], value)
	}
	return r
}

// Set stores value under key. Setting an existing key keeps its original
// position in the key order.
func (r *Record) Set(key, value string) {
	if r.values == nil {
		r.values = make(map[string]string)
	}
	if _, ok := r.values[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.values[key] = value
}

// Get returns the value stored under key.
func (r *Record) Get(key string) (string, bool) {
	if r == nil {
		return "", false
	}
	v, ok := r.values[key]
	return v, ok
}

// Has reports whether key is defined.
func (r *Record) Has(key string) bool {
	_, ok := r.Get(key)
	return ok
}

// Keys returns the keys in insertion order.
func (r *Record) Keys() []string {
	if r == nil {
		return nil
	}
	keys := make([]string, len(r.keys))
	copy(keys, r.keys)
	return keys
}

// Len returns the number of keys.
func (r *Record) Len() int {
	if r == nil {
		return 0
	}
	return len(r.keys)
}

// Clone returns an independent copy of the record.
func (r *Record) Clone() *Record {
	c := NewRecord()
	if r == nil {
		return c
	}
	for _, k := range r.keys {
		c.Set(k, r.values[k])
	}
	return c
}

// With returns a copy of r with the entries of other applied on top.
func (r *Record) With(other *Record) *Record {
	c := r.Clone()
	if other == nil {
		return c
	}
	for _, k := range other.keys {
		c.Set(k, other.values[k])
	}
	return c
}

// IsVariableName reports whether name is a valid template variable name:
// an uppercase ASCII letter followed by uppercase letters, digits or '_'.
func IsVariableName(name string) bool {
	if name == "" || !IsUpper(name[0]) {
		return false
	}
	for i := 1; i < len(name); i++ {
		if !IsVariableChar(name[i]) {
			return false
		}
	}
	return true
}

// IsUpper reports whether c is an uppercase ASCII letter.
func IsUpper(c byte) bool { return c >= 'A' && c <= 'Z' }

// IsVariableChar reports whether c may appear after the first character of a
// variable name.
func IsVariableChar(c byte) bool {
	return IsUpper(c) || (c >= '0' && c <= '9') || c == '_'
}
