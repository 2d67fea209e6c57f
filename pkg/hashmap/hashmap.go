// Package hashmap implements an open-addressed Robin-Hood hashmap keyed by
// value.Value, used by the VM for both the globals table and the
// string-intern pool (spec.md §4.6).
//
// Robin-Hood hashing resolves collisions by giving the contested slot to
// whichever entry sits further from its own ideal slot: on insert, if the
// entry occupying the probed slot has travelled a shorter distance from its
// ideal slot than the entry being inserted has, the two are swapped and
// probing continues with
// the displaced entry. This keeps the variance of probe lengths low
// compared to plain linear probing.
//
// Example:
//
//	var m hashmap.Map
//	m.Insert(key, value.Integer(10))
//	v, ok := m.Get(key)
package hashmap

import (
	"math"

	"github.com/MicheleFiladelfia/filang/pkg/value"
)

const maxLoadFactor = 0.57

type entry struct {
	key   value.Value
	value value.Value
}

func isEmptySlot(e entry) bool { return e.key.Type == value.TypeNil }

// Map is an open-addressed Robin-Hood hashmap. The zero value is an empty,
// ready-to-use map. Nil cannot be used as a key: an empty slot is signaled
// internally by a Nil-typed key.
type Map struct {
	entries  []entry
	count    int
	capacity int // always a power of two, or 0
}

// Len returns the number of live entries.
func (m *Map) Len() int { return m.count }

// Insert adds or overwrites key -> val. It reports whether key already
// existed (true: replaced, false: inserted fresh).
func (m *Map) Insert(key value.Value, val value.Value) bool {
	if m.count+1 > int(float64(m.capacity)*maxLoadFactor) {
		m.grow()
	}

	mask := m.capacity - 1
	idx := int(hashValue(key)) & mask
	dist := 0
	m.count++

	for {
		if isEmptySlot(m.entries[idx]) {
			m.entries[idx] = entry{key: key, value: val}
			return false
		}
		if keyEqual(m.entries[idx].key, key) {
			m.entries[idx].value = val
			m.count-- // wasn't actually a new entry
			return true
		}

		desired := int(hashValue(m.entries[idx].key)) & mask
		curDist := (idx - desired + m.capacity) & mask
		if curDist < dist {
			key, m.entries[idx].key = m.entries[idx].key, key
			val, m.entries[idx].value = m.entries[idx].value, val
			dist = curDist
		}
		dist++
		idx = (idx + 1) & mask
	}
}

// Get looks up key, returning its value and whether it was found.
func (m *Map) Get(key value.Value) (value.Value, bool) {
	if m.count == 0 {
		return value.Nil, false
	}
	mask := m.capacity - 1
	idx := int(hashValue(key)) & mask
	for {
		if isEmptySlot(m.entries[idx]) {
			return value.Nil, false
		}
		if keyEqual(m.entries[idx].key, key) {
			return m.entries[idx].value, true
		}
		idx = (idx + 1) & mask
	}
}

// Set overwrites the value for an existing key, reporting whether the key
// was found. Unlike Insert, it never grows the map or changes Len.
func (m *Map) Set(key value.Value, val value.Value) bool {
	if m.count == 0 {
		return false
	}
	mask := m.capacity - 1
	idx := int(hashValue(key)) & mask
	for {
		if isEmptySlot(m.entries[idx]) {
			return false
		}
		if keyEqual(m.entries[idx].key, key) {
			m.entries[idx].value = val
			return true
		}
		idx = (idx + 1) & mask
	}
}

// Contains reports whether key is present, using the Robin-Hood invariant
// to stop early once the probe distance exceeds what any matching entry
// could have.
func (m *Map) Contains(key value.Value) bool {
	if m.count == 0 {
		return false
	}
	mask := m.capacity - 1
	idx := int(hashValue(key)) & mask
	dist := 0
	for {
		if isEmptySlot(m.entries[idx]) {
			return false
		}
		if keyEqual(m.entries[idx].key, key) {
			return true
		}
		desired := int(hashValue(m.entries[idx].key)) & mask
		curDist := (idx - desired + m.capacity) & mask
		if curDist < dist {
			return false
		}
		dist++
		idx = (idx + 1) & mask
	}
}

// Erase removes key, if present, using backward-shift deletion: entries
// following the erased slot are pulled back until an empty slot or an
// entry already at its ideal slot is reached.
func (m *Map) Erase(key value.Value) {
	if m.count == 0 {
		return
	}
	mask := m.capacity - 1
	idx := int(hashValue(key)) & mask

	for {
		if isEmptySlot(m.entries[idx]) {
			return
		}
		if keyEqual(m.entries[idx].key, key) {
			m.removeByIndex(idx)
			m.count--
			return
		}
		idx = (idx + 1) & mask
	}
}

func (m *Map) removeByIndex(idx int) {
	mask := m.capacity - 1
	for {
		m.entries[idx] = entry{}
		next := (idx + 1) & mask
		if isEmptySlot(m.entries[next]) {
			return
		}
		desired := int(hashValue(m.entries[next].key)) & mask
		if next == desired {
			return
		}
		m.entries[idx] = m.entries[next]
		idx = next
	}
}

func (m *Map) grow() {
	oldEntries := m.entries
	newCapacity := m.capacity * 2
	if newCapacity < 8 {
		newCapacity = 8
	}
	m.capacity = newCapacity
	m.entries = make([]entry, newCapacity)
	m.count = 0

	for _, e := range oldEntries {
		if isEmptySlot(e) {
			continue
		}
		m.Insert(e.key, e.value)
	}
}

// keyEqual compares two map keys. Interned strings (the only Object key
// this map ever sees) compare by pointer identity; Bool and Integer share
// one key space and compare by integer payload (they also hash alike);
// every other Value variant compares by tag and payload.
func keyEqual(a, b value.Value) bool {
	if a.IsInteger() && b.IsInteger() {
		return a.AsInteger() == b.AsInteger()
	}
	if a.Type != b.Type {
		return false
	}
	switch a.Type {
	case value.TypeBool, value.TypeInteger:
		return a.AsInteger() == b.AsInteger()
	case value.TypeDecimal:
		return a.AsDecimal() == b.AsDecimal()
	case value.TypeObject:
		if a.IsString() && b.IsString() {
			return a.AsString() == b.AsString()
		}
		return a.AsObject() == b.AsObject()
	case value.TypeNil:
		return true
	default:
		return false
	}
}

// hashValue hashes a map key per spec.md §4.6: FNV-1a over the key's
// bytes, reusing each variant's natural bit pattern (the ObjString's
// precomputed hash for strings, the raw int64/float64 bits otherwise).
func hashValue(key value.Value) uint32 {
	switch key.Type {
	case value.TypeObject:
		if s := key.AsString(); s != nil {
			return s.Hash()
		}
		return 0
	case value.TypeBool, value.TypeInteger:
		return hashInt64(key.AsInteger())
	case value.TypeDecimal:
		return hashFloat64(key.AsDecimal())
	default:
		return 0
	}
}

func hashInt64(i int64) uint32 {
	var h uint32 = 2166136261
	u := uint64(i)
	for shift := 0; shift < 64; shift += 8 {
		h ^= uint32(u >> shift & 0xFF)
		h *= 16777619
	}
	return h
}

func hashFloat64(d float64) uint32 {
	return hashInt64(int64(math.Float64bits(d)))
}
