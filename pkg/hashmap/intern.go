package hashmap

import "github.com/MicheleFiladelfia/filang/pkg/value"

// StringPool is the VM's string-intern table: a Map whose keys are
// *value.ObjString Values and whose values are always Nil (the key set
// is the data). Interning guarantees that any two strings with equal
// bytes are the same *value.ObjString, so string equality elsewhere in
// the VM reduces to pointer comparison.
type StringPool struct {
	m Map
}

// Intern returns the canonical *value.ObjString for chars, creating and
// inserting one if this is the first time these bytes have been seen.
//
// Unlike a plain Map.Get, this performs a specialized probe: the pool
// doesn't yet have a pointer to compare against for an un-interned
// string, so candidates are matched by length, precomputed hash, and
// byte content (mirroring original_source/hashmap.c's getStringEntry).
func (p *StringPool) Intern(chars string) *value.ObjString {
	if existing := p.find(chars); existing != nil {
		return existing
	}
	s := value.NewObjString(chars)
	p.m.Insert(value.Obj(s), value.Nil)
	return s
}

func (p *StringPool) find(chars string) *value.ObjString {
	if p.m.count == 0 {
		return nil
	}
	hash := value.FNV1a(chars)
	mask := p.m.capacity - 1
	idx := int(hash) & mask
	for {
		if isEmptySlot(p.m.entries[idx]) {
			return nil
		}
		candidate := p.m.entries[idx].key.AsString()
		if candidate.Length() == len(chars) && candidate.Hash() == hash && candidate.String() == chars {
			return candidate
		}
		idx = (idx + 1) & mask
	}
}

// Len returns the number of interned strings.
func (p *StringPool) Len() int { return p.m.Len() }
