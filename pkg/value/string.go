package value

// ObjString is an immutable, interned heap string. Two interned strings
// with equal bytes are always the same *ObjString (see pkg/hashmap's
// intern pool), so string equality reduces to pointer equality.
type ObjString struct {
	chars string
	hash  uint32
}

// NewObjString builds an ObjString around chars, precomputing its FNV-1a
// hash. It does not intern; callers go through the VM's string pool
// (pkg/hashmap's StringPool.Intern) to get a canonical, deduplicated instance.
func NewObjString(chars string) *ObjString {
	return &ObjString{chars: chars, hash: FNV1a(chars)}
}

func (s *ObjString) objType() objType { return objString }

// String returns the string's bytes.
func (s *ObjString) String() string { return s.chars }

// Length returns the string's byte length.
func (s *ObjString) Length() int { return len(s.chars) }

// Hash returns the string's precomputed FNV-1a hash.
func (s *ObjString) Hash() uint32 { return s.hash }

// FNV1a computes the 32-bit FNV-1a hash of s, matching
// original_source/hashmap.c's hashString exactly (offset basis
// 2166136261, prime 16777619).
func FNV1a(s string) uint32 {
	var h uint32 = 2166136261
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= 16777619
	}
	return h
}
