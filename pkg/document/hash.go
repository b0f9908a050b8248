package document

// HashFunction computes a bucketing hash for a value. Collisions are
// allowed; callers always confirm candidates with Equal.
type HashFunction func(v interface{}) (uint32, error)

// DefaultHash hashes the canonical encoding of v with a 32-bit rolling hash.
func DefaultHash(v interface{}) (uint32, error) {
	s, err := Stringify(v)
	if err != nil {
		return 0, err
	}
	var h int32
	for i := len(s) - 1; i >= 0; i-- {
		h = ((h << 5) - h) ^ int32(s[i])
	}
	return uint32(h), nil
}

// HashCode hashes v with fn, or DefaultHash when fn is nil
func HashCode(v interface{}, fn HashFunction) (uint32, error) {
	if fn == nil {
		fn = DefaultHash
	}
	return fn(v)
}
