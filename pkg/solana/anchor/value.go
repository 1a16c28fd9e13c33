package anchor

// The dynamic value model produced by decoding and accepted by encoding:
//
//	bool                     bool
//	u8..u64, i8..i64         uint8..uint64, int8..int64 (encode accepts any Go integer)
//	f32, f64                 float32, float64
//	u128, i128               *big.Int
//	u256, i256               [32]byte, little-endian
//	pubkey                   ed25519.PublicKey
//	bytes, Vec<u8>, [u8; N]  []byte
//	string                   string
//	Option<T>                nil for None, the value of T otherwise
//	Vec<T>, [T; N]           []interface{}
//	named struct             Fields
//	tuple struct             Tuple
//	enum                     Variant
//
// Nested options collapse: Some(None) decodes to nil and nil always encodes
// as the outermost None.

// Fields holds the values of a struct with named fields.
type Fields map[string]interface{}

// Tuple holds the values of a struct or variant with positional fields.
type Tuple []interface{}

// Variant is an enum value. Value is nil for unit variants, Fields or Tuple
// otherwise.
type Variant struct {
	Name  string
	Value interface{}
}
