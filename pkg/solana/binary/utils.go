// Package binary contains offset based little-endian helpers for fixed
// layout account data.
//
// Every Put/Get function operates on the start of the provided slice and
// advances offset by the width of the value, so callers slice with the
// current offset: PutUint64(b[offset:], v, &offset).
package binary

import (
	"crypto/ed25519"
	"encoding/binary"
	"math"
	"math/big"
)

const Uint128Size = 16

func PutKey32(dst []byte, src []byte, offset *int) {
	copy(dst[:ed25519.PublicKeySize], src)
	*offset += ed25519.PublicKeySize
}

func PutBytes(dst []byte, src []byte, offset *int) {
	copy(dst, src)
	*offset += len(src)
}

func PutBool(dst []byte, v bool, offset *int) {
	if v {
		dst[0] = 1
	} else {
		dst[0] = 0
	}
	*offset += 1
}

func PutUint8(dst []byte, v uint8, offset *int) {
	dst[0] = v
	*offset += 1
}

func PutUint16(dst []byte, v uint16, offset *int) {
	binary.LittleEndian.PutUint16(dst, v)
	*offset += 2
}

func PutUint32(dst []byte, v uint32, offset *int) {
	binary.LittleEndian.PutUint32(dst, v)
	*offset += 4
}

func PutUint64(dst []byte, v uint64, offset *int) {
	binary.LittleEndian.PutUint64(dst, v)
	*offset += 8
}

func PutFloat32(dst []byte, v float32, offset *int) {
	PutUint32(dst, math.Float32bits(v), offset)
}

func PutFloat64(dst []byte, v float64, offset *int) {
	PutUint64(dst, math.Float64bits(v), offset)
}

// PutUint128 writes v as 16 little-endian bytes, two's complement when
// negative. v must already be range checked against the 128-bit bounds.
func PutUint128(dst []byte, v *big.Int, offset *int) {
	var le [Uint128Size]byte
	Uint128Bytes(v, le[:])
	copy(dst, le[:])
	*offset += Uint128Size
}

func GetKey32(src []byte, dst *ed25519.PublicKey, offset *int) {
	*dst = make([]byte, ed25519.PublicKeySize)
	copy(*dst, src)
	*offset += ed25519.PublicKeySize
}

func GetBytes(src []byte, dst *[]byte, n int, offset *int) {
	*dst = make([]byte, n)
	copy(*dst, src)
	*offset += n
}

func GetBool(src []byte, dst *bool, offset *int) {
	*dst = src[0] != 0
	*offset += 1
}

func GetUint8(src []byte, dst *uint8, offset *int) {
	*dst = src[0]
	*offset += 1
}

func GetUint16(src []byte, dst *uint16, offset *int) {
	*dst = binary.LittleEndian.Uint16(src)
	*offset += 2
}

func GetUint32(src []byte, dst *uint32, offset *int) {
	*dst = binary.LittleEndian.Uint32(src)
	*offset += 4
}

func GetUint64(src []byte, dst *uint64, offset *int) {
	*dst = binary.LittleEndian.Uint64(src)
	*offset += 8
}

func GetFloat32(src []byte, dst *float32, offset *int) {
	var bits uint32
	GetUint32(src, &bits, offset)
	*dst = math.Float32frombits(bits)
}

func GetFloat64(src []byte, dst *float64, offset *int) {
	var bits uint64
	GetUint64(src, &bits, offset)
	*dst = math.Float64frombits(bits)
}

func GetUint128(src []byte, dst **big.Int, signed bool, offset *int) {
	*dst = Uint128FromBytes(src[:Uint128Size], signed)
	*offset += Uint128Size
}

var (
	two128 = new(big.Int).Lsh(big.NewInt(1), 128)

	MaxUint128 = new(big.Int).Sub(two128, big.NewInt(1))
	MaxInt128  = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 127), big.NewInt(1))
	MinInt128  = new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), 127))
)

// Uint128FromBytes interprets 16 little-endian bytes as an unsigned or two's
// complement signed integer.
func Uint128FromBytes(le []byte, signed bool) *big.Int {
	be := make([]byte, len(le))
	for i := range le {
		be[len(le)-1-i] = le[i]
	}

	v := new(big.Int).SetBytes(be)
	if signed && len(be) > 0 && be[0]&0x80 != 0 {
		v.Sub(v, two128)
	}
	return v
}

// Uint128Bytes writes v into dst as 16 little-endian bytes.
func Uint128Bytes(v *big.Int, dst []byte) {
	n := new(big.Int).Set(v)
	if n.Sign() < 0 {
		n.Add(n, two128)
	}

	be := n.FillBytes(make([]byte, Uint128Size))
	for i := range be {
		dst[Uint128Size-1-i] = be[i]
	}
}
