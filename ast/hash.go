package ast

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// Function and variable identities are 64 bit xxhash digests. The first
// namespace segment is never part of the digest (it is the import alias,
// resolved at run time) but the number of segments is, so `m::f` and `f`
// differ while `m::f` matches `f` as indexed at the root of any module.

func writeLen(d *xxhash.Digest, n int) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(n)) //nolint:gosec // lengths are never negative.
	_, _ = d.Write(buf[:])
}

func writeStr(d *xxhash.Digest, s string) {
	_, _ = d.WriteString(s)
	_, _ = d.Write([]byte{0})
}

func qualified(d *xxhash.Digest, modules []string) {
	for i, m := range modules {
		if i == 0 {
			continue
		}
		writeStr(d, m)
	}
	writeLen(d, len(modules))
}

// QualifiedVarHash is the identity of variable name inside the module path.
func QualifiedVarHash(modules []string, name string) uint64 {
	d := xxhash.New()
	qualified(d, modules)
	writeStr(d, name)
	return d.Sum64()
}

// QualifiedFnHash is the script hash (name and arity) of a function inside the module path.
func QualifiedFnHash(modules []string, name string, nargs int) uint64 {
	d := xxhash.New()
	qualified(d, modules)
	writeStr(d, name)
	writeLen(d, nargs)
	return d.Sum64()
}

// FnHash is the unqualified script hash of a function.
func FnHash(name string, nargs int) uint64 {
	return QualifiedFnHash(nil, name, nargs)
}

// ParamsHash fingerprints an ordered list of argument type identities.
func ParamsHash(typeIDs []string) uint64 {
	d := xxhash.New()
	for _, t := range typeIDs {
		writeStr(d, t)
	}
	writeLen(d, len(typeIDs))
	return d.Sum64()
}

// CombineHashes turns a script hash and a params hash into a native hash.
func CombineHashes(a, b uint64) uint64 {
	return a ^ b
}
