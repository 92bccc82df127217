// Package typeid derives stable identifiers for Go types.
//
// An [ID] is a content hash of a type's identity (package path and type string), so the same type yields the same [ID] in every process built from the same source.
// This makes it usable both as the tag on a type-erased ring buffer payload and as the type marker of a message on the wire.
package typeid

import (
	"encoding/binary"
	"golang.org/x/crypto/blake2b"
	"reflect"
	"strconv"
	"sync"
)

// ID identifies a type.
// The zero ID is reserved to mean "no type".
type ID uint64

func (id ID) String() string {
	return strconv.FormatUint(uint64(id), 16)
}

var cache sync.Map // reflect.Type -> ID

// Of returns the [ID] of T.
func Of[T any]() ID {
	return OfType(reflect.TypeFor[T]())
}

// OfValue returns the [ID] of the dynamic type of val, or zero for a nil interface.
func OfValue(val any) ID {
	if val == nil {
		return 0
	}
	return OfType(reflect.TypeOf(val))
}

// OfType returns the [ID] of the given [reflect.Type].
func OfType(t reflect.Type) ID {
	if t == nil {
		return 0
	}
	if id, ok := cache.Load(t); ok {
		return id.(ID)
	}
	sum := blake2b.Sum256([]byte(Name(t)))
	id := ID(binary.BigEndian.Uint64(sum[:8]))
	if id == 0 {
		id = 1
	}
	cache.Store(t, id)
	return id
}

// Name returns the identity string hashed by [OfType].
func Name(t reflect.Type) string {
	if t.PkgPath() != "" && t.Name() != "" {
		return t.PkgPath() + "." + t.Name()
	}
	return t.String()
}
