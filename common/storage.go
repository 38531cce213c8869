package common

import (
	"github.com/nspcc-dev/neo-go/pkg/interop/storage"
)

// GetInt returns integer stored under the key. Missing key is read as 0.
func GetInt(ctx storage.Context, key any) int {
	val := storage.Get(ctx, key)
	if val != nil {
		return val.(int)
	}

	return 0
}

// AddInt adds delta to the integer stored under the key and returns the
// new value.
func AddInt(ctx storage.Context, key any, delta int) int {
	val := GetInt(ctx, key) + delta
	storage.Put(ctx, key, val)

	return val
}
