package pool

import "sync"

// NewDynamic is a dynamic-size pool. It is a wrapper around sync.Pool.
func NewDynamic(newFn func() interface{}) Pool {
	return &sync.Pool{New: newFn}
}
