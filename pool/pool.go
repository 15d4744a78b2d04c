// Package pool provides reusable Get/Put object pools used to absorb
// allocation churn in hot paths (e.g. message.Message recycling).
package pool

// Pool is an interface that defines methods on a pool of reusable values.
type Pool interface {
	// Get returns a value from the pool, creating one if the pool is empty.
	Get() interface{}

	// Put returns a value back to the pool.
	Put(interface{})
}
