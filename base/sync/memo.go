package sync

import "sync"

// Memo memoizes the result of an expensive computation per key.
//
// Unlike Map, the whole lookup-or-compute sequence runs under the memo lock:
// for a given memo, at most one computation runs at a time and a key is never
// computed twice, even when requested concurrently. Computations returning an
// error are not stored.
type Memo[K comparable, V any] struct {
	mu sync.Mutex
	m  map[K]V
}

// Do returns the value stored for a key, computing and storing it first if
// the key is absent.
func (mm *Memo[K, V]) Do(k K, compute func() (V, error)) (V, error) {
	mm.mu.Lock()
	defer mm.mu.Unlock()

	if v, ok := mm.m[k]; ok {
		return v, nil
	}
	v, err := compute()
	if err != nil {
		return v, err
	}
	if mm.m == nil {
		mm.m = make(map[K]V)
	}
	mm.m[k] = v
	return v, nil
}

// Load returns the value stored for a key, if any.
func (mm *Memo[K, V]) Load(k K) (V, bool) {
	mm.mu.Lock()
	defer mm.mu.Unlock()

	v, ok := mm.m[k]
	return v, ok
}

// Size returns the number of stored values.
func (mm *Memo[K, V]) Size() int {
	mm.mu.Lock()
	defer mm.mu.Unlock()

	return len(mm.m)
}
