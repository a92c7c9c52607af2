package zwiftpower

import "sync"

// memo holds the result of the first successful load, failed loads are not remembered
// so a later access can try again.
type memo[T any] struct {
	mutex sync.Mutex
	done  bool
	value T
}

func (m *memo[T]) get(load func() (T, error)) (T, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.done {
		return m.value, nil
	}
	value, err := load()
	if err != nil {
		var zero T
		return zero, err
	}
	m.value = value
	m.done = true
	return value, nil
}
