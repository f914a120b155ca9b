package sync

import "testing"

func TestMutexAliases(t *testing.T) {
	var mu RWMutex
	mu.Lock()
	mu.Unlock()
	mu.RLock()
	mu.RUnlock()

	var once Once
	n := 0
	for i := 0; i < 3; i++ {
		once.Do(func() { n++ })
	}
	if n != 1 {
		t.Errorf("once ran %d times, want 1", n)
	}

	var wg WaitGroup
	var m Mutex
	total := 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Lock()
			total++
			m.Unlock()
		}()
	}
	wg.Wait()
	if total != 10 {
		t.Errorf("total = %d, want 10", total)
	}
}
