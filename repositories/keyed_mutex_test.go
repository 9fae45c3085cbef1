package repositories

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestKeyedMutex_Serializes_Same_Key(t *testing.T) {
	req := require.New(t)
	locks := newKeyedMutex()
	id := uuid.New()

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.lock(id)
			defer unlock()
			counter++
		}()
	}
	wg.Wait()

	req.Equal(64, counter)

	// All holders released: the entry map is drained
	locks.mu.Lock()
	defer locks.mu.Unlock()
	req.Empty(locks.locks)
}

func TestKeyedMutex_Different_Keys_Do_Not_Contend(t *testing.T) {
	req := require.New(t)
	locks := newKeyedMutex()

	first := locks.lock(uuid.New())
	// A second key can be acquired while the first is held
	second := locks.lock(uuid.New())

	second()
	first()
	req.Empty(locks.locks)
}
