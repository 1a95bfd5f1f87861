package lock

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKey(t *testing.T) {
	assert.Equal(t, "webapps/bankapp", Key("webapps", "bankapp"))
}

func TestAcquireMutualExclusion(t *testing.T) {
	reg := NewRegistry()
	key := Key("webapps", "bankapp")

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release := reg.Acquire(key)
			defer release()
			counter++
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, counter)
}

func TestTryAcquireContention(t *testing.T) {
	reg := NewRegistry()
	key := Key("webapps", "bankapp")

	release, ok := reg.TryAcquire(key)
	assert.True(t, ok)

	// Held: a second attempt must fail instead of blocking.
	_, ok = reg.TryAcquire(key)
	assert.False(t, ok)

	release()

	release2, ok := reg.TryAcquire(key)
	assert.True(t, ok)
	release2()
}

func TestIndependentKeys(t *testing.T) {
	reg := NewRegistry()

	releaseA, ok := reg.TryAcquire(Key("webapps", "bankapp"))
	assert.True(t, ok)
	defer releaseA()

	// A different service is a different lock.
	releaseB, ok := reg.TryAcquire(Key("webapps", "reports"))
	assert.True(t, ok)
	defer releaseB()
}
