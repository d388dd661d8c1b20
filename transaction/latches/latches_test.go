package latches

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAcquireLatch(t *testing.T) {
	l := NewLatches()

	// Acquiring a new latch is ok.
	wg := l.AcquireLatch([]byte("p1"))
	assert.Nil(t, wg)

	// Can only acquire once.
	wg = l.AcquireLatch([]byte("p1"))
	assert.NotNil(t, wg)

	// Different partitions do not contend.
	wg = l.AcquireLatch([]byte("p2"))
	assert.Nil(t, wg)

	// Release then acquire is ok.
	l.ReleaseLatch([]byte("p1"))
	wg = l.AcquireLatch([]byte("p1"))
	assert.Nil(t, wg)
}

func TestReleaseWakesWaiters(t *testing.T) {
	l := NewLatches()
	assert.Nil(t, l.AcquireLatch([]byte("p")))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		l.WaitForLatch([]byte("p"))
		l.ReleaseLatch([]byte("p"))
	}()

	l.ReleaseLatch([]byte("p"))
	wg.Wait()
}
