package sync_

import (
	"sync"
	"testing"

	assert_ "github.com/stretchr/testify/assert"
)

func TestEvent(t *testing.T) {
	assert := assert_.New(t)
	var e Event
	// Initial value should be unset
	assert.False(e.IsSet())
	// Waiting on the event should block
	select {
	case <-e.Wait():
		assert.Fail("<-e.Wait() should be blocking")
	default:
	}
	// Can we set the event?
	assert.True(e.Set())
	assert.True(e.IsSet())
	// Waiting on the event should succeed immediately
	select {
	case <-e.Wait():
	default:
		assert.Fail("<-e.Wait() should not block")
	}
	// Setting the event should be idempotent
	assert.False(e.Set())
	assert.True(e.IsSet())
	// Can we clear the event?
	assert.True(e.Clear())
	assert.False(e.IsSet())
	assert.False(e.Clear())
	// Waiting on the event should block again
	select {
	case <-e.Wait():
		assert.Fail("<-e.Wait() should be blocking")
	default:
	}
}

func TestEvent_WakesWaiters(t *testing.T) {
	var e Event
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-e.Wait()
		}()
	}
	e.Set()
	wg.Wait()
}
