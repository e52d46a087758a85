package cache

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestGetOrComputeCallsOnce(t *testing.T) {
	c := New(time.Minute, false)

	var calls int32
	compute := func() (interface{}, error) {
		atomic.AddInt32(&calls, 1)
		return "value", nil
	}

	for i := 0; i < 5; i++ {
		v, err := c.GetOrCompute("k", compute)
		if err != nil {
			t.Fatalf("GetOrCompute: %v", err)
		}
		if v != "value" {
			t.Errorf("v = %v, want value", v)
		}
	}
	if calls != 1 {
		t.Errorf("compute called %d times, want 1", calls)
	}
}

func TestGetOrComputeSingleFlightConcurrent(t *testing.T) {
	c := New(time.Minute, false)

	var calls int32
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			c.GetOrCompute("same-key", func() (interface{}, error) {
				atomic.AddInt32(&calls, 1)
				time.Sleep(10 * time.Millisecond)
				return 42, nil
			})
		}()
	}
	close(start)
	wg.Wait()

	if calls != 1 {
		t.Errorf("compute called %d times concurrently, want 1", calls)
	}
}

func TestGetOrComputeExpiry(t *testing.T) {
	c := New(10*time.Millisecond, false)

	var calls int32
	compute := func() (interface{}, error) {
		atomic.AddInt32(&calls, 1)
		return "v", nil
	}
	c.GetOrCompute("k", compute)
	time.Sleep(20 * time.Millisecond)
	c.GetOrCompute("k", compute)

	if calls != 2 {
		t.Errorf("compute called %d times, want 2 after expiry", calls)
	}
}

func TestFlush(t *testing.T) {
	c := New(time.Minute, true)
	c.GetOrCompute("k", func() (interface{}, error) { return 1, nil })
	if c.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", c.Len())
	}
	c.Flush()
	if c.Len() != 0 {
		t.Errorf("Len() after Flush = %d, want 0", c.Len())
	}
}

func TestKeyDeterministic(t *testing.T) {
	k1 := Key([]byte("abc"), "openai:gpt4", "v1")
	k2 := Key([]byte("abc"), "openai:gpt4", "v1")
	if k1 != k2 {
		t.Error("Key is not deterministic for identical inputs")
	}
	k3 := Key([]byte("abc"), "openai:gpt4", "v2")
	if k1 == k3 {
		t.Error("Key collided across different prompt revisions")
	}
}
