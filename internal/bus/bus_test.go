package bus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEmitResolvesWaits(t *testing.T) {
	signal := New[string, int]()

	results := make(chan int, 2)
	for i := 0; i < 2; i++ {
		go func() {
			value, aborted := signal.Wait("topic")
			require.False(t, aborted)
			results <- value
		}()
	}

	// Give the waiters a moment to register.
	time.Sleep(50 * time.Millisecond)
	signal.Emit("topic", 42)

	for i := 0; i < 2; i++ {
		select {
		case value := <-results:
			require.Equal(t, 42, value)
		case <-time.After(time.Second):
			t.Fatal("wait did not resolve")
		}
	}
}

func TestEmitWithoutWaitersDrains(t *testing.T) {
	signal := New[string, int]()

	// Nothing is waiting, the message should just disappear.
	signal.Emit("topic", 42)

	done := make(chan struct{})
	go func() {
		signal.Wait("topic")
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("a wait resolved from a message emitted before it started")
	case <-time.After(200 * time.Millisecond):
	}
	signal.CleanUp("topic")
}

func TestCleanUpAbortsWaits(t *testing.T) {
	signal := New[string, string]()

	aborted := make(chan bool, 1)
	go func() {
		_, done := signal.Wait("topic")
		aborted <- done
	}()

	time.Sleep(50 * time.Millisecond)
	signal.CleanUp("topic")

	select {
	case done := <-aborted:
		require.True(t, done)
	case <-time.After(time.Second):
		t.Fatal("wait did not resolve")
	}
}

func TestTopicsAreIndependent(t *testing.T) {
	signal := New[string, int]()

	received := make(chan int, 1)
	go func() {
		value, _ := signal.Wait("a")
		received <- value
	}()

	time.Sleep(50 * time.Millisecond)
	signal.Emit("b", 1)

	select {
	case <-received:
		t.Fatal("a wait resolved from another topic")
	case <-time.After(200 * time.Millisecond):
	}

	signal.Emit("a", 2)
	require.Equal(t, 2, <-received)
}
