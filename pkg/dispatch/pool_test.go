package dispatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reversed(b []byte) []byte {
	out := make([]byte, len(b))
	for i, c := range b {
		out[len(b)-1-i] = c
	}
	return out
}

func TestPoolMapAppliesFunctionToEveryTask(t *testing.T) {
	pool := NewPool(4, reversed)
	defer pool.Close()

	tasks := make([]Task, 100)
	for i := range tasks {
		tasks[i] = Task{
			Window: []byte{byte(i), byte(i + 1), byte(i + 2)},
			Offset: int64(i * 16),
		}
	}

	// Results arrive in completion order, so collect them by offset. The
	// result multiset must equal the task multiset regardless of order.
	got := make(map[int64][]byte)
	for res := range pool.Map(tasks, 8) {
		got[res.Offset] = res.Data
	}

	require.Len(t, got, len(tasks))
	for _, task := range tasks {
		assert.Equal(t, reversed(task.Window), got[task.Offset])
	}
}

func TestPoolMapEmpty(t *testing.T) {
	pool := NewPool(2, reversed)
	defer pool.Close()

	results := pool.Map(nil, 0)
	_, open := <-results
	assert.False(t, open)
}

func TestPoolReusedAcrossBatches(t *testing.T) {
	pool := NewPool(0, reversed) // defaults
	defer pool.Close()

	for round := 0; round < 3; round++ {
		tasks := []Task{
			{Window: []byte{1, 2}, Offset: 0},
			{Window: []byte{3, 4}, Offset: 16},
			{Window: []byte{5, 6}, Offset: 32},
		}

		count := 0
		for res := range pool.Map(tasks, 2) {
			count++
			assert.Equal(t, 2, len(res.Data))
		}
		// Draining the channel is the batch barrier: every task has
		// completed once the loop exits.
		assert.Equal(t, len(tasks), count)
	}
}

func TestPoolResultCarriesTask(t *testing.T) {
	pool := NewPool(1, reversed)
	defer pool.Close()

	tasks := []Task{{Window: []byte{9, 8, 7}, Offset: 4096}}
	res := <-pool.Map(tasks, 1)

	assert.Equal(t, tasks[0].Window, res.Window)
	assert.Equal(t, int64(4096), res.Offset)
	assert.Equal(t, []byte{7, 8, 9}, res.Data)
}
