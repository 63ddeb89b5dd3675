package worker

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPool(t *testing.T) {
	const jobs = 50
	p := NewPool[int](4, jobs)

	var running, maxRunning int32
	for i := 0; i < jobs; i++ {
		i := i
		p.Submit(fmt.Sprintf("job-%d", i), func() int {
			n := atomic.AddInt32(&running, 1)
			for {
				m := atomic.LoadInt32(&maxRunning)
				if n <= m || atomic.CompareAndSwapInt32(&maxRunning, m, n) {
					break
				}
			}
			atomic.AddInt32(&running, -1)
			return i * i
		})
	}
	p.Close()

	got := make(map[string]int, jobs)
	for res := range p.Results() {
		got[res.JobID] = res.Output
	}

	assert.Len(t, got, jobs)
	assert.Equal(t, 49*49, got["job-49"])
	assert.LessOrEqual(t, atomic.LoadInt32(&maxRunning), int32(4))
}

func TestPool_noJobs(t *testing.T) {
	p := NewPool[string](2, 0)
	p.Close()
	_, ok := <-p.Results()
	assert.False(t, ok)
}
