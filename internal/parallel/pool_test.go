package parallel

import (
	"runtime"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewPoolWorkers(t *testing.T) {
	tests := []struct {
		name string
		n    int
		want int
	}{
		{"explicit", 3, 3},
		{"zero", 0, runtime.GOMAXPROCS(0)},
		{"negative", -2, runtime.GOMAXPROCS(0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPool(tt.n)
			defer p.Close()
			if got := p.Workers(); got != tt.want {
				t.Errorf("Workers() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestRunCompletesEveryJob(t *testing.T) {
	p := NewPool(4)
	defer p.Close()

	var count atomic.Int64
	jobs := make([]func(), 500)
	for i := range jobs {
		jobs[i] = func() { count.Add(int64(i)) }
	}
	p.Run(jobs)
	if got, want := count.Load(), int64(499*500/2); got != want {
		t.Errorf("sum = %d, want %d", got, want)
	}
}

func TestRunWritesDisjointSlices(t *testing.T) {
	p := NewPool(3)
	defer p.Close()

	out := make([]int, 64)
	var jobs []func()
	for i := 0; i < len(out); i += 8 {
		jobs = append(jobs, func() {
			for j := i; j < i+8; j++ {
				out[j] = j * j
			}
		})
	}
	p.Run(jobs)
	for i, v := range out {
		if v != i*i {
			t.Fatalf("out[%d] = %d, want %d", i, v, i*i)
		}
	}
}

func TestRunUnevenJobs(t *testing.T) {
	p := NewPool(2)
	defer p.Close()

	var done atomic.Int32
	jobs := []func(){
		func() { time.Sleep(20 * time.Millisecond); done.Add(1) },
		func() { done.Add(1) },
		func() { done.Add(1) },
		func() { done.Add(1) },
	}
	p.Run(jobs)
	if got := done.Load(); got != 4 {
		t.Errorf("finished = %d, want 4", got)
	}
}

func TestRunAfterClose(t *testing.T) {
	p := NewPool(2)
	p.Close()
	p.Close()

	ran := 0
	p.Run([]func(){func() { ran++ }, func() { ran++ }})
	if ran != 2 {
		t.Errorf("ran = %d after Close, want 2", ran)
	}
}

func TestRunEmpty(t *testing.T) {
	p := NewPool(1)
	defer p.Close()
	p.Run(nil)
}
