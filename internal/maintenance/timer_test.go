package maintenance

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestTaskFireSkipsOverlappingRuns(t *testing.T) {
	var calls int32
	release := make(chan struct{})
	task := &Task{
		Name: "slow",
		Run: func() {
			atomic.AddInt32(&calls, 1)
			<-release
		},
	}

	task.fire()
	task.fire() // should be dropped: the first run is still in flight

	time.Sleep(50 * time.Millisecond)
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("expected exactly one run while the task is in flight, got %d", got)
	}
	close(release)
}

func TestTaskFireAllowsSequentialRuns(t *testing.T) {
	var calls int32
	done := make(chan struct{}, 2)
	task := &Task{
		Name: "fast",
		Run: func() {
			atomic.AddInt32(&calls, 1)
			done <- struct{}{}
		},
	}

	task.fire()
	<-done
	task.fire()
	<-done

	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Fatalf("expected two sequential runs to both complete, got %d", got)
	}
}

func TestTimerTicksEveryTask(t *testing.T) {
	var calls int32
	task := &Task{Name: "t", Run: func() { atomic.AddInt32(&calls, 1) }}
	timer := NewTimer(task)
	timer.interval = 10 * time.Millisecond
	timer.Start()
	defer timer.Stop()

	time.Sleep(60 * time.Millisecond)
	if got := atomic.LoadInt32(&calls); got < 2 {
		t.Fatalf("expected the timer to have fired the task multiple times, got %d", got)
	}
}
