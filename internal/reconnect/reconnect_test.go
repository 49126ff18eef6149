package reconnect

import (
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/1ureka/roundlink/internal/task"
	"github.com/1ureka/roundlink/internal/transport"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		category     transport.DisconnectCategory
		wasConnected bool
		want         Action
	}{
		{transport.ServerFull, false, QueueWait},
		{transport.ServerFull, true, QueueWait},
		{transport.EventSyncError, true, Reconnect},
		{transport.EventSyncError, false, Teardown},
		{transport.Timeout, true, Reconnect},
		{transport.ServerCrashed, true, Reconnect},
		{transport.Kicked, true, Teardown},
		{transport.Banned, true, Teardown},
		{transport.Generic, true, Teardown},
		{transport.ServerShutdown, true, Teardown},
	}
	for _, tt := range tests {
		reason := transport.Reason(tt.category, "")
		if got := Classify(reason, tt.wasConnected); got != tt.want {
			t.Errorf("Classify(%s, %t) = %s, want %s", tt.category, tt.wasConnected, got, tt.want)
		}
	}
}

func TestUserMessageIncludesServerText(t *testing.T) {
	msg := UserMessage(transport.Reason(transport.Kicked, "spamming"))
	if !strings.Contains(msg, "kicked") || !strings.HasSuffix(msg, "spamming") {
		t.Errorf("UserMessage() = %q", msg)
	}
}

func TestQueueTaskRetriesUntilConnected(t *testing.T) {
	clock := clockwork.NewFakeClock()
	tasks := task.NewScheduler(clock)

	var retries int
	connected := false
	q := &QueueTask{
		Interval:  5 * time.Second,
		Connected: func() bool { return connected },
		Busy:      func() bool { return false },
		Retry:     func() { retries++ },
	}
	tasks.Start(task.QueueRetry, q, task.IfIdle)

	tasks.Step()
	if retries != 0 {
		t.Fatal("retried before the interval elapsed")
	}
	for i := 0; i < 3; i++ {
		clock.Advance(5 * time.Second)
		tasks.Step()
	}
	if retries != 3 {
		t.Fatalf("retries = %d, want 3", retries)
	}

	connected = true
	tasks.Step()
	if tasks.Running(task.QueueRetry) {
		t.Error("queue task still running after connecting")
	}
}

func TestQueueTaskUserCancel(t *testing.T) {
	clock := clockwork.NewFakeClock()
	tasks := task.NewScheduler(clock)

	cancel := make(chan struct{})
	var gaveUp bool
	tasks.Start(task.QueueRetry, &QueueTask{
		Interval:  time.Second,
		Connected: func() bool { return false },
		Busy:      func() bool { return true },
		Retry:     func() { t.Error("retried while an attempt was in flight") },
		Prompt:    func(<-chan struct{}) <-chan struct{} { return cancel },
		OnCancel:  func() { gaveUp = true },
	}, task.IfIdle)

	tasks.Step()
	clock.Advance(2 * time.Second)
	tasks.Step()

	close(cancel)
	tasks.Step()
	if !gaveUp || tasks.Running(task.QueueRetry) {
		t.Error("user cancel not honored")
	}
}

func TestQueueTaskDismissesPromptWhenConnected(t *testing.T) {
	clock := clockwork.NewFakeClock()
	tasks := task.NewScheduler(clock)

	var done <-chan struct{}
	prompts := 0
	connected := false
	tasks.Start(task.QueueRetry, &QueueTask{
		Interval:  time.Second,
		Connected: func() bool { return connected },
		Busy:      func() bool { return false },
		Retry:     func() {},
		Prompt: func(d <-chan struct{}) <-chan struct{} {
			prompts++
			done = d
			return make(chan struct{})
		},
	}, task.IfIdle)

	for i := 0; i < 3; i++ {
		clock.Advance(time.Second)
		tasks.Step()
	}
	if prompts != 1 {
		t.Fatalf("prompted %d times, want 1", prompts)
	}
	select {
	case <-done:
		t.Fatal("prompt dismissed while still queued")
	default:
	}

	connected = true
	tasks.Step()
	select {
	case <-done:
	default:
		t.Error("prompt left open after leaving the queue")
	}
}
