package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestCronScheduler_Register_InvalidSchedule(t *testing.T) {
	t.Parallel()

	s := NewCronScheduler(nil)
	err := s.Register("bad", "not a cron spec", func(ctx context.Context) error { return nil })
	if err == nil {
		t.Error("expected an error for an unparsable schedule")
	}
}

func TestCronScheduler_Register_DuplicateName(t *testing.T) {
	t.Parallel()

	s := NewCronScheduler(nil)
	task := func(ctx context.Context) error { return nil }

	if err := s.Register("sweep", "@hourly", task); err != nil {
		t.Fatalf("first register failed: %v", err)
	}
	if err := s.Register("sweep", "@daily", task); err == nil {
		t.Error("expected duplicate name to be rejected")
	}
}

func TestCronScheduler_Tasks(t *testing.T) {
	t.Parallel()

	s := NewCronScheduler(nil)
	task := func(ctx context.Context) error { return nil }

	_ = s.Register("sweep", "0 * * * *", task)
	_ = s.Register("digest", "0 8 * * *", task)

	tasks := s.Tasks()
	if len(tasks) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(tasks))
	}
	schedules := map[string]string{}
	for _, task := range tasks {
		schedules[task.Name] = task.Schedule
	}
	if schedules["sweep"] != "0 * * * *" {
		t.Errorf("sweep schedule = %q", schedules["sweep"])
	}
	if schedules["digest"] != "0 8 * * *" {
		t.Errorf("digest schedule = %q", schedules["digest"])
	}
}

func TestCronScheduler_StopTask(t *testing.T) {
	t.Parallel()

	s := NewCronScheduler(nil)
	_ = s.Register("sweep", "@hourly", func(ctx context.Context) error { return nil })

	if !s.StopTask("sweep") {
		t.Error("expected StopTask to report the task existed")
	}
	if s.StopTask("sweep") {
		t.Error("second StopTask should report no task")
	}
	if len(s.Tasks()) != 0 {
		t.Error("stopped task should leave the listing")
	}
}

func TestCronScheduler_FiresRegisteredTask(t *testing.T) {
	t.Parallel()

	s := NewCronScheduler(nil)
	var runs atomic.Int32
	_ = s.Register("tick", "@every 20ms", func(ctx context.Context) error {
		runs.Add(1)
		return nil
	})

	s.Start()
	defer s.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for runs.Load() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("task never fired")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestCronScheduler_PanicContained(t *testing.T) {
	t.Parallel()

	s := NewCronScheduler(nil)
	var after atomic.Bool
	_ = s.Register("panicky", "@every 20ms", func(ctx context.Context) error {
		panic("boom")
	})
	_ = s.Register("steady", "@every 20ms", func(ctx context.Context) error {
		after.Store(true)
		return nil
	})

	s.Start()
	defer s.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for !after.Load() {
		if time.Now().After(deadline) {
			t.Fatal("scheduler stopped firing after a panic")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestCronScheduler_StopIsSafeUnstarted(t *testing.T) {
	t.Parallel()

	s := NewCronScheduler(nil)
	s.Stop()
	s.Stop()
}
