package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestParseScheduleTime(t *testing.T) {
	tests := []struct {
		input   string
		want    ScheduleTime
		wantErr bool
	}{
		{"06:00", ScheduleTime{6, 0}, false},
		{"23:59", ScheduleTime{23, 59}, false},
		{"6:30", ScheduleTime{6, 30}, false},
		{"24:00", ScheduleTime{}, true},
		{"12:60", ScheduleTime{}, true},
		{"noon", ScheduleTime{}, true},
		{"", ScheduleTime{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseScheduleTime(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseScheduleTime(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseScheduleTime(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestNew_Validation(t *testing.T) {
	provider := func(context.Context) ([]Job, error) { return nil, nil }

	tests := []struct {
		name   string
		config Config
	}{
		{"no times", Config{JobProvider: provider}},
		{"bad time", Config{ScheduleTimes: []string{"25:00"}, JobProvider: provider}},
		{"no provider", Config{ScheduleTimes: []string{"06:00"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.config); err == nil {
				t.Error("New() succeeded, want error")
			}
		})
	}
}

func newTestScheduler(t *testing.T, times ...string) *Scheduler {
	t.Helper()
	s, err := New(Config{
		ScheduleTimes: times,
		WorkerCount:   1,
		QueueSize:     10,
		JobProvider:   func(context.Context) ([]Job, error) { return nil, nil },
	})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	return s
}

func TestScheduler_ShouldRunOncePerSlot(t *testing.T) {
	s := newTestScheduler(t, "06:00", "18:30")
	day := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	if !s.shouldRun(day.Add(6 * time.Hour)) {
		t.Error("shouldRun(06:00) = false, want true")
	}
	if s.shouldRun(day.Add(6*time.Hour + 30*time.Second)) {
		t.Error("shouldRun fired twice in the same minute")
	}
	if s.shouldRun(day.Add(7 * time.Hour)) {
		t.Error("shouldRun(07:00) = true, want false")
	}
	if !s.shouldRun(day.Add(18*time.Hour + 30*time.Minute)) {
		t.Error("shouldRun(18:30) = false, want true")
	}
	if !s.shouldRun(day.AddDate(0, 0, 1).Add(6 * time.Hour)) {
		t.Error("shouldRun(next day 06:00) = false, want true")
	}
}

func TestScheduler_NextScheduledTime(t *testing.T) {
	s := newTestScheduler(t, "18:00", "06:00")
	loc := time.UTC

	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{"before first", time.Date(2026, 3, 1, 5, 0, 0, 0, loc), time.Date(2026, 3, 1, 6, 0, 0, 0, loc)},
		{"between", time.Date(2026, 3, 1, 12, 0, 0, 0, loc), time.Date(2026, 3, 1, 18, 0, 0, 0, loc)},
		{"after last", time.Date(2026, 3, 1, 19, 0, 0, 0, loc), time.Date(2026, 3, 2, 6, 0, 0, 0, loc)},
		{"exactly at slot", time.Date(2026, 3, 1, 6, 0, 0, 0, loc), time.Date(2026, 3, 1, 18, 0, 0, 0, loc)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s.now = func() time.Time { return tt.now }
			if got := s.NextScheduledTime(); !got.Equal(tt.want) {
				t.Errorf("NextScheduledTime() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestScheduler_RunOnStartup(t *testing.T) {
	var ran atomic.Int32
	done := make(chan struct{}, 2)

	s, err := New(Config{
		ScheduleTimes: []string{"03:00"},
		WorkerCount:   2,
		QueueSize:     10,
		RunOnStartup:  true,
		JobProvider: func(context.Context) ([]Job, error) {
			job := func(ctx context.Context) error {
				ran.Add(1)
				done <- struct{}{}
				return nil
			}
			return []Job{&MockJob{ExecuteFunc: job}, &MockJob{ExecuteFunc: job}}, nil
		},
	})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	s.Start()
	for range 2 {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("startup jobs did not run")
		}
	}
	s.Shutdown(time.Second)

	if got := ran.Load(); got != 2 {
		t.Errorf("ran %d jobs, want 2", got)
	}
}

func TestScheduler_ProviderErrorSubmitsNothing(t *testing.T) {
	s, _ := New(Config{
		ScheduleTimes: []string{"03:00"},
		WorkerCount:   1,
		QueueSize:     1,
		JobProvider: func(context.Context) ([]Job, error) {
			return nil, errors.New("database down")
		},
	})

	if got := s.runJobs(); got != 0 {
		t.Errorf("runJobs() = %d, want 0", got)
	}
	s.workerPool.Start()
	s.Shutdown(time.Second)
}
