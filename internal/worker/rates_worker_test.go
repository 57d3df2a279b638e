package worker

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"nosam/internal/amqp"
	"nosam/internal/log"
)

type countingRefresher struct {
	calls atomic.Int32
	stale bool
	err   error
}

func (r *countingRefresher) RefreshIfStale(context.Context) (bool, error) {
	r.calls.Add(1)
	return r.stale, r.err
}

func TestStartupCheck(t *testing.T) {
	tests := []struct {
		name string
		ref  *countingRefresher
		want bool
	}{
		{"stale rates refreshed", &countingRefresher{stale: true}, true},
		{"fresh rates kept", &countingRefresher{}, false},
		{"source failure", &countingRefresher{stale: true, err: errors.New("boom")}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NewRatesWorker(tt.ref, time.Hour, nil)
			if got := w.StartupCheck(context.Background()); got != tt.want {
				t.Errorf("StartupCheck() = %v, want %v", got, tt.want)
			}
			if n := tt.ref.calls.Load(); n != 1 {
				t.Errorf("refresher called %d times, want 1", n)
			}
		})
	}
}

func TestRunTicksUntilCancelled(t *testing.T) {
	ref := &countingRefresher{}
	w := NewRatesWorker(ref, 5*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	deadline := time.After(2 * time.Second)
	for ref.calls.Load() < 3 {
		select {
		case <-deadline:
			t.Fatalf("only %d refresh checks before deadline", ref.calls.Load())
		case <-time.After(time.Millisecond):
		}
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() = %v, want nil", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}

func TestNewRatesWorkerDefaultsInterval(t *testing.T) {
	w := NewRatesWorker(&countingRefresher{}, 0, nil)
	if w.interval != time.Hour {
		t.Errorf("interval = %v, want 1h", w.interval)
	}
}

func TestEventLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(log.Config{Handler: slog.NewJSONHandler(&buf, nil)})

	handle := EventLogger(logger)
	err := handle(amqp.ObjectEvent{Action: "create", ObjectType: "subscription", ObjectID: "abc"})
	if err != nil {
		t.Fatalf("handler returned %v", err)
	}
	out := buf.String()
	for _, want := range []string{`"object_id":"abc"`, `"object_type":"subscription"`, `"operation":"create"`} {
		if !strings.Contains(out, want) {
			t.Errorf("log output %q missing %s", out, want)
		}
	}
}
