//go:build !integration

package sched_test

import (
	"context"
	"fmt"
	"math"
	"testing"
	"time"

	"telegram-proxy-subscription/internal/domain"
	"telegram-proxy-subscription/internal/domain/model"
	"telegram-proxy-subscription/internal/domain/ports/adapter"
	"telegram-proxy-subscription/internal/infra/sched"
)

func activeSub(t *testing.T, userID int64, serverID, email string, trafficGB float64) *model.Subscription {
	t.Helper()
	sub, err := model.NewSubscription(userID, "prod", "test-sub", trafficGB, time.Hour)
	if err != nil {
		t.Fatalf("NewSubscription: %v", err)
	}
	sub.Servers[serverID] = model.ServerEntry{RemoteEmail: email}
	return sub
}

func TestMeteringWorker_AttributesAndResets(t *testing.T) {
	ctx := context.Background()
	subs := newMockSubRepo()
	servers := newMemServerRepo(testServer("s1"))
	panel := newMockPanel()
	notify := &mockNotifyUC{}

	sub := activeSub(t, 42, "s1", "alice@mail", 100)
	_ = subs.Save(ctx, nil, sub)

	gb := int64(1 << 30)
	panel.ListFn = func(_ context.Context, _ *model.Server) ([]adapter.ClientCounter, error) {
		return []adapter.ClientCounter{{Email: "alice@mail", Up: gb, Down: gb}}, nil
	}

	w := sched.NewMeteringWorker(time.Second, subs, servers, panel, notify, newTestLogger())
	if err := w.RunOnce(ctx); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}

	if math.Abs(sub.Usage-2) > 1e-9 {
		t.Fatalf("usage = %v, want 2 GB", sub.Usage)
	}
	if entry := sub.Servers["s1"]; math.Abs(entry.Usage-2) > 1e-9 {
		t.Fatalf("server usage = %v, want 2 GB", entry.Usage)
	}
	if len(panel.resets) != 1 || panel.resets[0] != "s1" {
		t.Fatalf("resets = %v, want [s1]", panel.resets)
	}
	if len(notify.sent) != 0 {
		t.Fatalf("unexpected notifications: %+v", notify.sent)
	}
}

func TestMeteringWorker_ListFailureSkipsReset(t *testing.T) {
	ctx := context.Background()
	subs := newMockSubRepo()
	servers := newMemServerRepo(testServer("s1"))
	panel := newMockPanel()
	panel.ListFn = func(_ context.Context, _ *model.Server) ([]adapter.ClientCounter, error) {
		return nil, fmt.Errorf("%w: timeout", domain.ErrPanelUnreachable)
	}

	w := sched.NewMeteringWorker(time.Second, subs, servers, panel, &mockNotifyUC{}, newTestLogger())
	if err := w.RunOnce(ctx); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if len(panel.resets) != 0 {
		t.Fatalf("counters must not be reset when the read failed, resets = %v", panel.resets)
	}
}

// The 90% warning must fire on the crossing tick and never again, even though
// later ticks keep the subscription above the threshold.
func TestMeteringWorker_QuotaWarningFiresOnce(t *testing.T) {
	ctx := context.Background()
	subs := newMockSubRepo()
	servers := newMemServerRepo(testServer("s1"))
	panel := newMockPanel()
	notify := &mockNotifyUC{}

	sub := activeSub(t, 42, "s1", "alice@mail", 10)
	sub.Usage = 8.5
	_ = subs.Save(ctx, nil, sub)

	perTick := float64(1<<30) * 0.7
	counter := int64(perTick) // 0.7 GB per tick
	panel.ListFn = func(_ context.Context, _ *model.Server) ([]adapter.ClientCounter, error) {
		return []adapter.ClientCounter{{Email: "alice@mail", Up: counter, Down: 0}}, nil
	}

	w := sched.NewMeteringWorker(time.Second, subs, servers, panel, notify, newTestLogger())

	// tick 1: 8.5 -> 9.2, crosses 9.0
	if err := w.RunOnce(ctx); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if len(notify.sent) != 1 {
		t.Fatalf("warnings after crossing = %d, want 1", len(notify.sent))
	}
	if notify.sent[0].UserID != 42 {
		t.Fatalf("warning went to user %d, want 42", notify.sent[0].UserID)
	}

	// tick 2: still above the threshold, no second warning
	if err := w.RunOnce(ctx); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if len(notify.sent) != 1 {
		t.Fatalf("warnings after second tick = %d, want 1", len(notify.sent))
	}
}

func TestMeteringWorker_UnmatchedCounterIgnored(t *testing.T) {
	ctx := context.Background()
	subs := newMockSubRepo()
	servers := newMemServerRepo(testServer("s1"))
	panel := newMockPanel()
	panel.ListFn = func(_ context.Context, _ *model.Server) ([]adapter.ClientCounter, error) {
		return []adapter.ClientCounter{{Email: "stranger@mail", Up: 1 << 30, Down: 0}}, nil
	}

	w := sched.NewMeteringWorker(time.Second, subs, servers, panel, &mockNotifyUC{}, newTestLogger())
	if err := w.RunOnce(ctx); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	// unmatched counters do not block the reset
	if len(panel.resets) != 1 {
		t.Fatalf("resets = %v, want one", panel.resets)
	}
}
