package nudge

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/brk3/habitkit/pkg/habit"
)

func at(hour, min int) func() time.Time {
	return func() time.Time { return time.Date(2024, 3, 6, hour, min, 0, 0, time.UTC) }
}

func status(id string, atRisk bool) habit.DailyStatus {
	return habit.DailyStatus{Habit: habit.Habit{ID: id, Name: id}, Streak: 3, IsStreakAtRisk: atRisk}
}

func TestStreaksAtRisk(t *testing.T) {
	got := StreaksAtRisk([]habit.DailyStatus{status("guitar", true), status("coding", false)})
	if len(got) != 1 || got[0].Habit.ID != "guitar" {
		t.Fatalf("got %v, want [guitar]", got)
	}
}

func TestPoll_SendsRemindersAndRisk(t *testing.T) {
	q := &mockClient{
		reminders: map[string][]habit.Habit{"21:00": {{ID: "stretch", Name: "Stretch"}}},
		today:     []habit.DailyStatus{status("guitar", true)},
	}
	n := &mockNotifier{}
	r := &Runner{Querier: q, Notifier: n, Now: at(21, 0)}

	got, err := r.Poll(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(n.sent) != 1 {
		t.Fatalf("sent %d nudges, want 1", len(n.sent))
	}
	if len(got.Reminders) != 1 || len(got.AtRisk) != 1 {
		t.Fatalf("got %+v", got)
	}
	if got.HoursLeft != 2 {
		t.Fatalf("hours left %d, want 2", got.HoursLeft)
	}
	if q.reminderCalls[0] != "21:00" {
		t.Fatalf("queried %q", q.reminderCalls[0])
	}
}

func TestPoll_NothingToSay(t *testing.T) {
	q := &mockClient{today: []habit.DailyStatus{status("coding", false)}}
	n := &mockNotifier{}
	r := &Runner{Querier: q, Notifier: n, Now: at(9, 0)}

	got, err := r.Poll(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !got.Empty() || len(n.sent) != 0 {
		t.Fatalf("unexpected nudge %+v", n.sent)
	}
}

func TestPoll_WarnsOncePerDay(t *testing.T) {
	q := &mockClient{today: []habit.DailyStatus{status("guitar", true)}}
	n := &mockNotifier{}
	r := &Runner{Querier: q, Notifier: n, Now: at(20, 0)}

	for range 3 {
		if _, err := r.Poll(context.Background()); err != nil {
			t.Fatal(err)
		}
	}
	if len(n.sent) != 1 {
		t.Fatalf("sent %d nudges, want 1", len(n.sent))
	}

	r.Now = func() time.Time { return time.Date(2024, 3, 7, 20, 0, 0, 0, time.UTC) }
	if _, err := r.Poll(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(n.sent) != 2 {
		t.Fatalf("next day: sent %d nudges, want 2", len(n.sent))
	}
}

func TestPoll_RiskAfter(t *testing.T) {
	q := &mockClient{today: []habit.DailyStatus{status("guitar", true)}}
	n := &mockNotifier{}
	r := &Runner{Querier: q, Notifier: n, Now: at(12, 0), RiskAfter: "18:00"}

	if _, err := r.Poll(context.Background()); err != nil {
		t.Fatal(err)
	}
	if q.todayCalls != 0 || len(n.sent) != 0 {
		t.Fatalf("risk checked before 18:00")
	}

	r.Now = at(18, 0)
	if _, err := r.Poll(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(n.sent) != 1 {
		t.Fatalf("sent %d nudges, want 1", len(n.sent))
	}
}

func TestPoll_Errors(t *testing.T) {
	boom := errors.New("boom")
	r := &Runner{Querier: &mockClient{err: boom}, Notifier: &mockNotifier{}, Now: at(9, 0)}
	if _, err := r.Poll(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("got %v, want boom", err)
	}

	q := &mockClient{today: []habit.DailyStatus{status("guitar", true)}}
	n := &mockNotifier{err: boom}
	r = &Runner{Querier: q, Notifier: n, Now: at(20, 0)}
	if _, err := r.Poll(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("got %v, want boom", err)
	}
	// a failed send must not mark the streak as warned
	n.err = nil
	if _, err := r.Poll(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(n.sent) != 1 {
		t.Fatalf("sent %d nudges, want 1", len(n.sent))
	}
}

func TestWatch_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := &Runner{Querier: &mockClient{}, Notifier: &mockNotifier{}, Now: time.Now}
	if err := r.Watch(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v, want context.Canceled", err)
	}
}
