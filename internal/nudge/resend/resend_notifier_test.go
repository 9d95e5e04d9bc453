package resend

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/brk3/habitkit/internal/nudge"
	"github.com/brk3/habitkit/pkg/habit"
	"github.com/resend/resend-go/v2"
)

type fakeSender struct {
	got *resend.SendEmailRequest
	err error
}

func (f *fakeSender) Send(params *resend.SendEmailRequest) (*resend.SendEmailResponse, error) {
	f.got = params
	return &resend.SendEmailResponse{Id: "1"}, f.err
}

func TestSendNudge(t *testing.T) {
	nine := "09:00"
	f := &fakeSender{}
	n := &ResendNotifier{From: "habits@example.com", Email: "me@example.com", emails: f}

	err := n.SendNudge(context.Background(), nudge.Nudge{
		Reminders: []habit.Habit{{Name: "Stretch", ReminderTime: &nine}},
		AtRisk:    []habit.DailyStatus{{Habit: habit.Habit{Name: "Guitar"}, Streak: 4, IsStreakAtRisk: true}},
		HoursLeft: 3,
	})
	if err != nil {
		t.Fatal(err)
	}
	if f.got.From != "habits@example.com" || len(f.got.To) != 1 || f.got.To[0] != "me@example.com" {
		t.Fatalf("got %+v", f.got)
	}
	if f.got.Subject != "2 habits need you" {
		t.Fatalf("subject %q", f.got.Subject)
	}
	for _, want := range []string{"Stretch (9:00 AM)", "Guitar: 4 day streak", "next 3 hours"} {
		if !strings.Contains(f.got.Html, want) {
			t.Errorf("body missing %q:\n%s", want, f.got.Html)
		}
	}
}

func TestSendNudge_EscapesNames(t *testing.T) {
	f := &fakeSender{}
	n := &ResendNotifier{emails: f}
	if err := n.SendNudge(context.Background(), nudge.Nudge{Reminders: []habit.Habit{{Name: "<b>x</b>"}}}); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(f.got.Html, "<b>x</b>") {
		t.Fatalf("name not escaped: %s", f.got.Html)
	}
	if f.got.Subject != "Reminder: <b>x</b>" {
		t.Fatalf("subject %q", f.got.Subject)
	}
}

func TestSendNudge_Error(t *testing.T) {
	boom := errors.New("boom")
	n := &ResendNotifier{emails: &fakeSender{err: boom}}
	err := n.SendNudge(context.Background(), nudge.Nudge{AtRisk: []habit.DailyStatus{{Habit: habit.Habit{Name: "Guitar"}}}})
	if !errors.Is(err, boom) {
		t.Fatalf("got %v, want boom", err)
	}
}
