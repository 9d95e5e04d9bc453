// Package resend delivers nudges by email through the Resend API.
package resend

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"github.com/brk3/habitkit/internal/nudge"
	"github.com/brk3/habitkit/pkg/calendar"
	"github.com/resend/resend-go/v2"
)

type emailSender interface {
	Send(params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

type ResendNotifier struct {
	From  string
	Email string

	emails emailSender
}

func New(apiKey, from, email string) *ResendNotifier {
	return &ResendNotifier{
		From:   from,
		Email:  email,
		emails: resend.NewClient(apiKey).Emails,
	}
}

var emailTemplate = template.Must(template.New("email").Funcs(template.FuncMap{
	"time": func(s *string) string {
		if s == nil {
			return ""
		}
		out, err := calendar.FormatTime(*s)
		if err != nil {
			return *s
		}
		return out
	},
}).Parse(`
{{if .Reminders}}
<p>Time for:</p>
<ul>
{{range .Reminders}}
  <li>{{.Name}}{{with time .ReminderTime}} ({{.}}){{end}}</li>
{{end}}
</ul>
{{end}}
{{if .AtRisk}}
<p>The following habit streaks are expiring within the next {{.HoursLeft}} hours:</p>
<ul>
{{range .AtRisk}}
  <li>{{.Habit.Name}}: {{.Streak}} day streak</li>
{{end}}
</ul>
{{end}}
`))

func subject(n nudge.Nudge) string {
	switch {
	case len(n.AtRisk) > 0 && len(n.Reminders) == 0:
		return "Streaks are expiring soon"
	case len(n.Reminders) == 1:
		return "Reminder: " + n.Reminders[0].Name
	default:
		return fmt.Sprintf("%d habits need you", len(n.Reminders)+len(n.AtRisk))
	}
}

func (r *ResendNotifier) SendNudge(_ context.Context, n nudge.Nudge) error {
	var buf bytes.Buffer
	if err := emailTemplate.Execute(&buf, n); err != nil {
		return err
	}

	_, err := r.emails.Send(&resend.SendEmailRequest{
		From:    r.From,
		To:      []string{r.Email},
		Subject: subject(n),
		Html:    buf.String(),
	})
	return err
}
