package nudge

import "context"

type mockNotifier struct {
	sent []Nudge
	err  error
}

func (m *mockNotifier) SendNudge(ctx context.Context, n Nudge) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, n)
	return nil
}
