package events

import (
	"fmt"

	"github.com/coretrade/engine/internal/notify"
	"github.com/coretrade/engine/pkg/types"
)

// NotifySink posts a human-readable line to a notify.Notifier for every
// FILL the live path produces, mirroring the teacher's pattern of
// announcing executions over Telegram rather than requiring an operator
// to tail logs.
type NotifySink struct {
	notifier notify.Notifier
}

func NewNotifySink(notifier notify.Notifier) *NotifySink {
	return &NotifySink{notifier: notifier}
}

func (s *NotifySink) Record(e types.Event) {
	if e.Kind != types.EventFill || e.Fill == nil {
		return
	}
	f := e.Fill
	text := fmt.Sprintf("FILL %s %s %s @ %s (qty %s)", f.PortfolioID, f.Action, f.Ticker, f.Price.String(), f.Quantity.String())
	s.notifier.Send(text)
}
