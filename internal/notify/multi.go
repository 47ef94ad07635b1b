package notify

import "github.com/robalobadob/wordlecup/apps/go-server/internal/room"

// Multi forwards every event to each notifier in order.
type Multi []room.Notifier

func (m Multi) Notify(code string, ev room.Event) {
	for _, n := range m {
		if n != nil {
			n.Notify(code, ev)
		}
	}
}
