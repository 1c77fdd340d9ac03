package engine

import (
	"github.com/VivekJangam126/server-survival-sub000/internal/economy"
	"github.com/VivekJangam126/server-survival-sub000/internal/traffic"
	"github.com/VivekJangam126/server-survival-sub000/pkg/models"
)

// NotificationKind identifies a one-shot event the presentation layer
// may react to (sound, visual flash). The simulation never blocks on
// a consumer; unread notifications are simply dropped on drain.
type NotificationKind string

const (
	NoteServicePlaced   NotificationKind = "service_placed"
	NoteServiceDeleted  NotificationKind = "service_deleted"
	NoteServiceUpgraded NotificationKind = "service_upgraded"
	NoteConnected       NotificationKind = "connected"
	NoteDisconnected    NotificationKind = "disconnected"
	NoteSpikeWarning    NotificationKind = "spike_warning"
	NoteSpikeStarted    NotificationKind = "spike_started"
	NoteSpikeEnded      NotificationKind = "spike_ended"
	NoteShiftStarted    NotificationKind = "shift_started"
	NoteShiftEnded      NotificationKind = "shift_ended"
	NoteEventStarted    NotificationKind = "event_started"
	NoteEventEnded      NotificationKind = "event_ended"
	NoteGameOver        NotificationKind = "game_over"
)

// Notification is one discrete event emitted during a tick
type Notification struct {
	Kind      NotificationKind        `json:"kind"`
	ServiceID string                  `json:"service_id,omitempty"`
	Event     models.EventKind        `json:"event,omitempty"`
	Report    *economy.FailureReport  `json:"report,omitempty"`
}

var signalNotes = map[traffic.SignalKind]NotificationKind{
	traffic.SignalSpikeWarning: NoteSpikeWarning,
	traffic.SignalSpikeStarted: NoteSpikeStarted,
	traffic.SignalSpikeEnded:   NoteSpikeEnded,
	traffic.SignalShiftStarted: NoteShiftStarted,
	traffic.SignalShiftEnded:   NoteShiftEnded,
	traffic.SignalEventStarted: NoteEventStarted,
	traffic.SignalEventEnded:   NoteEventEnded,
}

func (c *Clock) note(n Notification) {
	c.notes = append(c.notes, n)
}

func (c *Clock) noteSignals(signals []traffic.Signal) {
	for _, s := range signals {
		kind, ok := signalNotes[s.Kind]
		if !ok {
			continue
		}
		c.note(Notification{Kind: kind, ServiceID: s.ServiceID, Event: s.Event})
	}
}

// Drain returns the notifications accumulated since the last drain and
// clears the list. Meant to be called by the presentation layer after
// each tick.
func (c *Clock) Drain() []Notification {
	notes := c.notes
	c.notes = nil
	return notes
}
