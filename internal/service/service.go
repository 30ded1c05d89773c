package service

import (
	"time"

	"github.com/celerhost/panel/internal/provision"
	"github.com/google/uuid"
)

// JobScheduler defers provisioning transitions. *provision.Queue satisfies it.
type JobScheduler interface {
	Schedule(serverID uuid.UUID, delay time.Duration, fn provision.Task) error
	Cancel(serverID uuid.UUID) bool
	Pending(serverID uuid.UUID) bool
}

// Notifier pushes live updates to a user and to connected admins.
// *infra.WSHub satisfies it.
type Notifier interface {
	Notify(ownerID uuid.UUID, event string, data interface{})
}

type nopNotifier struct{}

func (nopNotifier) Notify(uuid.UUID, string, interface{}) {}

// Live event names pushed over WebSocket.
const (
	EventServerStatus = "server.status"
	EventServerAction = "server.action"
	EventTicketUpdate = "ticket.updated"
)
