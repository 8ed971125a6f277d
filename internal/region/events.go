// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package region

// Event names a lifecycle transition hooks can react to.
type Event string

// Lifecycle events.
const (
	EventCreated  Event = "created"
	EventDeleted  Event = "deleted"
	EventRented   Event = "rented"
	EventExtended Event = "extended"
	EventUnrented Event = "unrented"
	EventBought   Event = "bought"
	EventSold     Event = "sold"
	EventResell   Event = "resell"
)

// Events lists every lifecycle event.
var Events = []Event{
	EventCreated, EventDeleted,
	EventRented, EventExtended, EventUnrented,
	EventBought, EventSold, EventResell,
}

// String returns the string representation of the event.
func (e Event) String() string {
	return string(e)
}
