package desktop

import "github.com/google/uuid"

// Diff derives the notifications that turn the enumeration old into next:
// creations in next order, then renames, then destructions in old order.
func Diff(old, next []Desktop) []Event {
	before := make(map[uuid.UUID]Desktop, len(old))
	for _, d := range old {
		before[d.ID] = d
	}
	after := make(map[uuid.UUID]struct{}, len(next))

	var created, renamed, destroyed []Event
	for _, d := range next {
		after[d.ID] = struct{}{}
		prev, ok := before[d.ID]
		switch {
		case !ok:
			created = append(created, Event{Kind: DesktopCreated, Desktop: d})
		case prev.Name != d.Name:
			renamed = append(renamed, Event{Kind: DesktopRenamed, Desktop: d})
		}
	}
	for _, d := range old {
		if _, ok := after[d.ID]; !ok {
			destroyed = append(destroyed, Event{Kind: DesktopDestroyed, Desktop: d})
		}
	}

	events := make([]Event, 0, len(created)+len(renamed)+len(destroyed))
	events = append(events, created...)
	events = append(events, renamed...)
	return append(events, destroyed...)
}

// Changes is Diff extended with a switch notification when the current
// desktop moved. The switch follows creations and renames and precedes
// destructions, so its target always exists when it is applied. A current
// of uuid.Nil is never switched to.
func Changes(old []Desktop, oldCurrent uuid.UUID, next []Desktop, nextCurrent uuid.UUID) []Event {
	events := Diff(old, next)
	if nextCurrent == uuid.Nil || nextCurrent == oldCurrent {
		return events
	}

	var target Desktop
	found := false
	for _, d := range next {
		if d.ID == nextCurrent {
			target, found = d, true
			break
		}
	}
	if !found {
		return events
	}

	i := 0
	for i < len(events) && events[i].Kind != DesktopDestroyed {
		i++
	}
	events = append(events, Event{})
	copy(events[i+1:], events[i:])
	events[i] = Event{Kind: DesktopSwitched, Desktop: target}
	return events
}
