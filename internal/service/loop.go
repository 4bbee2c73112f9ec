package service

import (
	"context"
	"time"

	"github.com/netconfd/netconfd/internal/log"
	"github.com/netconfd/netconfd/internal/platform"
)

// eventBuffer is the capacity of the kernel event channel. Platform
// handlers must not block, so a full buffer drops the event and relies
// on the periodic resync to catch up.
const eventBuffer = 256

// Run subscribes to platform change events and reconciles until the
// context is cancelled. It performs an initial full pass, then serves
// events one at a time; a resync ticker (when configured) repeats the
// full pass to repair anything the event path missed.
func (r *Reconciler) Run(ctx context.Context) error {
	events := make(chan platform.Event, eventBuffer)
	token := r.platform.Subscribe(func(e platform.Event) {
		select {
		case events <- e:
		default:
			log.Warnf("event buffer full, dropping %T (resync will repair)", e)
		}
	})
	defer r.platform.Unsubscribe(token)

	var resync <-chan time.Time
	if interval := r.cfg.General.ResyncIntervalSeconds; interval != nil && *interval > 0 {
		ticker := time.NewTicker(time.Duration(*interval) * time.Second)
		defer ticker.Stop()
		resync = ticker.C
	}

	r.ReconcileAll()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case e := <-events:
			if name := r.eventTarget(e); name != "" {
				r.Reconcile(name)
			}
		case <-resync:
			log.Debugf("periodic resync")
			r.ReconcileAll()
		}
	}
}

// eventTarget maps a platform event to the managed interface it
// concerns, or "" when the event is for an interface we do not manage.
func (r *Reconciler) eventTarget(e platform.Event) string {
	var ifindex int
	switch ev := e.(type) {
	case platform.LinkEvent:
		// Link events carry the name directly; this is also the only
		// way to notice a managed link appearing.
		r.mu.Lock()
		_, ok := r.managed[ev.Link.Name]
		r.mu.Unlock()
		if ok {
			return ev.Link.Name
		}
		return ""
	case platform.IP4AddressEvent:
		ifindex = ev.Address.Ifindex
	case platform.IP6AddressEvent:
		ifindex = ev.Address.Ifindex
	case platform.IP4RouteEvent:
		ifindex = ev.Route.Ifindex
	case platform.IP6RouteEvent:
		ifindex = ev.Route.Ifindex
	default:
		return ""
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for name, m := range r.managed {
		if m.ifindex != 0 && m.ifindex == ifindex {
			return name
		}
	}
	return ""
}
