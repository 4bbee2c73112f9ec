// Package service provides the reconcile control loop for netconfd.
//
// The service layer sits between commands (CLI controllers) and the
// configuration engine, pushing the desired per-interface state into
// the kernel and reacting to out-of-band kernel changes.
package service

import (
	"sync"
	"time"

	"github.com/netconfd/netconfd/internal/config"
	"github.com/netconfd/netconfd/internal/errors"
	"github.com/netconfd/netconfd/internal/ipconfig"
	"github.com/netconfd/netconfd/internal/log"
	"github.com/netconfd/netconfd/internal/platform"
	"github.com/netconfd/netconfd/internal/resolvconf"
)

// managed is the reconciler-private state of one configured interface.
// Aggregates are exclusively owned by the reconcile loop.
type managed struct {
	cfg      *config.InterfaceConfig
	setting4 *ipconfig.Setting
	setting6 *ipconfig.Setting

	ifindex    int
	applied4   *ipconfig.IP4Config
	applied6   *ipconfig.IP6Config
	gateway4   bool // default route installed by us
	gateway6   bool
	lastCommit time.Time
	lastError  error
}

// Reconciler pushes configured interface profiles into the kernel and
// keeps them there. It owns its Platform handle; callers inject either
// the Linux implementation or the fake one.
type Reconciler struct {
	platform platform.Platform
	cfg      *config.Config

	mu        sync.Mutex
	managed   map[string]*managed
	listeners []func(name string)
}

// NewReconciler builds a reconciler for every interface profile in cfg.
// Profile text is converted to settings up front so malformed profiles
// fail here, not mid-loop.
func NewReconciler(p platform.Platform, cfg *config.Config) (*Reconciler, error) {
	r := &Reconciler{
		platform: p,
		cfg:      cfg,
		managed:  make(map[string]*managed),
	}

	for _, iface := range cfg.Interfaces {
		s4, err := iface.IPv4.Setting()
		if err != nil {
			return nil, errors.NewConfigError("interface "+iface.Name+": invalid ipv4 profile", err)
		}
		s6, err := iface.IPv6.Setting()
		if err != nil {
			return nil, errors.NewConfigError("interface "+iface.Name+": invalid ipv6 profile", err)
		}
		r.managed[iface.Name] = &managed{cfg: iface, setting4: s4, setting6: s6}
	}

	return r, nil
}

// OnChange registers a listener invoked (from the reconcile loop) after
// a relevant change was committed for an interface.
func (r *Reconciler) OnChange(fn func(name string)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, fn)
}

// ReconcileAll runs one reconcile pass over every managed interface.
// Per-interface failures are recorded and logged, not fatal: a link may
// simply not exist yet.
func (r *Reconciler) ReconcileAll() {
	r.mu.Lock()
	names := make([]string, 0, len(r.managed))
	for name := range r.managed {
		names = append(names, name)
	}
	r.mu.Unlock()

	for _, name := range names {
		r.Reconcile(name)
	}
}

// Reconcile brings one managed interface in line with its profile.
func (r *Reconciler) Reconcile(name string) {
	r.mu.Lock()
	m, ok := r.managed[name]
	if !ok {
		r.mu.Unlock()
		return
	}

	// The aggregate state is owned by this loop; the lock is held
	// across the pass so Status readers never observe a half-applied
	// interface. Commit is a short synchronous sequence.
	relevant, err := r.reconcile(m)

	m.lastError = err
	if err == nil {
		m.lastCommit = time.Now()
	}
	listeners := r.listeners
	r.mu.Unlock()

	if err != nil {
		log.Errorf("reconcile %s: %v", name, err)
		return
	}
	if !relevant {
		return
	}
	for _, fn := range listeners {
		fn(name)
	}
}

// reconcile runs one pass for a single interface. The returned flag
// reports whether a consumer-relevant change landed in the applied
// state.
func (r *Reconciler) reconcile(m *managed) (bool, error) {
	p := r.platform

	ifindex := p.LinkGetIfindex(m.cfg.Name)
	if ifindex == 0 {
		log.Debugf("interface %s not present, waiting for it", m.cfg.Name)
		wasPresent := m.ifindex != 0
		m.ifindex = 0
		m.applied4 = nil
		m.applied6 = nil
		return wasPresent, nil
	}
	m.ifindex = ifindex

	if !p.LinkIsUp(ifindex) {
		if !p.LinkSetUp(ifindex) {
			return false, errors.NewSyncFailureError("failed to bring link up: "+p.LastErrorMessage(), nil)
		}
	}

	resolv, err := resolvconf.Read(r.cfg.General.ResolvConfPath)
	if err != nil {
		log.Debugf("resolv.conf unavailable: %v", err)
		resolv = nil
	}

	metric := r.cfg.General.DefaultRouteMetric

	var relevant bool
	if m.setting4 != nil {
		rel, err := r.reconcile4(m, ifindex, resolv, metric)
		if err != nil {
			return relevant, err
		}
		relevant = relevant || rel
	}
	if m.setting6 != nil {
		rel, err := r.reconcile6(m, ifindex, resolv, metric)
		if err != nil {
			return relevant, err
		}
		relevant = relevant || rel
	}
	return relevant, nil
}

// reconcile4 builds the desired IPv4 aggregate for the interface per
// its method, folds it into the applied aggregate and commits. The
// commit runs unconditionally: syncs compare against kernel state, so
// it is a cheap no-op when nothing drifted, and it is the only way to
// repair kernel changes the aggregate never sees.
func (r *Reconciler) reconcile4(m *managed, ifindex int, resolv *resolvconf.Config, metric uint32) (bool, error) {
	desired := ipconfig.NewIP4Config()

	switch m.setting4.Method {
	case ipconfig.MethodDisabled:
		// Empty aggregate: commit clears everything we manage.
	case ipconfig.MethodAuto:
		captured := ipconfig.Capture4(r.platform, ifindex, resolv)
		if captured == nil {
			log.Debugf("interface %s is enslaved, skipping ipv4", m.cfg.Name)
			return false, nil
		}
		desired = captured
		ipconfig.MergeSetting4(desired, m.setting4, metric)
	default: // manual
		ipconfig.MergeSetting4(desired, m.setting4, metric)
	}
	if m.cfg.MTU > 0 {
		desired.SetMTU(m.cfg.MTU, platform.SourceUser)
	}

	first := m.applied4 == nil
	if first {
		m.applied4 = ipconfig.NewIP4Config()
	}
	_, relevant := ipconfig.Replace4(m.applied4, desired)

	if err := ipconfig.Commit4(r.platform, m.applied4, ifindex, metric); err != nil {
		return false, err
	}
	if err := r.applyGateway4(m, ifindex, metric); err != nil {
		return false, err
	}
	return first || relevant, nil
}

func (r *Reconciler) reconcile6(m *managed, ifindex int, resolv *resolvconf.Config, metric uint32) (bool, error) {
	desired := ipconfig.NewIP6Config()

	switch m.setting6.Method {
	case ipconfig.MethodDisabled:
	case ipconfig.MethodAuto:
		captured := ipconfig.Capture6(r.platform, ifindex, resolv)
		if captured == nil {
			log.Debugf("interface %s is enslaved, skipping ipv6", m.cfg.Name)
			return false, nil
		}
		desired = captured
		ipconfig.MergeSetting6(desired, m.setting6, metric)
	default:
		ipconfig.MergeSetting6(desired, m.setting6, metric)
	}
	if m.cfg.MTU > 0 {
		desired.SetMTU(m.cfg.MTU, platform.SourceUser)
	}

	first := m.applied6 == nil
	if first {
		m.applied6 = ipconfig.NewIP6Config()
	}
	_, relevant := ipconfig.Replace6(m.applied6, desired)

	if err := ipconfig.Commit6(r.platform, m.applied6, ifindex, metric); err != nil {
		return false, err
	}
	if err := r.applyGateway6(m, ifindex, metric); err != nil {
		return false, err
	}
	return first || relevant, nil
}

// applyGateway4 manages the default route derived from the aggregate's
// gateway scalar. Route sync deliberately never touches kernel default
// routes, so the reconciler installs and removes its own one here.
func (r *Reconciler) applyGateway4(m *managed, ifindex int, metric uint32) error {
	c := m.applied4
	want := c.HasGateway() && !c.NeverDefault()

	if want {
		route := platform.IP4Route{
			Ifindex:   ifindex,
			Network:   platform.Unspecified4,
			PrefixLen: 0,
			Gateway:   c.Gateway(),
			Metric:    metric,
			Source:    platform.SourceUser,
		}
		if !r.platform.IP4RouteAdd(ifindex, route, c.MSS()) {
			return errors.NewSyncFailureError("failed to install IPv4 default route: "+r.platform.LastErrorMessage(), nil)
		}
		m.gateway4 = true
		return nil
	}

	if m.gateway4 {
		r.platform.IP4RouteDelete(ifindex, platform.Unspecified4, 0, metric)
		m.gateway4 = false
	}
	return nil
}

func (r *Reconciler) applyGateway6(m *managed, ifindex int, metric uint32) error {
	c := m.applied6
	want := c.HasGateway() && !c.NeverDefault()

	if want {
		route := platform.IP6Route{
			Ifindex:   ifindex,
			Network:   platform.Unspecified6,
			PrefixLen: 0,
			Gateway:   c.Gateway(),
			Metric:    metric,
			Source:    platform.SourceUser,
		}
		if !r.platform.IP6RouteAdd(ifindex, route, c.MSS()) {
			return errors.NewSyncFailureError("failed to install IPv6 default route: "+r.platform.LastErrorMessage(), nil)
		}
		m.gateway6 = true
		return nil
	}

	if m.gateway6 {
		r.platform.IP6RouteDelete(ifindex, platform.Unspecified6, 0, metric)
		m.gateway6 = false
	}
	return nil
}
