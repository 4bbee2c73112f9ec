package service

import (
	"sort"
	"time"

	"github.com/netconfd/netconfd/internal/ipconfig"
)

// InterfaceStatus is the externally visible state of one managed
// interface, served by the HTTP API.
type InterfaceStatus struct {
	Name       string             `json:"name"`
	Ifindex    int                `json:"ifindex"`
	Present    bool               `json:"present"`
	LastCommit *time.Time         `json:"last_commit,omitempty"`
	LastError  string             `json:"last_error,omitempty"`
	IPv4       *ipconfig.Snapshot `json:"ipv4,omitempty"`
	IPv6       *ipconfig.Snapshot `json:"ipv6,omitempty"`
}

// Status reports the state of every managed interface, sorted by name.
func (r *Reconciler) Status() []InterfaceStatus {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]InterfaceStatus, 0, len(r.managed))
	for name, m := range r.managed {
		st := InterfaceStatus{
			Name:    name,
			Ifindex: m.ifindex,
			Present: m.ifindex != 0,
			IPv4:    m.applied4.Snapshot(),
			IPv6:    m.applied6.Snapshot(),
		}
		if !m.lastCommit.IsZero() {
			t := m.lastCommit
			st.LastCommit = &t
		}
		if m.lastError != nil {
			st.LastError = m.lastError.Error()
		}
		out = append(out, st)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
