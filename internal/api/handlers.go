package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/netconfd/netconfd/internal/config"
	"github.com/netconfd/netconfd/internal/ipconfig"
	"github.com/netconfd/netconfd/internal/log"
	"github.com/netconfd/netconfd/internal/platform"
	"github.com/netconfd/netconfd/internal/resolvconf"
	"github.com/netconfd/netconfd/internal/service"
)

// StatusProvider exposes the reconciler state the API serves. This
// keeps the API decoupled from the service package's internals.
type StatusProvider interface {
	Status() []service.InterfaceStatus
}

// Handler manages all API endpoints and dependencies.
type Handler struct {
	platform platform.Platform
	cfg      *config.Config
	status   StatusProvider
}

// NewHandler creates a new API handler.
func NewHandler(p platform.Platform, cfg *config.Config, status StatusProvider) *Handler {
	return &Handler{platform: p, cfg: cfg, status: status}
}

// LinkInfo is the JSON shape of one network interface.
type LinkInfo struct {
	Ifindex int    `json:"ifindex"`
	Name    string `json:"name"`
	Kind    string `json:"kind"`
	Up      bool   `json:"up"`
	Carrier bool   `json:"carrier"`
	ARP     bool   `json:"arp"`
	Master  int    `json:"master,omitempty"`
	MTU     int    `json:"mtu"`
}

// GetLinks returns every link the platform knows about.
// GET /api/v1/links
func (h *Handler) GetLinks(w http.ResponseWriter, r *http.Request) {
	links := h.platform.LinkGetAll()

	out := make([]LinkInfo, 0, len(links))
	for _, l := range links {
		out = append(out, LinkInfo{
			Ifindex: l.Index,
			Name:    l.Name,
			Kind:    l.Kind.String(),
			Up:      l.Up,
			Carrier: l.Carrier,
			ARP:     l.ARP,
			Master:  l.Master,
			MTU:     l.MTU,
		})
	}
	writeJSONData(w, out)
}

// GetLinkIPv4 returns the captured IPv4 aggregate of one link.
// GET /api/v1/links/{ifindex}/ipv4
func (h *Handler) GetLinkIPv4(w http.ResponseWriter, r *http.Request) {
	ifindex, ok := h.linkParam(w, r)
	if !ok {
		return
	}
	cfg := ipconfig.Capture4(h.platform, ifindex, h.readResolvConf())
	writeJSONData(w, cfg.Snapshot())
}

// GetLinkIPv6 returns the captured IPv6 aggregate of one link.
// GET /api/v1/links/{ifindex}/ipv6
func (h *Handler) GetLinkIPv6(w http.ResponseWriter, r *http.Request) {
	ifindex, ok := h.linkParam(w, r)
	if !ok {
		return
	}
	cfg := ipconfig.Capture6(h.platform, ifindex, h.readResolvConf())
	writeJSONData(w, cfg.Snapshot())
}

// StatusResponse is the body of the status endpoint.
type StatusResponse struct {
	ConfigPath string                    `json:"config_path,omitempty"`
	ConfigHash string                    `json:"config_hash,omitempty"`
	Interfaces []service.InterfaceStatus `json:"interfaces"`
}

// GetStatus returns per-interface reconcile state.
// GET /api/v1/status
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{
		ConfigPath: h.cfg.ConfigFilePath(),
		Interfaces: h.status.Status(),
	}
	if hash, err := h.cfg.Hash(); err == nil {
		resp.ConfigHash = hash
	}
	writeJSONData(w, resp)
}

// CheckResult is the outcome of one health check.
type CheckResult struct {
	Passed  bool   `json:"passed"`
	Message string `json:"message"`
}

// HealthCheckResponse is the body of the health endpoint.
type HealthCheckResponse struct {
	Healthy bool                   `json:"healthy"`
	Checks  map[string]CheckResult `json:"checks"`
}

// CheckHealth performs health checks on the system.
// GET /api/v1/health
func (h *Handler) CheckHealth(w http.ResponseWriter, r *http.Request) {
	response := HealthCheckResponse{
		Healthy: true,
		Checks:  make(map[string]CheckResult),
	}

	if err := h.cfg.ValidateConfig(); err != nil {
		response.Healthy = false
		response.Checks["config_validation"] = CheckResult{
			Passed:  false,
			Message: "Configuration validation failed: " + err.Error(),
		}
	} else {
		response.Checks["config_validation"] = CheckResult{
			Passed:  true,
			Message: "Configuration is valid",
		}
	}

	missing := 0
	for _, iface := range h.cfg.Interfaces {
		if !h.platform.LinkExists(iface.Name) {
			missing++
			log.Warnf("configured interface %s is not present", iface.Name)
		}
	}
	if missing > 0 {
		response.Checks["links_present"] = CheckResult{
			Passed:  false,
			Message: strconv.Itoa(missing) + " configured interface(s) not present",
		}
	} else {
		response.Checks["links_present"] = CheckResult{
			Passed:  true,
			Message: "All configured interfaces are present",
		}
	}

	for _, st := range h.status.Status() {
		if st.LastError != "" {
			response.Healthy = false
			response.Checks["reconcile_"+st.Name] = CheckResult{
				Passed:  false,
				Message: st.LastError,
			}
		}
	}

	status := http.StatusOK
	if !response.Healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, response)
}

// linkParam extracts and resolves the {ifindex} URL parameter.
func (h *Handler) linkParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := chi.URLParam(r, "ifindex")
	ifindex, err := strconv.Atoi(raw)
	if err != nil || ifindex <= 0 {
		WriteInvalidRequest(w, "ifindex must be a positive integer")
		return 0, false
	}
	if h.platform.LinkGetName(ifindex) == "" {
		WriteNotFound(w, "link "+raw)
		return 0, false
	}
	return ifindex, true
}

// readResolvConf reads the configured resolver file; a missing or
// unreadable file just means no DNS enrichment for the capture.
func (h *Handler) readResolvConf() *resolvconf.Config {
	resolv, err := resolvconf.Read(h.cfg.General.ResolvConfPath)
	if err != nil {
		return nil
	}
	return resolv
}

// DataResponse wraps successful responses.
type DataResponse struct {
	Data interface{} `json:"data"`
}

// writeJSON writes a JSON response with the given status code and data.
func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(DataResponse{Data: data})
}

// writeJSONData writes a successful JSON response with data.
func writeJSONData(w http.ResponseWriter, data interface{}) {
	writeJSON(w, http.StatusOK, data)
}
