package ipconfig

import (
	"strconv"
	"strings"

	"github.com/valyala/fasttemplate"
)

// Line templates for the diagnostic dump. The output goes to logs only
// and is not parsed by anything.
const (
	dumpHeaderTmpl = "--------- {family} config ({detail}) ---------\n"
	dumpAddrTmpl   = "addr: {address}/{prefix}{label} src {source}\n"
	dumpRouteTmpl  = "route: {network}/{prefix}{via} metric {metric} src {source}\n"
	dumpListTmpl   = "{key}: {value}\n"
)

// Dump renders a human-readable multi-line report of every field.
func (c *IP4Config) Dump(detail string) string {
	var b strings.Builder

	b.WriteString(fasttemplate.ExecuteString(dumpHeaderTmpl, "{", "}", map[string]interface{}{
		"family": "ipv4",
		"detail": detail,
	}))
	if c == nil {
		b.WriteString("(none)\n")
		return b.String()
	}

	for _, a := range c.addresses {
		label := ""
		if a.Label != "" {
			label = " label " + a.Label
		}
		b.WriteString(fasttemplate.ExecuteString(dumpAddrTmpl, "{", "}", map[string]interface{}{
			"address": a.Address.String(),
			"prefix":  strconv.Itoa(a.PrefixLen),
			"label":   label,
			"source":  a.Source.String(),
		}))
	}
	if c.HasGateway() {
		dumpList(&b, "gateway", c.gateway.String())
	}
	for _, r := range c.routes {
		via := ""
		if r.HasGateway() {
			via = " via " + r.Gateway.String()
		}
		b.WriteString(fasttemplate.ExecuteString(dumpRouteTmpl, "{", "}", map[string]interface{}{
			"network": r.Network.String(),
			"prefix":  strconv.Itoa(r.PrefixLen),
			"via":     via,
			"metric":  strconv.FormatUint(uint64(r.Metric), 10),
			"source":  r.Source.String(),
		}))
	}
	for _, ns := range c.nameservers {
		dumpList(&b, "nameserver", ns.String())
	}
	for _, d := range c.domains {
		dumpList(&b, "domain", d)
	}
	for _, s := range c.searches {
		dumpList(&b, "search", s)
	}
	for _, w := range c.winsServers {
		dumpList(&b, "wins", w.String())
	}
	for _, n := range c.nisServers {
		dumpList(&b, "nis", n.String())
	}
	if c.nisDomain != "" {
		dumpList(&b, "nis-domain", c.nisDomain)
	}
	if c.mss != 0 {
		dumpList(&b, "mss", strconv.FormatUint(uint64(c.mss), 10))
	}
	if c.mtu != 0 {
		dumpList(&b, "mtu", strconv.FormatUint(uint64(c.mtu), 10)+" (src "+c.mtuSource.String()+")")
	}
	dumpList(&b, "never-default", strconv.FormatBool(c.neverDefault))

	return b.String()
}

// Dump renders a human-readable multi-line report of every field.
func (c *IP6Config) Dump(detail string) string {
	var b strings.Builder

	b.WriteString(fasttemplate.ExecuteString(dumpHeaderTmpl, "{", "}", map[string]interface{}{
		"family": "ipv6",
		"detail": detail,
	}))
	if c == nil {
		b.WriteString("(none)\n")
		return b.String()
	}

	for _, a := range c.addresses {
		b.WriteString(fasttemplate.ExecuteString(dumpAddrTmpl, "{", "}", map[string]interface{}{
			"address": a.Address.String(),
			"prefix":  strconv.Itoa(a.PrefixLen),
			"label":   "",
			"source":  a.Source.String(),
		}))
	}
	if c.HasGateway() {
		dumpList(&b, "gateway", c.gateway.String())
	}
	for _, r := range c.routes {
		via := ""
		if r.HasGateway() {
			via = " via " + r.Gateway.String()
		}
		b.WriteString(fasttemplate.ExecuteString(dumpRouteTmpl, "{", "}", map[string]interface{}{
			"network": r.Network.String(),
			"prefix":  strconv.Itoa(r.PrefixLen),
			"via":     via,
			"metric":  strconv.FormatUint(uint64(r.Metric), 10),
			"source":  r.Source.String(),
		}))
	}
	for _, ns := range c.nameservers {
		dumpList(&b, "nameserver", ns.String())
	}
	for _, d := range c.domains {
		dumpList(&b, "domain", d)
	}
	for _, s := range c.searches {
		dumpList(&b, "search", s)
	}
	if c.mss != 0 {
		dumpList(&b, "mss", strconv.FormatUint(uint64(c.mss), 10))
	}
	if c.mtu != 0 {
		dumpList(&b, "mtu", strconv.FormatUint(uint64(c.mtu), 10)+" (src "+c.mtuSource.String()+")")
	}
	dumpList(&b, "never-default", strconv.FormatBool(c.neverDefault))

	return b.String()
}

func dumpList(b *strings.Builder, key, value string) {
	b.WriteString(fasttemplate.ExecuteString(dumpListTmpl, "{", "}", map[string]interface{}{
		"key":   key,
		"value": value,
	}))
}
