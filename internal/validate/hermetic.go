package validate

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/tracecheck/tracecheck/internal/expect"
	"github.com/tracecheck/tracecheck/internal/trace"
)

// peerAttributeKeys are the attribute keys that name a network peer under
// OTEL semantic conventions (current and pre-1.17 spellings).
var peerAttributeKeys = []string{
	"server.address",
	"net.peer.name",
	"net.peer.ip",
	"net.sock.peer.addr",
	"peer.hostname",
	"http.host",
	"http.url",
	"url.full",
}

// checkHermeticity detects evidence of external dependencies or state leaked
// from prior executions:
//   - required resource attributes must be present and match on every span;
//   - forbidden attribute keys must be absent everywhere;
//   - attributes naming a network peer outside the allow-list must not
//     appear anywhere in the trace.
func checkHermeticity(tr *trace.Trace, spec *expect.HermeticitySpec) []Violation {
	var violations []Violation

	for i := 0; i < tr.Len(); i++ {
		s := tr.Span(i)

		for key, want := range spec.Resource {
			got, ok := s.Resource[key]
			switch {
			case !ok:
				violations = append(violations, Violation{
					Validator: ValidatorHermeticity,
					Rule:      "resource",
					Expected:  fmt.Sprintf("resource attribute %s=%q", key, want),
					Actual:    "attribute missing",
					SpanID:    s.ID,
					SpanName:  s.Name,
				})
			case got != want:
				violations = append(violations, Violation{
					Validator: ValidatorHermeticity,
					Rule:      "resource",
					Expected:  fmt.Sprintf("resource attribute %s=%q", key, want),
					Actual:    fmt.Sprintf("%s=%q", key, got),
					SpanID:    s.ID,
					SpanName:  s.Name,
				})
			}
		}

		for _, key := range spec.ForbiddenKeys {
			if val, ok := s.Attributes[key]; ok {
				violations = append(violations, Violation{
					Validator: ValidatorHermeticity,
					Rule:      "forbidden_key",
					Expected:  fmt.Sprintf("no attribute %q", key),
					Actual:    fmt.Sprintf("%s=%q", key, val),
					SpanID:    s.ID,
					SpanName:  s.Name,
				})
			}
		}

		if spec.NoExternalPeers {
			for _, key := range peerAttributeKeys {
				val, ok := s.Attributes[key]
				if !ok {
					continue
				}
				host := peerHost(val)
				if host == "" || hermeticHost(host, spec.AllowedPeers) {
					continue
				}
				violations = append(violations, Violation{
					Validator: ValidatorHermeticity,
					Rule:      "external_peer",
					Expected:  "no network peers outside the allow-list",
					Actual:    fmt.Sprintf("%s=%q", key, val),
					SpanID:    s.ID,
					SpanName:  s.Name,
				})
			}
		}
	}

	return violations
}

// peerHost extracts the host from a peer attribute value, which may be a
// bare host, host:port, or a full URL.
func peerHost(val string) string {
	if strings.Contains(val, "://") {
		if u, err := url.Parse(val); err == nil {
			return u.Hostname()
		}
	}
	if host, _, err := net.SplitHostPort(val); err == nil {
		return host
	}
	return val
}

// hermeticHost reports whether host is loopback, localhost, or allow-listed.
func hermeticHost(host string, allowed []string) bool {
	if host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return true
	}
	if ip := net.ParseIP(host); ip != nil && (ip.IsLoopback() || ip.IsUnspecified()) {
		return true
	}
	for _, a := range allowed {
		if host == a {
			return true
		}
	}
	return false
}
