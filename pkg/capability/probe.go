// Package capability gathers the point-in-time facts the routing engine
// consumes: whether browser-side instrumentation is currently possible and
// how the instrumentation bootstrap ended. The engine only ever sees the
// resolved snapshot; timeouts and retries stay in this package.
package capability

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/zen-systems/routegate/pkg/policy"
)

const (
	cdpProbeTimeout       = 500 * time.Millisecond
	preflightProbeTimeout = 1500 * time.Millisecond
)

// CDPCheck is the result of probing the browser's DevTools endpoint.
type CDPCheck struct {
	OK             bool   `json:"ok"`
	Endpoint       string `json:"endpoint"`
	Browser        string `json:"browser,omitempty"`
	UserAgent      string `json:"userAgent,omitempty"`
	HeadlessLikely bool   `json:"headlessLikely"`
	Reason         string `json:"reason,omitempty"`
}

// PreflightCheck is the result of a CORS preflight against the debug endpoint.
type PreflightCheck struct {
	OK          bool   `json:"ok"`
	Status      int    `json:"status,omitempty"`
	Origin      string `json:"origin"`
	AllowOrigin string `json:"allowOrigin,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

// Probe checks whether browser-side instrumentation is currently possible.
type Probe struct {
	client        *http.Client
	cdpBase       string
	debugEndpoint string
	origin        string
}

// ProbeOption configures a Probe.
type ProbeOption func(*Probe)

// WithHTTPClient overrides the HTTP client, mainly for tests.
func WithHTTPClient(client *http.Client) ProbeOption {
	return func(p *Probe) {
		p.client = client
	}
}

// WithCDPBase overrides the DevTools base URL (default talks to the local
// CDP port).
func WithCDPBase(base string) ProbeOption {
	return func(p *Probe) {
		p.cdpBase = strings.TrimSuffix(base, "/")
	}
}

// NewProbe creates a probe for the given CDP port, debug endpoint, and page
// origin.
func NewProbe(cdpPort int, debugEndpoint, origin string, opts ...ProbeOption) *Probe {
	p := &Probe{
		client:        &http.Client{},
		cdpBase:       fmt.Sprintf("http://127.0.0.1:%d", cdpPort),
		debugEndpoint: debugEndpoint,
		origin:        origin,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run performs both checks and resolves them into a capability snapshot.
// Instrumentation is possible only when the CDP endpoint answers and the
// debug endpoint accepts a preflight from the page origin.
func (p *Probe) Run(ctx context.Context) (*policy.Snapshot, *CDPCheck, *PreflightCheck) {
	cdp := p.CheckCDP(ctx)
	preflight := p.CheckPreflight(ctx)

	return &policy.Snapshot{
		CanInstrumentFromBrowser: cdp.OK && preflight.OK,
	}, cdp, preflight
}

// CheckCDP probes the DevTools /json/version endpoint.
func (p *Probe) CheckCDP(ctx context.Context) *CDPCheck {
	endpoint := p.cdpBase + "/json/version"
	check := &CDPCheck{Endpoint: endpoint}

	ctx, cancel := context.WithTimeout(ctx, cdpProbeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		check.Reason = err.Error()
		return check
	}

	resp, err := p.client.Do(req)
	if err != nil {
		check.Reason = "unreachable: " + err.Error()
		return check
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		check.Reason = fmt.Sprintf("HTTP_%d", resp.StatusCode)
		return check
	}

	var payload struct {
		Browser   string `json:"Browser"`
		UserAgent string `json:"User-Agent"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		check.Reason = "invalid version payload: " + err.Error()
		return check
	}

	check.OK = true
	check.Browser = payload.Browser
	check.UserAgent = payload.UserAgent
	combined := strings.ToLower(payload.Browser + " " + payload.UserAgent)
	check.HeadlessLikely = strings.Contains(combined, "headless")
	return check
}

// CheckPreflight sends a CORS preflight to the debug endpoint as the page
// origin would. The endpoint must answer 204 and echo the origin.
func (p *Probe) CheckPreflight(ctx context.Context) *PreflightCheck {
	check := &PreflightCheck{Origin: p.origin}

	ctx, cancel := context.WithTimeout(ctx, preflightProbeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodOptions, p.debugEndpoint, nil)
	if err != nil {
		check.Reason = err.Error()
		return check
	}
	req.Header.Set("Origin", p.origin)
	req.Header.Set("Access-Control-Request-Method", "POST")
	req.Header.Set("Access-Control-Request-Headers", "content-type")

	resp, err := p.client.Do(req)
	if err != nil {
		check.Reason = "preflight request failed: " + err.Error()
		return check
	}
	defer resp.Body.Close()

	check.Status = resp.StatusCode
	check.AllowOrigin = resp.Header.Get("Access-Control-Allow-Origin")

	switch {
	case resp.StatusCode != http.StatusNoContent:
		check.Reason = fmt.Sprintf("expected 204, got %d", resp.StatusCode)
	case check.AllowOrigin != p.origin:
		got := check.AllowOrigin
		if got == "" {
			got = "<missing>"
		}
		check.Reason = fmt.Sprintf("expected Access-Control-Allow-Origin=%s, got %s", p.origin, got)
	default:
		check.OK = true
	}
	return check
}
