package config

import (
	"fmt"
	"net/url"
	"strings"
)

// TargetKind selects where telemetry goes.
type TargetKind int

const (
	TargetDisabled TargetKind = iota
	TargetConsole
	TargetRemote
)

func (k TargetKind) String() string {
	switch k {
	case TargetDisabled:
		return "disabled"
	case TargetConsole:
		return "console"
	case TargetRemote:
		return "remote"
	default:
		return "unknown"
	}
}

// Protocol is the OTLP wire protocol for remote targets.
type Protocol string

const (
	ProtocolHTTP Protocol = "http"
	ProtocolGRPC Protocol = "grpc"
)

// Remote describes an OTLP collector.
type Remote struct {
	URL      string
	Token    string
	Protocol Protocol
	Insecure bool
}

// Target is the export destination. Remote is only meaningful when Kind is
// TargetRemote.
type Target struct {
	Kind   TargetKind
	Remote Remote
}

// Disabled returns a target that turns the pipeline off.
func Disabled() Target { return Target{Kind: TargetDisabled} }

// Console returns a target that writes telemetry to stdout.
func Console() Target { return Target{Kind: TargetConsole} }

// RemoteTarget returns a target that ships telemetry to r.
func RemoteTarget(r Remote) Target { return Target{Kind: TargetRemote, Remote: r} }

// Target resolves the configured export destination. A remote target with a
// missing endpoint or credential is a ConfigurationError.
func (t TelemetryConfig) Target() (Target, error) {
	if !t.Enabled {
		return Disabled(), nil
	}

	switch strings.ToLower(strings.TrimSpace(t.Type)) {
	case "disabled", "none":
		return Disabled(), nil
	case "", "console":
		return Console(), nil
	case "otlp":
		return t.remote()
	default:
		return Target{}, &ConfigurationError{Field: "TRACE_TYPE", Reason: fmt.Sprintf("unknown type %q", t.Type)}
	}
}

func (t TelemetryConfig) remote() (Target, error) {
	if t.Endpoint == "" {
		return Target{}, &ConfigurationError{Field: "OTLP_ENDPOINT", Reason: "required for otlp export"}
	}
	if t.APIKey == "" {
		return Target{}, &ConfigurationError{Field: "OTLP_API_KEY", Reason: "required for otlp export"}
	}

	u, err := url.Parse(t.Endpoint)
	if err != nil || u.Host == "" {
		return Target{}, &ConfigurationError{Field: "OTLP_ENDPOINT", Reason: fmt.Sprintf("not a valid URL: %q", t.Endpoint)}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return Target{}, &ConfigurationError{Field: "OTLP_ENDPOINT", Reason: "scheme must be http or https"}
	}

	proto := Protocol(strings.ToLower(t.Protocol))
	switch proto {
	case "":
		proto = ProtocolHTTP
	case ProtocolHTTP, ProtocolGRPC:
	default:
		return Target{}, &ConfigurationError{Field: "OTLP_PROTOCOL", Reason: fmt.Sprintf("unknown protocol %q", t.Protocol)}
	}

	return RemoteTarget(Remote{
		URL:      strings.TrimRight(t.Endpoint, "/"),
		Token:    t.APIKey,
		Protocol: proto,
		Insecure: t.Insecure || u.Scheme == "http",
	}), nil
}
