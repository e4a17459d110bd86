// Package resource describes the identity of the process emitting telemetry.
package resource

import (
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	commonpb "go.opentelemetry.io/proto/otlp/common/v1"
	resourcepb "go.opentelemetry.io/proto/otlp/resource/v1"
)

// SDKName identifies this pipeline as the telemetry producer.
const SDKName = "otelpipe"

// Environment is a deployment environment name.
type Environment string

// Known environments.
const (
	Dev  Environment = "dev"
	Test Environment = "test"
	Prod Environment = "prod"
)

// ParseEnvironment accepts the short names plus the common long aliases.
func ParseEnvironment(s string) (Environment, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "dev", "development":
		return Dev, nil
	case "test", "testing":
		return Test, nil
	case "prod", "production":
		return Prod, nil
	default:
		return "", fmt.Errorf("unknown deployment environment %q (valid: dev, test, prod)", s)
	}
}

// Descriptor is the immutable process identity attached to every exported
// batch.
type Descriptor struct {
	ServiceName    string
	ServiceVersion string
	Environment    Environment
}

// Attributes returns the resource attributes in a stable order.
func (d Descriptor) Attributes() []attribute.KeyValue {
	return []attribute.KeyValue{
		semconv.ServiceName(d.ServiceName),
		semconv.ServiceVersion(d.ServiceVersion),
		semconv.DeploymentEnvironment(string(d.Environment)),
		semconv.TelemetrySDKName(SDKName),
		semconv.TelemetrySDKLanguageGo,
	}
}

// Proto renders the descriptor as an OTLP resource.
func (d Descriptor) Proto() *resourcepb.Resource {
	attrs := d.Attributes()
	kvs := make([]*commonpb.KeyValue, 0, len(attrs))
	for _, kv := range attrs {
		kvs = append(kvs, &commonpb.KeyValue{
			Key:   string(kv.Key),
			Value: &commonpb.AnyValue{Value: &commonpb.AnyValue_StringValue{StringValue: kv.Value.Emit()}},
		})
	}
	return &resourcepb.Resource{Attributes: kvs}
}

// Map returns the attributes as a plain map, used by the console transport.
func (d Descriptor) Map() map[string]string {
	attrs := d.Attributes()
	out := make(map[string]string, len(attrs))
	for _, kv := range attrs {
		out[string(kv.Key)] = kv.Value.Emit()
	}
	return out
}
