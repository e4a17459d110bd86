package resource

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEnvironment(t *testing.T) {
	tests := []struct {
		in      string
		want    Environment
		wantErr bool
	}{
		{"dev", Dev, false},
		{"Development", Dev, false},
		{"test", Test, false},
		{"prod", Prod, false},
		{" production ", Prod, false},
		{"staging", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseEnvironment(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDescriptorAttributes(t *testing.T) {
	d := Descriptor{ServiceName: "saas-app", ServiceVersion: "0.1.0", Environment: Prod}

	m := d.Map()
	assert.Equal(t, "saas-app", m["service.name"])
	assert.Equal(t, "0.1.0", m["service.version"])
	assert.Equal(t, "prod", m["deployment.environment"])
	assert.Equal(t, "go", m["telemetry.sdk.language"])
	assert.Equal(t, SDKName, m["telemetry.sdk.name"])
}

func TestDescriptorProto(t *testing.T) {
	d := Descriptor{ServiceName: "svc", ServiceVersion: "1.2.3", Environment: Dev}

	res := d.Proto()
	require.Len(t, res.Attributes, len(d.Attributes()))
	assert.Equal(t, "service.name", res.Attributes[0].Key)
	assert.Equal(t, "svc", res.Attributes[0].Value.GetStringValue())
}
