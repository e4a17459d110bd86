package transport

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/klauspost/compress/gzip"
	"google.golang.org/protobuf/proto"

	"github.com/GriffinCanCode/otelpipe/internal/infrastructure/config"
	"github.com/GriffinCanCode/otelpipe/internal/telemetry/logrecord"
	"github.com/GriffinCanCode/otelpipe/internal/telemetry/resource"
)

// StatusError is returned when the collector answers with a non-2xx status.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("collector returned %d: %s", e.Code, e.Body)
}

// maxErrorBody caps how much of a rejected response is kept in StatusError.
const maxErrorBody = 512

// OTLPLogsHTTP posts log batches as gzip-compressed OTLP protobuf.
type OTLPLogsHTTP struct {
	client *resty.Client
	url    string
	res    resource.Descriptor
}

// NewOTLPLogsHTTP creates an OTLP/HTTP log transport for remote.
func NewOTLPLogsHTTP(remote config.Remote, res resource.Descriptor, timeout time.Duration) *OTLPLogsHTTP {
	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(0).
		SetHeader(APIKeyHeader, remote.Token).
		SetHeader("Content-Type", "application/x-protobuf").
		SetHeader("Content-Encoding", "gzip").
		SetHeader("User-Agent", resource.SDKName+"/"+res.ServiceVersion)

	return &OTLPLogsHTTP{
		client: client,
		url:    remote.URL + LogsPath,
		res:    res,
	}
}

// Export posts batch to the collector.
func (t *OTLPLogsHTTP) Export(ctx context.Context, batch []logrecord.Record) error {
	body, err := proto.Marshal(LogsToProto(t.res, batch))
	if err != nil {
		return fmt.Errorf("failed to marshal logs: %w", err)
	}

	compressed, err := gzipBytes(body)
	if err != nil {
		return fmt.Errorf("failed to compress logs: %w", err)
	}

	resp, err := t.client.R().
		SetContext(ctx).
		SetBody(compressed).
		Post(t.url)
	if err != nil {
		return err
	}
	if resp.IsError() {
		msg := resp.String()
		if len(msg) > maxErrorBody {
			msg = msg[:maxErrorBody]
		}
		return &StatusError{Code: resp.StatusCode(), Body: msg}
	}
	return nil
}

// Shutdown releases idle connections.
func (t *OTLPLogsHTTP) Shutdown(context.Context) error {
	t.client.GetClient().CloseIdleConnections()
	return nil
}

func gzipBytes(b []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(b); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
