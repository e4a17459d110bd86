package transport

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/url"

	collogspb "go.opentelemetry.io/proto/otlp/collector/logs/v1"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/encoding/gzip"
	"google.golang.org/grpc/metadata"

	"github.com/GriffinCanCode/otelpipe/internal/infrastructure/config"
	"github.com/GriffinCanCode/otelpipe/internal/telemetry/logrecord"
	"github.com/GriffinCanCode/otelpipe/internal/telemetry/resource"
)

// OTLPLogsGRPC exports log batches through the OTLP logs gRPC service.
type OTLPLogsGRPC struct {
	conn   *grpc.ClientConn
	client collogspb.LogsServiceClient
	token  string
	res    resource.Descriptor
}

// NewOTLPLogsGRPC creates a gRPC client for remote. The connection is
// established lazily on the first export.
func NewOTLPLogsGRPC(remote config.Remote, res resource.Descriptor) (*OTLPLogsGRPC, error) {
	u, err := url.Parse(remote.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid collector url: %w", err)
	}

	creds := credentials.NewTLS(&tls.Config{MinVersion: tls.VersionTLS12})
	if remote.Insecure {
		creds = insecure.NewCredentials()
	}

	opts := []grpc.DialOption{
		grpc.WithTransportCredentials(creds),
		grpc.WithDefaultCallOptions(
			grpc.UseCompressor(gzip.Name),
			grpc.MaxCallSendMsgSize(16*1024*1024),
		),
	}

	conn, err := grpc.NewClient(u.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to dial collector: %w", err)
	}

	return &OTLPLogsGRPC{
		conn:   conn,
		client: collogspb.NewLogsServiceClient(conn),
		token:  remote.Token,
		res:    res,
	}, nil
}

// Export sends batch. A partial success with rejected records is an error.
func (t *OTLPLogsGRPC) Export(ctx context.Context, batch []logrecord.Record) error {
	ctx = metadata.AppendToOutgoingContext(ctx, APIKeyHeader, t.token)

	resp, err := t.client.Export(ctx, LogsToProto(t.res, batch))
	if err != nil {
		return err
	}
	if ps := resp.GetPartialSuccess(); ps.GetRejectedLogRecords() > 0 {
		return fmt.Errorf("collector rejected %d log records: %s", ps.GetRejectedLogRecords(), ps.GetErrorMessage())
	}
	return nil
}

// Shutdown closes the connection.
func (t *OTLPLogsGRPC) Shutdown(context.Context) error {
	if t.conn != nil {
		return t.conn.Close()
	}
	return nil
}
