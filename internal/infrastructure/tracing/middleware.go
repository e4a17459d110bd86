package tracing

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"github.com/GriffinCanCode/otelpipe/internal/infrastructure/logging"
	"github.com/GriffinCanCode/otelpipe/internal/shared/id"
	"github.com/GriffinCanCode/otelpipe/internal/telemetry/logrecord"
)

// RequestIDHeader carries the request ID in both directions.
const RequestIDHeader = "X-Request-ID"

// LoggerKey is the gin context key of the request-scoped logger.
const LoggerKey = "logger"

// UnmatchedRoute names spans of requests no route matched, so arbitrary
// paths never become span names.
const UnmatchedRoute = "unmatched"

// Hooks opens and closes request spans. The pipeline implements it; when
// telemetry is disabled OnRequestStart returns a nil span.
type Hooks interface {
	OnRequestStart(ctx context.Context, info RequestInfo) (context.Context, *Span)
	OnRequestEnd(span *Span, statusCode int)
}

// HTTPMiddleware creates Gin middleware that traces every request and
// attaches a correlated, request-scoped logger to the request context.
func HTTPMiddleware(hooks Hooks, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	propagator := propagation.TraceContext{}

	return func(c *gin.Context) {
		reqID := id.FromHeader(c.GetHeader(RequestIDHeader)).String()
		c.Header(RequestIDHeader, reqID)

		route := c.FullPath()
		if route == "" {
			route = UnmatchedRoute
		}
		ctx, span := hooks.OnRequestStart(c.Request.Context(), RequestInfo{
			ID:       reqID,
			Method:   c.Request.Method,
			Path:     c.Request.URL.Path,
			Route:    route,
			Header:   c.Request.Header,
			Host:     c.Request.Host,
			ClientIP: c.ClientIP(),
		})
		propagator.Inject(ctx, propagation.HeaderCarrier(c.Writer.Header()))

		reqLogger := logger.With(
			zap.String(logrecord.ReqIDKey, reqID),
			logging.SpanContext(span.SpanContext()),
		)
		c.Request = c.Request.WithContext(logging.ContextWithLogger(ctx, reqLogger))
		c.Set(LoggerKey, reqLogger)

		start := time.Now()
		reqLogger.Info("incoming request",
			zap.String("method", c.Request.Method),
			zap.String("url", c.Request.URL.RequestURI()),
		)

		// A panicking handler still ends its span before unwinding further.
		defer func() {
			if r := recover(); r != nil {
				span.SetError(fmt.Errorf("panic: %v", r))
				hooks.OnRequestEnd(span, http.StatusInternalServerError)
				panic(r)
			}
		}()

		c.Next()

		statusCode := c.Writer.Status()
		if len(c.Errors) > 0 {
			span.SetError(c.Errors.Last())
		}
		reqLogger.Info("request completed",
			zap.Int("statusCode", statusCode),
			zap.Duration("responseTime", time.Since(start)),
		)
		hooks.OnRequestEnd(span, statusCode)
	}
}

// LoggerFrom returns the request-scoped logger installed by HTTPMiddleware.
func LoggerFrom(c *gin.Context) *zap.Logger {
	return logging.FromContext(c.Request.Context())
}

// GRPCUnaryInterceptor creates a gRPC unary interceptor for tracing
func GRPCUnaryInterceptor(hooks Hooks) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		ctx, span := startRPC(ctx, hooks, info.FullMethod)

		resp, err := handler(ctx, req)

		endRPC(hooks, span, err)
		return resp, err
	}
}

// GRPCStreamInterceptor creates a gRPC stream interceptor for tracing
func GRPCStreamInterceptor(hooks Hooks) grpc.StreamServerInterceptor {
	return func(
		srv interface{},
		ss grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) error {
		ctx, span := startRPC(ss.Context(), hooks, info.FullMethod)
		span.SetAttribute("rpc.streaming", true)

		err := handler(srv, &tracedServerStream{ServerStream: ss, ctx: ctx})

		endRPC(hooks, span, err)
		return err
	}
}

// tracedServerStream wraps grpc.ServerStream with tracing context
type tracedServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *tracedServerStream) Context() context.Context {
	return s.ctx
}

func startRPC(ctx context.Context, hooks Hooks, method string) (context.Context, *Span) {
	header := http.Header{}
	var host string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		for k, vals := range md {
			for _, v := range vals {
				header.Add(k, v)
			}
		}
		if vals := md.Get(":authority"); len(vals) > 0 {
			host = vals[0]
		}
	}

	var clientIP string
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		clientIP = p.Addr.String()
		if h, _, err := net.SplitHostPort(clientIP); err == nil {
			clientIP = h
		}
	}

	ctx, span := hooks.OnRequestStart(ctx, RequestInfo{
		ID:       id.FromHeader(header.Get(RequestIDHeader)).String(),
		Method:   http.MethodPost,
		Path:     method,
		Route:    method,
		Header:   header,
		Host:     host,
		ClientIP: clientIP,
	})
	span.SetAttribute("rpc.system", "grpc")
	span.SetAttribute("rpc.method", method)
	return ctx, span
}

func endRPC(hooks Hooks, span *Span, err error) {
	code := status.Code(err)
	span.SetAttribute("rpc.grpc.status_code", int(code))
	if err != nil {
		span.SetError(err)
	}
	hooks.OnRequestEnd(span, httpStatusFromCode(code))
}

// httpStatusFromCode follows the gRPC to HTTP mapping used by grpc-gateway.
func httpStatusFromCode(code codes.Code) int {
	switch code {
	case codes.OK:
		return http.StatusOK
	case codes.Canceled:
		return 499
	case codes.InvalidArgument, codes.FailedPrecondition, codes.OutOfRange:
		return http.StatusBadRequest
	case codes.Unauthenticated:
		return http.StatusUnauthorized
	case codes.PermissionDenied:
		return http.StatusForbidden
	case codes.NotFound:
		return http.StatusNotFound
	case codes.AlreadyExists, codes.Aborted:
		return http.StatusConflict
	case codes.ResourceExhausted:
		return http.StatusTooManyRequests
	case codes.Unimplemented:
		return http.StatusNotImplemented
	case codes.Unavailable:
		return http.StatusServiceUnavailable
	case codes.DeadlineExceeded:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
