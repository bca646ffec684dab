// Package health probes the backend with the standard gRPC health protocol
// and tracks whether the shell is online.
package health

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
)

// ErrUnavailable is returned when the backend answers but is not serving.
var ErrUnavailable = errors.New("backend unavailable")

// HeaderSource supplies the headers attached to every outgoing call.
type HeaderSource interface {
	SecureHeaders() http.Header
}

// Prober checks the health of one backend service.
type Prober struct {
	conn    *grpc.ClientConn
	client  healthpb.HealthClient
	service string
}

// Dial creates a prober for endpoint. The connection is established lazily.
// When headers is non-nil its values ride along as gRPC metadata.
func Dial(endpoint, service string, headers HeaderSource, opts ...grpc.DialOption) (*Prober, error) {
	base := []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}
	if headers != nil {
		base = append(base, grpc.WithUnaryInterceptor(headerInterceptor(headers)))
	}

	conn, err := grpc.NewClient(endpoint, append(base, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", endpoint, err)
	}

	return &Prober{conn: conn, client: healthpb.NewHealthClient(conn), service: service}, nil
}

// Ping returns nil when the backend reports SERVING.
func (p *Prober) Ping(ctx context.Context) error {
	resp, err := p.client.Check(ctx, &healthpb.HealthCheckRequest{Service: p.service})
	if err != nil {
		return err
	}

	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return ErrUnavailable
	}

	return nil
}

func (p *Prober) Close() error {
	return p.conn.Close()
}

// withHeaders copies h into the outgoing metadata of ctx, replacing any
// previous values of the same keys.
func withHeaders(ctx context.Context, h http.Header) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	for k, vs := range h {
		key := strings.ToLower(k)
		md.Delete(key)
		md.Set(key, vs...)
	}
	return metadata.NewOutgoingContext(ctx, md)
}

func headerInterceptor(src HeaderSource) grpc.UnaryClientInterceptor {
	return func(
		ctx context.Context,
		method string,
		req, reply interface{},
		cc *grpc.ClientConn,
		invoker grpc.UnaryInvoker,
		opts ...grpc.CallOption,
	) error {
		return invoker(withHeaders(ctx, src.SecureHeaders()), method, req, reply, cc, opts...)
	}
}
