package health

import (
	"context"
	"net"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/test/bufconn"
)

// recordingHealth wraps the stock health server and remembers the metadata
// of the last call.
type recordingHealth struct {
	*health.Server

	mu sync.Mutex
	md metadata.MD
}

func (r *recordingHealth) Check(ctx context.Context, in *healthpb.HealthCheckRequest) (*healthpb.HealthCheckResponse, error) {
	md, _ := metadata.FromIncomingContext(ctx)
	r.mu.Lock()
	r.md = md
	r.mu.Unlock()
	return r.Server.Check(ctx, in)
}

func (r *recordingHealth) lastMD() metadata.MD {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.md
}

func startServer(t *testing.T) (*recordingHealth, func(context.Context, string) (net.Conn, error)) {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	h := &recordingHealth{Server: health.NewServer()}
	healthpb.RegisterHealthServer(srv, h)

	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	return h, func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }
}

type staticHeaders http.Header

func (s staticHeaders) SecureHeaders() http.Header { return http.Header(s) }

func TestPing_Serving(t *testing.T) {
	h, dialer := startServer(t)
	h.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	p, err := Dial("passthrough:///bufnet", "", nil, grpc.WithContextDialer(dialer))
	require.NoError(t, err)
	defer p.Close()

	assert.NoError(t, p.Ping(context.Background()))
}

func TestPing_NotServing(t *testing.T) {
	h, dialer := startServer(t)
	h.SetServingStatus("vault", healthpb.HealthCheckResponse_NOT_SERVING)

	p, err := Dial("passthrough:///bufnet", "vault", nil, grpc.WithContextDialer(dialer))
	require.NoError(t, err)
	defer p.Close()

	assert.ErrorIs(t, p.Ping(context.Background()), ErrUnavailable)
}

func TestPing_UnknownServiceIsError(t *testing.T) {
	_, dialer := startServer(t)

	p, err := Dial("passthrough:///bufnet", "nope", nil, grpc.WithContextDialer(dialer))
	require.NoError(t, err)
	defer p.Close()

	assert.Error(t, p.Ping(context.Background()))
}

func TestPing_AttachesSecureHeaders(t *testing.T) {
	h, dialer := startServer(t)
	h.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	hdr := http.Header{}
	hdr.Set("Authorization", "Bearer tok")
	hdr.Set("X-CSRF-Token", "csrf")

	p, err := Dial("passthrough:///bufnet", "", staticHeaders(hdr), grpc.WithContextDialer(dialer))
	require.NoError(t, err)
	defer p.Close()

	ctx := metadata.AppendToOutgoingContext(context.Background(), "authorization", "stale")
	require.NoError(t, p.Ping(ctx))

	md := h.lastMD()
	assert.Equal(t, []string{"Bearer tok"}, md.Get("authorization"))
	assert.Equal(t, []string{"csrf"}, md.Get("x-csrf-token"))
}
