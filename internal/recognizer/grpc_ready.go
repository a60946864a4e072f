package recognizer

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/connectivity"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
)

// awaitConnected blocks until conn reaches Ready. Shutdown and ctx expiry
// are failures.
func awaitConnected(ctx context.Context, conn *grpc.ClientConn) error {
	conn.Connect()
	for state := conn.GetState(); state != connectivity.Ready; state = conn.GetState() {
		if state == connectivity.Shutdown {
			return fmt.Errorf("grpc connection is %s", state)
		}
		if !conn.WaitForStateChange(ctx, state) {
			return fmt.Errorf("grpc connection stuck in %s: %w", state, ctx.Err())
		}
	}
	return nil
}

// checkServing asks the standard health service whether the recognizer is
// serving. Servers without a health service count as serving.
func checkServing(ctx context.Context, conn *grpc.ClientConn) error {
	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	if err != nil {
		if status.Code(err) == codes.Unimplemented {
			return nil
		}
		return fmt.Errorf("health check: %w", err)
	}
	if s := resp.GetStatus(); s != healthpb.HealthCheckResponse_SERVING {
		return fmt.Errorf("recognizer reports %s", s)
	}
	return nil
}
