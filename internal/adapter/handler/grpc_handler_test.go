package handler

import (
	"context"
	"net"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/rl1809/uniform-inventory/internal/core/domain"
)

func startGRPC(t *testing.T, f *fixture) *grpc.ClientConn {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	srv := NewGRPCServer(NewGRPCHandler(f.svc.Stock, f.svc.Sales), f.svc.Auth, nil)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func invoke(ctx context.Context, conn *grpc.ClientConn, method string, in, out any) error {
	return conn.Invoke(ctx, "/"+StockServiceName+"/"+method, in, out, grpc.CallContentSubtype("json"))
}

func authed(token string) context.Context {
	return metadata.AppendToOutgoingContext(context.Background(), "authorization", "Bearer "+token)
}

func TestGRPC_RecordEntryAndExit(t *testing.T) {
	f := newFixture(t)
	conn := startGRPC(t, f)
	ctx := authed(f.token)

	var reply MovementReply
	require.NoError(t, invoke(ctx, conn, "RecordEntry", &MovementRequest{UnitID: f.unitID, Quantity: 10}, &reply))
	assert.Equal(t, 13, reply.ResultingStock)

	err := invoke(ctx, conn, "RecordExit", &MovementRequest{UnitID: f.unitID, Quantity: 50}, &reply)
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))
	assert.Equal(t, 13, f.quantity(t))

	err = invoke(ctx, conn, "RecordExit", &MovementRequest{UnitID: 404, Quantity: 1}, &reply)
	assert.Equal(t, codes.NotFound, status.Code(err))

	err = invoke(ctx, conn, "RecordExit", &MovementRequest{UnitID: f.unitID, Quantity: 0}, &reply)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestGRPC_RegisterSale(t *testing.T) {
	f := newFixture(t)
	f.svc.Sales = newSalesWithCache(f)
	conn := startGRPC(t, f)
	ctx := authed(f.token)

	req := &SaleRequest{
		CustomerName:   "Ana",
		Total:          decimal.NewFromInt(150),
		Lines:          []domain.SaleLine{{UnitID: f.unitID, Quantity: 2, UnitPrice: decimal.NewFromInt(75)}},
		IdempotencyKey: "grpc-1",
	}

	var reply SaleReply
	require.NoError(t, invoke(ctx, conn, "RegisterSale", req, &reply))
	assert.NotZero(t, reply.SaleID)
	assert.Equal(t, 1, f.quantity(t))

	err := invoke(ctx, conn, "RegisterSale", req, &reply)
	assert.Equal(t, codes.AlreadyExists, status.Code(err))
	assert.Equal(t, 1, f.quantity(t))
}

func TestGRPC_RequiresToken(t *testing.T) {
	f := newFixture(t)
	conn := startGRPC(t, f)

	var reply MovementReply
	err := invoke(context.Background(), conn, "RecordEntry", &MovementRequest{UnitID: f.unitID, Quantity: 1}, &reply)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	err = invoke(authed("bogus"), conn, "RecordEntry", &MovementRequest{UnitID: f.unitID, Quantity: 1}, &reply)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
	assert.Equal(t, 3, f.quantity(t))
}

func TestGRPC_Health(t *testing.T) {
	f := newFixture(t)
	conn := startGRPC(t, f)

	resp, err := grpc_health_v1.NewHealthClient(conn).Check(context.Background(), &grpc_health_v1.HealthCheckRequest{Service: StockServiceName})
	require.NoError(t, err)
	assert.Equal(t, grpc_health_v1.HealthCheckResponse_SERVING, resp.Status)
}
