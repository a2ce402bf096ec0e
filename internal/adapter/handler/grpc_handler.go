package handler

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/rl1809/uniform-inventory/internal/core/domain"
	"github.com/rl1809/uniform-inventory/internal/core/service"
)

const StockServiceName = "uniforms.v1.StockService"

type MovementRequest struct {
	UnitID   int64 `json:"unit_id"`
	Quantity int   `json:"quantity"`
	ActorID  int64 `json:"actor_id"`
}

type MovementReply struct {
	ResultingStock int `json:"resulting_stock"`
}

type SaleRequest struct {
	CustomerName   string            `json:"customer_name"`
	ActorID        int64             `json:"actor_id"`
	Total          decimal.Decimal   `json:"total"`
	Lines          []domain.SaleLine `json:"lines"`
	IdempotencyKey string            `json:"idempotency_key"`
}

type SaleReply struct {
	SaleID int64 `json:"sale_id"`
}

type StockServiceServer interface {
	RecordEntry(context.Context, *MovementRequest) (*MovementReply, error)
	RecordExit(context.Context, *MovementRequest) (*MovementReply, error)
	RegisterSale(context.Context, *SaleRequest) (*SaleReply, error)
}

type GRPCHandler struct {
	stock *service.StockService
	sales *service.SaleCoordinator
}

func NewGRPCHandler(stock *service.StockService, sales *service.SaleCoordinator) *GRPCHandler {
	return &GRPCHandler{stock: stock, sales: sales}
}

func (h *GRPCHandler) RecordEntry(ctx context.Context, req *MovementRequest) (*MovementReply, error) {
	actorID, err := resolveActor(claimsFrom(ctx), req.ActorID)
	if err != nil {
		return nil, grpcError(err)
	}
	resulting, err := h.stock.RecordEntry(ctx, req.UnitID, req.Quantity, actorID)
	if err != nil {
		return nil, grpcError(err)
	}
	return &MovementReply{ResultingStock: resulting}, nil
}

func (h *GRPCHandler) RecordExit(ctx context.Context, req *MovementRequest) (*MovementReply, error) {
	actorID, err := resolveActor(claimsFrom(ctx), req.ActorID)
	if err != nil {
		return nil, grpcError(err)
	}
	resulting, err := h.stock.RecordExit(ctx, req.UnitID, req.Quantity, actorID)
	if err != nil {
		return nil, grpcError(err)
	}
	return &MovementReply{ResultingStock: resulting}, nil
}

func (h *GRPCHandler) RegisterSale(ctx context.Context, req *SaleRequest) (*SaleReply, error) {
	actorID, err := resolveActor(claimsFrom(ctx), req.ActorID)
	if err != nil {
		return nil, grpcError(err)
	}
	saleID, err := h.sales.RegisterSale(ctx, service.SaleRequest{
		CustomerName:   req.CustomerName,
		ActorID:        actorID,
		Total:          req.Total,
		Lines:          req.Lines,
		IdempotencyKey: req.IdempotencyKey,
	})
	if errors.Is(err, domain.ErrDuplicateRequest) {
		return nil, status.Errorf(codes.AlreadyExists, "sale already submitted as %d", saleID)
	}
	if err != nil {
		return nil, grpcError(err)
	}
	return &SaleReply{SaleID: saleID}, nil
}

func grpcError(err error) error {
	code := codes.Internal
	switch {
	case errors.Is(err, domain.ErrValidation):
		code = codes.InvalidArgument
	case errors.Is(err, domain.ErrUnauthorized):
		code = codes.Unauthenticated
	case errors.Is(err, domain.ErrNotFound):
		code = codes.NotFound
	case errors.Is(err, domain.ErrInsufficientStock):
		code = codes.FailedPrecondition
	case errors.Is(err, domain.ErrDuplicateRequest):
		code = codes.AlreadyExists
	}
	return status.Error(code, publicMessage(err))
}

// NewGRPCServer returns a server exposing StockService behind bearer-token
// auth, plus the standard health service.
func NewGRPCServer(h StockServiceServer, auth *service.AuthService, logger *zap.Logger) *grpc.Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := grpc.NewServer(grpc.ChainUnaryInterceptor(
		unaryLogger(logger),
		unaryAuth(auth),
	))
	s.RegisterService(&stockServiceDesc, h)

	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(s, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(StockServiceName, grpc_health_v1.HealthCheckResponse_SERVING)

	return s
}

func unaryAuth(auth *service.AuthService) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if !strings.HasPrefix(info.FullMethod, "/"+StockServiceName+"/") {
			return handler(ctx, req)
		}

		md, _ := metadata.FromIncomingContext(ctx)
		values := md.Get("authorization")
		if len(values) == 0 {
			return nil, status.Error(codes.Unauthenticated, "missing bearer token")
		}
		token, ok := strings.CutPrefix(values[0], "Bearer ")
		if !ok {
			return nil, status.Error(codes.Unauthenticated, "missing bearer token")
		}

		claims, err := auth.Verify(token)
		if err != nil {
			return nil, status.Error(codes.Unauthenticated, "invalid or expired token")
		}
		return handler(withClaims(ctx, claims), req)
	}
}

func unaryLogger(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		resp, err := handler(ctx, req)
		code := status.Code(err)
		if code == codes.Internal || code == codes.Unknown {
			logger.Error("grpc call failed", zap.String("method", info.FullMethod), zap.Error(err))
		} else {
			logger.Info("grpc call", zap.String("method", info.FullMethod), zap.String("code", code.String()))
		}
		return resp, err
	}
}

var stockServiceDesc = grpc.ServiceDesc{
	ServiceName: StockServiceName,
	HandlerType: (*StockServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "RecordEntry", Handler: recordEntryHandler},
		{MethodName: "RecordExit", Handler: recordExitHandler},
		{MethodName: "RegisterSale", Handler: registerSaleHandler},
	},
	Streams: []grpc.StreamDesc{},
}

func recordEntryHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(MovementRequest)
	if err := dec(in); err != nil {
		return nil, status.Error(codes.InvalidArgument, "invalid request body")
	}
	if interceptor == nil {
		return srv.(StockServiceServer).RecordEntry(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + StockServiceName + "/RecordEntry"}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(StockServiceServer).RecordEntry(ctx, req.(*MovementRequest))
	})
}

func recordExitHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(MovementRequest)
	if err := dec(in); err != nil {
		return nil, status.Error(codes.InvalidArgument, "invalid request body")
	}
	if interceptor == nil {
		return srv.(StockServiceServer).RecordExit(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + StockServiceName + "/RecordExit"}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(StockServiceServer).RecordExit(ctx, req.(*MovementRequest))
	})
}

func registerSaleHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(SaleRequest)
	if err := dec(in); err != nil {
		return nil, status.Error(codes.InvalidArgument, "invalid request body")
	}
	if interceptor == nil {
		return srv.(StockServiceServer).RegisterSale(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + StockServiceName + "/RegisterSale"}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(StockServiceServer).RegisterSale(ctx, req.(*SaleRequest))
	})
}
