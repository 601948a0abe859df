// Package grpcserver exposes trade claiming to trusted services over gRPC.
// Messages are google.protobuf.Struct so no generated code is needed.
package grpcserver

import (
	"context"
	"log/slog"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/kinger55555/thenailcasino/internal/auth"
	"github.com/kinger55555/thenailcasino/internal/economy"
	"github.com/kinger55555/thenailcasino/internal/errs"
)

const ServiceName = "thenailcasino.trade.v1.TradeService"

// TradeServiceServer is the server API of the trade service.
type TradeServiceServer interface {
	ClaimTrade(context.Context, *structpb.Struct) (*structpb.Struct, error)
	InspectTrade(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*TradeServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ClaimTrade", Handler: unary("ClaimTrade", TradeServiceServer.ClaimTrade)},
		{MethodName: "InspectTrade", Handler: unary("InspectTrade", TradeServiceServer.InspectTrade)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "thenailcasino/trade/v1/trade.proto",
}

type method func(TradeServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unary(name string, call method) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(TradeServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + name}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(TradeServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

type TradeServer struct {
	econ *economy.Service
	log  *slog.Logger
}

func NewTradeServer(econ *economy.Service, log *slog.Logger) *TradeServer {
	if log == nil {
		log = slog.Default()
	}
	return &TradeServer{econ: econ, log: log.With("component", "grpc")}
}

// Register adds the trade service to s.
func Register(s *grpc.Server, srv TradeServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// NewServer builds a gRPC server that authenticates every call.
func NewServer(tokens *auth.TokenManager, srv TradeServiceServer, opts ...grpc.ServerOption) *grpc.Server {
	opts = append(opts, grpc.UnaryInterceptor(AuthInterceptor(tokens)))
	s := grpc.NewServer(opts...)
	Register(s, srv)
	return s
}

type userKey struct{}

// AuthInterceptor validates the bearer token from the authorization metadata.
func AuthInterceptor(tokens *auth.TokenManager) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		md, _ := metadata.FromIncomingContext(ctx)
		var header string
		if v := md.Get("authorization"); len(v) > 0 {
			header = v[0]
		}
		tok, err := auth.FromHeader(header)
		if err != nil {
			return nil, status.Error(codes.Unauthenticated, err.Error())
		}
		sub, err := tokens.Validate(tok)
		if err != nil {
			return nil, status.Error(codes.Unauthenticated, "invalid token")
		}
		return handler(context.WithValue(ctx, userKey{}, sub), req)
	}
}

func caller(ctx context.Context) (string, error) {
	sub, _ := ctx.Value(userKey{}).(string)
	if sub == "" {
		return "", status.Error(codes.Unauthenticated, "no caller")
	}
	return sub, nil
}

func code(in *structpb.Struct) (string, error) {
	c := strings.TrimSpace(in.GetFields()["code"].GetStringValue())
	if c == "" {
		return "", status.Error(codes.InvalidArgument, "code is required")
	}
	return c, nil
}

func (s *TradeServer) ClaimTrade(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	user, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	c, err := code(in)
	if err != nil {
		return nil, err
	}
	owned, err := s.econ.ClaimTrade(ctx, user, c)
	if err != nil {
		return nil, s.toStatus(err)
	}
	return structpb.NewStruct(map[string]any{
		"owned_nail_id": owned.ID,
		"nail_id":       owned.NailID,
		"is_dream":      owned.IsDream,
	})
}

func (s *TradeServer) InspectTrade(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	user, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	c, err := code(in)
	if err != nil {
		return nil, err
	}
	link, nail, err := s.econ.InspectTradeLink(ctx, user, c)
	if err != nil {
		return nil, s.toStatus(err)
	}
	return structpb.NewStruct(map[string]any{
		"code":     link.Code,
		"from":     link.FromUserID,
		"nail_id":  nail.ID,
		"name":     nail.Name,
		"rarity":   string(nail.Rarity),
		"is_dream": link.IsDream,
	})
}

var codeByKind = map[errs.Kind]codes.Code{
	errs.KindValidation:    codes.InvalidArgument,
	errs.KindNotFound:      codes.NotFound,
	errs.KindConflict:      codes.AlreadyExists,
	errs.KindForbidden:     codes.PermissionDenied,
	errs.KindTransient:     codes.Unavailable,
	errs.KindConfiguration: codes.FailedPrecondition,
}

func (s *TradeServer) toStatus(err error) error {
	c, ok := codeByKind[errs.KindOf(err)]
	if !ok {
		s.log.Error("trade call failed", "err", err)
		return status.Error(codes.Internal, "internal error")
	}
	return status.Error(c, errs.Message(err))
}
