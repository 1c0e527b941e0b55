package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"storefront/internal/cart"
	"storefront/internal/orders"
	"storefront/pkg/ctxmanage"
	"storefront/pkg/logkey"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	CartItemServiceName = "storefront.v1.CartItemService"

	getCartDetailsMethod = "/" + CartItemServiceName + "/GetCartDetails"
	listOrdersMethod     = "/" + CartItemServiceName + "/ListOrders"
)

// CartItemServiceServer is the internal read API. Requests and responses are
// google.protobuf.Struct values shaped like the HTTP JSON bodies.
type CartItemServiceServer interface {
	GetCartDetails(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListOrders(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

var CartItemServiceDesc = grpc.ServiceDesc{
	ServiceName: CartItemServiceName,
	HandlerType: (*CartItemServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetCartDetails", Handler: getCartDetailsHandler},
		{MethodName: "ListOrders", Handler: listOrdersHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "storefront/v1/cart.proto",
}

func getCartDetailsHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CartItemServiceServer).GetCartDetails(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: getCartDetailsMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(CartItemServiceServer).GetCartDetails(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func listOrdersHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CartItemServiceServer).ListOrders(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: listOrdersMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(CartItemServiceServer).ListOrders(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

type cartItemService struct {
	cartConf *cart.Conf
	o        *orders.Conf
	loc      *time.Location
}

func NewCartItemServiceHandler(cartConf *cart.Conf, o *orders.Conf) CartItemServiceServer {
	return &cartItemService{cartConf: cartConf, o: o, loc: orders.IST}
}

// RegisterCartItemService wires srv into s.
func RegisterCartItemService(s grpc.ServiceRegistrar, srv CartItemServiceServer) {
	s.RegisterService(&CartItemServiceDesc, srv)
}

func (c *cartItemService) GetCartDetails(ctx context.Context, request *structpb.Struct) (*structpb.Struct, error) {
	userID := stringField(request, "user_id")
	if userID == "" {
		return nil, status.Error(codes.InvalidArgument, "user_id is required")
	}
	return toStruct(c.cartConf.GetActiveCartItems(userID))
}

func (c *cartItemService) ListOrders(ctx context.Context, request *structpb.Struct) (*structpb.Struct, error) {
	userID := stringField(request, "user_id")
	if userID == "" {
		return nil, status.Error(codes.InvalidArgument, "user_id is required")
	}
	list, err := c.o.ListOrders(ctx)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to list orders: %v", err)
	}
	st := stringField(request, "status")
	if st != "" && st != orders.StatusAll && !orders.Status(st).Valid() {
		return nil, status.Errorf(codes.InvalidArgument, "unknown status %q", st)
	}
	shown := orders.FilterOrders(list, orders.Filter{
		UserID: userID,
		Status: st,
		Query:  stringField(request, "query"),
	}, c.loc)
	return toStruct(map[string]any{"orders": shown})
}

func stringField(s *structpb.Struct, key string) string {
	if s == nil {
		return ""
	}
	return s.GetFields()[key].GetStringValue()
}

// toStruct converts v through its JSON form so gRPC and HTTP clients see the
// same field names.
func toStruct(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encoding response: %v", err)
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(b, out); err != nil {
		return nil, status.Errorf(codes.Internal, "encoding response: %v", err)
	}
	return out, nil
}

// UnaryLogger carries the caller's trace id (x-trace-id metadata, or a new
// one) into the handler context and logs each call.
func UnaryLogger() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		traceId := ""
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if v := md.Get("x-trace-id"); len(v) > 0 {
				traceId = v[0]
			}
		}
		if traceId == "" {
			traceId = uuid.NewString()
		}
		ctx = ctxmanage.WithTraceId(ctx, traceId)

		start := time.Now()
		resp, err := handler(ctx, req)
		attrs := []any{
			slog.String(logkey.TraceID, traceId),
			slog.String("Method", info.FullMethod),
			slog.String("Code", status.Code(err).String()),
			slog.Duration("Latency", time.Since(start)),
		}
		if err != nil {
			attrs = append(attrs, slog.String(logkey.ERROR, err.Error()))
		}
		slog.Info("grpc call completed", attrs...)
		return resp, err
	}
}

// CartItemServiceClient calls a remote CartItemService.
type CartItemServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewCartItemServiceClient(cc grpc.ClientConnInterface) *CartItemServiceClient {
	return &CartItemServiceClient{cc: cc}
}

func (c *CartItemServiceClient) GetCartDetails(ctx context.Context, userID string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(map[string]any{"user_id": userID})
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, getCartDetailsMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *CartItemServiceClient) ListOrders(ctx context.Context, userID, orderStatus, query string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(map[string]any{"user_id": userID, "status": orderStatus, "query": query})
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, listOrdersMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
