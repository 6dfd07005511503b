package recorder

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"code.fbi.h-da.de/distributed-systems/sensorsim/pkg/types"
)

const serviceName = "sensorsim.recorder.v1.Recorder"

// Full method names of the recorder service.
const (
	RecordMethod       = "/" + serviceName + "/Record"
	ListMethod         = "/" + serviceName + "/List"
	ListBySensorMethod = "/" + serviceName + "/ListBySensor"
	DeleteMethod       = "/" + serviceName + "/Delete"
)

// Server is the recorder gRPC API. Readings travel as structpb.Struct
// objects with the fields name, value, units, topic and received_at.
type Server interface {
	Record(context.Context, *structpb.Struct) (*emptypb.Empty, error)
	List(context.Context, *emptypb.Empty) (*structpb.ListValue, error)
	ListBySensor(context.Context, *wrapperspb.StringValue) (*structpb.ListValue, error)
	Delete(context.Context, *wrapperspb.StringValue) (*wrapperspb.Int64Value, error)
}

// Service implements Server on top of a Store.
type Service struct {
	store  *Store
	logger *slog.Logger
	now    func() time.Time
}

// NewService creates a recorder keeping at most limit readings.
func NewService(limit int, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: NewStore(limit), logger: logger, now: time.Now}
}

// Store exposes the underlying store.
func (s *Service) Store() *Store { return s.store }

// Register attaches the service to a gRPC server.
func Register(srv *grpc.Server, impl Server) {
	srv.RegisterService(&serviceDesc, impl)
}

func (s *Service) Record(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error) {
	rec, err := recordFromStruct(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if rec.ReceivedAt.IsZero() {
		rec.ReceivedAt = s.now()
	}

	s.store.Add(rec)
	s.logger.Debug("stored reading", "sensor", rec.Name, "value", rec.Value, "units", rec.Units, "topic", rec.Topic)
	return &emptypb.Empty{}, nil
}

func (s *Service) List(ctx context.Context, _ *emptypb.Empty) (*structpb.ListValue, error) {
	return recordsToList(s.store.All())
}

func (s *Service) ListBySensor(ctx context.Context, req *wrapperspb.StringValue) (*structpb.ListValue, error) {
	if req.GetValue() == "" {
		return &structpb.ListValue{}, nil
	}
	return recordsToList(s.store.BySensor(req.GetValue()))
}

func (s *Service) Delete(ctx context.Context, req *wrapperspb.StringValue) (*wrapperspb.Int64Value, error) {
	if req.GetValue() == "" {
		return nil, status.Error(codes.InvalidArgument, "missing sensor name")
	}
	n := s.store.Delete(req.GetValue())
	return wrapperspb.Int64(int64(n)), nil
}

func recordToStruct(r Record) (*structpb.Struct, error) {
	fields := map[string]any{
		"name":  r.Name,
		"units": r.Units,
		"topic": r.Topic,
		"value": nil,
	}
	if r.Defined() {
		fields["value"] = r.Value
	}
	if !r.ReceivedAt.IsZero() {
		fields["received_at"] = r.ReceivedAt.UTC().Format(time.RFC3339Nano)
	}
	return structpb.NewStruct(fields)
}

func recordFromStruct(s *structpb.Struct) (Record, error) {
	fields := s.GetFields()
	name := fields["name"].GetStringValue()
	if name == "" {
		return Record{}, fmt.Errorf("missing sensor name")
	}

	rec := Record{
		Reading: types.Reading{Name: name, Value: math.NaN(), Units: fields["units"].GetStringValue()},
		Topic:   fields["topic"].GetStringValue(),
	}
	if v, ok := fields["value"].GetKind().(*structpb.Value_NumberValue); ok {
		rec.Value = v.NumberValue
	}
	if ts := fields["received_at"].GetStringValue(); ts != "" {
		t, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return Record{}, fmt.Errorf("invalid received_at: %w", err)
		}
		rec.ReceivedAt = t
	}
	return rec, nil
}

func recordsToList(records []Record) (*structpb.ListValue, error) {
	out := &structpb.ListValue{Values: make([]*structpb.Value, 0, len(records))}
	for _, r := range records {
		s, err := recordToStruct(r)
		if err != nil {
			return nil, status.Error(codes.Internal, err.Error())
		}
		out.Values = append(out.Values, structpb.NewStructValue(s))
	}
	return out, nil
}

func recordsFromList(list *structpb.ListValue) ([]Record, error) {
	out := make([]Record, 0, len(list.GetValues()))
	for _, v := range list.GetValues() {
		rec, err := recordFromStruct(v.GetStructValue())
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func recordHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(Server).Record(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: RecordMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(Server).Record(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func listHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(Server).List(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ListMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(Server).List(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func listBySensorHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(Server).ListBySensor(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ListBySensorMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(Server).ListBySensor(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func deleteHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(Server).Delete(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: DeleteMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(Server).Delete(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*Server)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Record", Handler: recordHandler},
		{MethodName: "List", Handler: listHandler},
		{MethodName: "ListBySensor", Handler: listBySensorHandler},
		{MethodName: "Delete", Handler: deleteHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "recorder",
}
