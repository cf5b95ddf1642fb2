package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"shamshouse/internal/hostelapi"
	"shamshouse/internal/metrics"
	"shamshouse/internal/models"
	"shamshouse/internal/service"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// Quoter prices stays and lists free rooms. *service.CatalogService
// satisfies it.
type Quoter interface {
	Quote(ctx context.Context, req service.QuoteRequest) (*service.QuoteResult, error)
	Availability(ctx context.Context, checkIn, checkOut models.Date, roomType models.RoomType) ([]models.Room, error)
}

const (
	quoteServiceName   = "shamshouse.quote.v1.QuoteService"
	quoteMethod        = "/" + quoteServiceName + "/Quote"
	availabilityMethod = "/" + quoteServiceName + "/Availability"
)

// quoteRequest is the wire form shared by the HTTP body and the gRPC struct.
type quoteRequest struct {
	RoomID     int64   `json:"roomId"`
	CheckIn    string  `json:"checkIn"`
	CheckOut   string  `json:"checkOut"`
	BedCount   int     `json:"bedCount"`
	ServiceIDs []int64 `json:"serviceIds"`
	PackID     *int64  `json:"packId"`
}

func (r quoteRequest) toService() (service.QuoteRequest, error) {
	out := service.QuoteRequest{
		RoomID:     r.RoomID,
		BedCount:   r.BedCount,
		ServiceIDs: r.ServiceIDs,
		PackID:     r.PackID,
	}
	var err error
	if out.CheckIn, err = parseDateField("checkIn", r.CheckIn); err != nil {
		return out, err
	}
	if out.CheckOut, err = parseDateField("checkOut", r.CheckOut); err != nil {
		return out, err
	}
	return out, nil
}

type quoteResponse struct {
	Nights    int     `json:"nights"`
	Total     float64 `json:"total"`
	Formatted string  `json:"formatted"`
}

type availableRoom struct {
	ID            int64           `json:"id"`
	RoomNumber    string          `json:"roomNumber"`
	RoomType      models.RoomType `json:"roomType"`
	PricePerNight float64         `json:"pricePerNight"`
	FreeBeds      int             `json:"freeBeds"`
}

func toAvailableRooms(rooms []models.Room) []availableRoom {
	out := make([]availableRoom, 0, len(rooms))
	for _, r := range rooms {
		out = append(out, availableRoom{
			ID:            r.ID,
			RoomNumber:    r.RoomNumber,
			RoomType:      r.RoomType,
			PricePerNight: r.PricePerNight,
			FreeBeds:      len(r.Beds),
		})
	}
	return out
}

var errBadRequest = errors.New("bad request")

func parseDateField(name, raw string) (models.Date, error) {
	if strings.TrimSpace(raw) == "" {
		return models.Date{}, fmt.Errorf("%w: %s is required", errBadRequest, name)
	}
	d, err := models.ParseDate(raw)
	if err != nil {
		return models.Date{}, fmt.Errorf("%w: %s: %v", errBadRequest, name, err)
	}
	return d, nil
}

// QuoteService serves shamshouse.quote.v1.QuoteService. Requests and
// responses are google.protobuf.Struct so no generated code is involved.
type QuoteService struct {
	quotes Quoter
}

func NewQuoteService(quotes Quoter) *QuoteService {
	return &QuoteService{quotes: quotes}
}

func (s *QuoteService) Quote(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req quoteRequest
	if err := decodeStruct(in, &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	sreq, err := req.toService()
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	res, err := s.quotes.Quote(ctx, sreq)
	if err != nil {
		return nil, grpcError(err)
	}
	metrics.ObserveQuote(res.Total)
	return encodeStruct(quoteResponse{Nights: res.Nights, Total: res.Total, Formatted: res.Formatted})
}

func (s *QuoteService) Availability(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	fields := in.GetFields()
	checkIn, err := parseDateField("checkIn", fields["checkIn"].GetStringValue())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	checkOut, err := parseDateField("checkOut", fields["checkOut"].GetStringValue())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	roomType, err := parseRoomType(fields["roomType"].GetStringValue())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	rooms, err := s.quotes.Availability(ctx, checkIn, checkOut, roomType)
	if err != nil {
		return nil, grpcError(err)
	}
	return encodeStruct(map[string]any{"rooms": toAvailableRooms(rooms)})
}

func parseRoomType(raw string) (models.RoomType, error) {
	raw = strings.ToUpper(strings.TrimSpace(raw))
	if raw == "" || raw == string(service.RoomTypeAll) {
		return "", nil
	}
	t := models.RoomType(raw)
	if !t.Valid() {
		return "", fmt.Errorf("%w: unknown roomType %q", errBadRequest, raw)
	}
	return t, nil
}

// decodeStruct maps a Struct onto a JSON-tagged Go value.
func decodeStruct(in *structpb.Struct, out any) error {
	raw, err := json.Marshal(in.AsMap())
	if err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

func encodeStruct(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, status.Error(codes.Internal, "encode response")
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, status.Error(codes.Internal, "encode response")
	}
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Error(codes.Internal, "encode response")
	}
	return out, nil
}

func grpcError(err error) error {
	switch {
	case isClientError(err):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, hostelapi.ErrNotFound):
		return status.Error(codes.NotFound, hostelapi.MessageOr(err, "not found"))
	default:
		return status.Error(codes.Unavailable, "hostel backend unavailable")
	}
}

func isClientError(err error) bool {
	return errors.Is(err, errBadRequest) ||
		errors.Is(err, service.ErrInvalidQuote) ||
		errors.Is(err, service.ErrUnknownService) ||
		errors.Is(err, service.ErrPackInactive)
}

// quoteServer is the handler type checked by grpc.RegisterService.
type quoteServer interface {
	Quote(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Availability(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

var quoteServiceDesc = grpc.ServiceDesc{
	ServiceName: quoteServiceName,
	HandlerType: (*quoteServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Quote", Handler: quoteHandler},
		{MethodName: "Availability", Handler: availabilityHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "shamshouse/quote/v1/quote.proto",
}

func quoteHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(quoteServer).Quote(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: quoteMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(quoteServer).Quote(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func availabilityHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(quoteServer).Availability(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: availabilityMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(quoteServer).Availability(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}
