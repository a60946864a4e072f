package recognizer

import (
	"context"
	"log/slog"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/barakem/voicegame/internal/audio"
)

// RecognizerServer is the server side of the Recognizer service.
type RecognizerServer interface {
	Transcribe(ctx context.Context, wav *wrapperspb.BytesValue) (*structpb.Struct, error)
}

// ServiceDesc describes the Recognizer service for grpc.Server registration.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*RecognizerServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Transcribe", Handler: transcribeHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "voicegame/recognizer/v1/recognizer.proto",
}

// RegisterServer attaches srv to s.
func RegisterServer(s grpc.ServiceRegistrar, srv RecognizerServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func transcribeHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.BytesValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RecognizerServer).Transcribe(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: transcribeMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(RecognizerServer).Transcribe(ctx, req.(*wrapperspb.BytesValue))
	}
	return interceptor(ctx, in, info, handler)
}

// BackendServer exposes any Backend as a RecognizerServer.
type BackendServer struct {
	Backend Backend
	Logger  *slog.Logger
}

// Transcribe implements RecognizerServer.
func (s BackendServer) Transcribe(ctx context.Context, wav *wrapperspb.BytesValue) (*structpb.Struct, error) {
	frame, err := audio.DecodeWAVBytes(wav.GetValue())
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "decode wav: %v", err)
	}

	language := incomingValue(ctx, MetadataLanguage)
	text, err := s.Backend.Transcribe(ctx, frame, language)
	if err != nil {
		if s.Logger != nil {
			s.Logger.Warn("backend transcription failed",
				"language", language,
				"error_kind", string(KindOf(err)),
				"error", err.Error(),
			)
		}
		return nil, statusFor(err)
	}

	return SegmentsResponse(text)
}

// SegmentsResponse builds the response message for one transcript.
func SegmentsResponse(segments ...string) (*structpb.Struct, error) {
	values := make([]any, 0, len(segments))
	for _, segment := range segments {
		if strings.TrimSpace(segment) == "" {
			continue
		}
		values = append(values, segment)
	}
	return structpb.NewStruct(map[string]any{"segments": values})
}

// statusFor is the inverse of classifyStatus.
func statusFor(err error) error {
	switch KindOf(err) {
	case KindNoSpeech:
		return status.Error(codes.NotFound, err.Error())
	case KindNetwork:
		return status.Error(codes.Unavailable, err.Error())
	case KindQuotaOrAuth:
		return status.Error(codes.ResourceExhausted, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

func incomingValue(ctx context.Context, key string) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	values := md.Get(key)
	if len(values) == 0 {
		return ""
	}
	return values[0]
}
