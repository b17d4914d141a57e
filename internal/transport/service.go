package transport

import (
	"context"
	"fmt"
	"net"

	"github.com/jhump/protoreflect/dynamic"
	"golang.org/x/sync/singleflight"
	"google.golang.org/grpc"

	"github.com/funvibe/funcps/internal/value"
	"github.com/funvibe/funcps/internal/wire"
)

// ResumeFunc resolves a resumed suspension (a continuation name and its
// saturated arguments) to a final value.Object — ordinarily by handing
// it to internal/runtime.NewLoop and driving that to completion, exactly
// the way a local resume would, just reached over the network instead of
// in-process.
type ResumeFunc func(ctx context.Context, s wire.Suspension) (value.Object, error)

// Server implements CheckpointService.Resume over grpc.Server, wrapping
// it the way builtins_grpc.go's GrpcServerObject wraps a *grpc.Server.
type Server struct {
	grpcServer *grpc.Server
	resume     ResumeFunc
	inflight   singleflight.Group
}

// NewServer builds a Server whose Resume RPC is answered by resume.
func NewServer(resume ResumeFunc) *Server {
	s := &Server{resume: resume}
	s.grpcServer = grpc.NewServer()
	s.grpcServer.RegisterService(s.serviceDesc(), s)
	return s
}

// Serve blocks accepting connections on lis until it errors or Stop is
// called, the same blocking serve loop builtinGrpcServe drives.
func (s *Server) Serve(lis net.Listener) error { return s.grpcServer.Serve(lis) }

// Stop gracefully stops the underlying grpc.Server.
func (s *Server) Stop() { s.grpcServer.GracefulStop() }

func (s *Server) serviceDesc() *grpc.ServiceDesc {
	return &grpc.ServiceDesc{
		ServiceName: ServiceName,
		HandlerType: (*any)(nil),
		Methods: []grpc.MethodDesc{{
			MethodName: ResumeMethod,
			Handler:    s.handleResume,
		}},
		Metadata: "funcps/checkpoint.proto",
	}
}

func (s *Server) handleResume(_ any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	req := dynamic.NewMessage(schemaOnce.suspension)
	if err := dec(req); err != nil {
		return nil, err
	}
	handler := func(ctx context.Context, req any) (any, error) {
		msg := req.(*dynamic.Message)
		susp, err := suspensionFromMessage(msg)
		if err != nil {
			return nil, err
		}
		// Two clients racing to resume the same suspension (same
		// continuation and arguments; a retried RPC after a slow response,
		// say) land on the same in-flight call instead of driving the
		// underlying continuation twice.
		key, err := wire.Encode(susp)
		if err != nil {
			return nil, err
		}
		resultAny, err, _ := s.inflight.Do(string(key), func() (any, error) {
			return s.resume(ctx, susp)
		})
		if err != nil {
			return nil, err
		}
		return valueToMessage(resultAny.(value.Object))
	}
	if interceptor == nil {
		return handler(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: s, FullMethod: "/" + ServiceName + "/" + ResumeMethod}
	return interceptor(ctx, req, info, handler)
}

// Client dials a remote Server and invokes its Resume RPC.
type Client struct {
	conn *grpc.ClientConn
}

// Dial connects to a CheckpointService at addr.
func Dial(addr string, opts ...grpc.DialOption) (*Client, error) {
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("transport: dialing %s: %w", addr, err)
	}
	return &Client{conn: conn}, nil
}

// Close tears down the underlying connection.
func (c *Client) Close() error { return c.conn.Close() }

// Resume ships s to the remote CheckpointService's Resume RPC and
// returns the value it resolved to.
func (c *Client) Resume(ctx context.Context, s wire.Suspension) (value.Object, error) {
	req, err := suspensionToMessage(s)
	if err != nil {
		return nil, err
	}
	resp := dynamic.NewMessage(schemaOnce.resumed)
	if err := c.conn.Invoke(ctx, "/"+ServiceName+"/"+ResumeMethod, req, resp,
		grpc.CallContentSubtype(dynamicCodecName)); err != nil {
		return nil, fmt.Errorf("transport: Resume: %w", err)
	}
	return messageToValue(resp)
}

func suspensionToMessage(s wire.Suspension) (*dynamic.Message, error) {
	argsBlob, err := wire.EncodeArgs(s.Args)
	if err != nil {
		return nil, err
	}
	msg := dynamic.NewMessage(schemaOnce.suspension)
	msg.SetFieldByName("continuation_id", s.ContinuationID)
	msg.SetFieldByName("flags", uint32(s.Flags))
	msg.SetFieldByName("args", argsBlob)
	return msg, nil
}

func suspensionFromMessage(msg *dynamic.Message) (wire.Suspension, error) {
	id, _ := msg.GetFieldByName("continuation_id").(string)
	flags, _ := msg.GetFieldByName("flags").(uint32)
	blob, _ := msg.GetFieldByName("args").([]byte)
	args, err := wire.DecodeArgs(blob)
	if err != nil {
		return wire.Suspension{}, err
	}
	return wire.Suspension{ContinuationID: id, Flags: uint8(flags), Args: args}, nil
}

func valueToMessage(v value.Object) (*dynamic.Message, error) {
	blob, err := wire.EncodeArgs([]value.Object{v})
	if err != nil {
		return nil, err
	}
	msg := dynamic.NewMessage(schemaOnce.resumed)
	msg.SetFieldByName("payload", blob)
	return msg, nil
}

func messageToValue(msg *dynamic.Message) (value.Object, error) {
	blob, _ := msg.GetFieldByName("payload").([]byte)
	args, err := wire.DecodeArgs(blob)
	if err != nil {
		return nil, err
	}
	if len(args) != 1 {
		return nil, fmt.Errorf("transport: expected exactly one resumed value, got %d", len(args))
	}
	return args[0], nil
}
