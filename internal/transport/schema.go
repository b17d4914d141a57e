// Package transport ships a suspended computation to a remote worker for
// resumption, grounded on
// _examples/funvibe-funxy/internal/evaluator/builtins_grpc.go's
// grpc.Server/grpc.ClientConn wrapping and its protoreflect/dynamic use
// for ad hoc proto schemas built at runtime instead of from a compiled
// .proto file — the same need this package has, since a Suspension's
// shape depends on whichever function was compiled, not a fixed schema
// known ahead of time.
package transport

import (
	"github.com/jhump/protoreflect/desc"
	"github.com/jhump/protoreflect/desc/builder"
	"google.golang.org/protobuf/types/descriptorpb"
)

// ServiceName and method name of the one RPC this package exposes.
const (
	ServiceName = "funcps.CheckpointService"
	ResumeMethod = "Resume"
)

// schema holds the dynamically constructed descriptors for the
// SuspensionProto/ValueProto messages and the CheckpointService they
// flow through, built once at package init rather than generated from a
// checked-in .proto file — builtins_grpc.go's builtinGrpcLoadProto takes
// a .proto source string at runtime for the same reason: the embedding
// host has no build step to run protoc in.
type schema struct {
	suspension *desc.MessageDescriptor
	resumed    *desc.MessageDescriptor
	service    *desc.ServiceDescriptor
}

var schemaOnce = buildSchema()

func buildSchema() *schema {
	suspensionMsg := builder.NewMessage("SuspensionProto").
		AddField(builder.NewField("continuation_id", builder.FieldTypeString()).SetNumber(1)).
		AddField(builder.NewField("flags", builder.FieldTypeScalar(descriptorpb.FieldDescriptorProto_TYPE_UINT32)).SetNumber(2)).
		AddField(builder.NewField("args", builder.FieldTypeBytes()).SetNumber(3))

	resumedMsg := builder.NewMessage("ValueProto").
		AddField(builder.NewField("payload", builder.FieldTypeBytes()).SetNumber(1))

	method := builder.NewMethod(ResumeMethod,
		builder.RpcTypeMessage(suspensionMsg, false),
		builder.RpcTypeMessage(resumedMsg, false))

	service := builder.NewService("CheckpointService").AddMethod(method)

	file := builder.NewFile("funcps/checkpoint.proto").
		SetPackageName("funcps").
		AddMessage(suspensionMsg).
		AddMessage(resumedMsg).
		AddService(service)

	fd, err := file.Build()
	if err != nil {
		panic("transport: building dynamic checkpoint schema: " + err.Error())
	}

	return &schema{
		suspension: fd.FindMessage("funcps.SuspensionProto"),
		resumed:    fd.FindMessage("funcps.ValueProto"),
		service:    fd.FindService(ServiceName),
	}
}
