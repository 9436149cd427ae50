package rpc

import (
	"context"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/flowstate/reassigner/pkg/reassign"
)

// Server adapts a reassign.SchedulerSink (typically the coordinator's
// in-process sink forwarding to the real task deployer) to SchedulerSinkServer.
type Server struct {
	sink reassign.SchedulerSink
}

// NewServer wraps sink for gRPC registration.
func NewServer(sink reassign.SchedulerSink) *Server {
	return &Server{sink: sink}
}

func (s *Server) SetInitialState(ctx context.Context, req *SetInitialStateRequest) (*SetInitialStateResponse, error) {
	if req.Vertex == "" {
		return nil, status.Error(codes.InvalidArgument, "vertex must not be empty")
	}
	snapshot := fromTaskStateSnapshotMsg(req.Snapshot)
	err := s.sink.SetInitialState(
		reassign.VertexId(req.Vertex),
		reassign.SubtaskIndex(req.Subtask),
		snapshot,
		req.RestoreCheckpointID,
	)
	if err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("set initial state failed: %v", err))
	}
	return &SetInitialStateResponse{}, nil
}
