package rpc

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/flowstate/reassigner/pkg/reassign"
)

// Client implements reassign.SchedulerSink over a gRPC connection to a
// Server, so the Assignment Driver can push TaskStateSnapshot values to a
// remote scheduler without depending on gRPC itself.
type Client struct {
	cc      grpc.ClientConnInterface
	timeout time.Duration
}

// NewClient wraps an already-established connection. timeout bounds each
// SetInitialState call; zero means no per-call deadline beyond the parent
// context's.
func NewClient(cc grpc.ClientConnInterface, timeout time.Duration) *Client {
	return &Client{cc: cc, timeout: timeout}
}

// Dial opens a gRPC connection to addr and wraps it in a Client, using the
// gob codec this package registers instead of protobuf. The connection is
// plaintext unless opts supply other transport credentials.
func Dial(addr string, timeout time.Duration, opts ...grpc.DialOption) (*Client, *grpc.ClientConn, error) {
	dialOpts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(codecName)),
	}, opts...)

	conn, err := grpc.NewClient(addr, dialOpts...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to dial scheduler sink at %s: %w", addr, err)
	}
	return NewClient(conn, timeout), conn, nil
}

// SetInitialState implements reassign.SchedulerSink.
func (c *Client) SetInitialState(vertex reassign.VertexId, subtask reassign.SubtaskIndex, snapshot reassign.TaskStateSnapshot, restoreCheckpointID uint64) error {
	ctx := context.Background()
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req := &SetInitialStateRequest{
		Vertex:              string(vertex),
		Subtask:             int32(subtask),
		RestoreCheckpointID: restoreCheckpointID,
		Snapshot:            toTaskStateSnapshotMsg(snapshot),
	}
	out := new(SetInitialStateResponse)

	return c.cc.Invoke(ctx, "/"+serviceName+"/SetInitialState", req, out)
}

var _ reassign.SchedulerSink = (*Client)(nil)
