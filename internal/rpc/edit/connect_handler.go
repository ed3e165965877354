package edit

import (
	"context"
	"errors"
	"net/http"

	"github.com/bufbuild/connect-go"

	"github.com/animus-coder/visualedit/internal/observability"
	"github.com/animus-coder/visualedit/internal/rpc"
	"github.com/animus-coder/visualedit/internal/rpc/connectjson"
)

const ConnectApplyProcedure = "/visualedit.v1.EditService/Apply"

// NewConnectHandler builds a Connect server-stream handler for Apply.
func NewConnectHandler(runner Runner, metrics *observability.Metrics) (string, http.Handler) {
	h := &connectApplyHandler{runner: runner, metrics: metrics}
	return ConnectApplyProcedure, connect.NewServerStreamHandler(ConnectApplyProcedure, h.handle, connect.WithCodec(connectjson.Codec{}))
}

type connectApplyHandler struct {
	runner  Runner
	metrics *observability.Metrics
}

func (h *connectApplyHandler) handle(ctx context.Context, req *connect.Request[rpc.EditRequest], stream *connect.ServerStream[rpc.EditEvent]) error {
	h.metrics.IncActiveSessions("connect")
	defer h.metrics.DecActiveSessions("connect")

	if req.Msg == nil {
		h.metrics.RecordTransportError("connect", "missing_request")
		return connect.NewError(connect.CodeInvalidArgument, errors.New("request body is required"))
	}
	if err := req.Msg.Request.Validate(); err != nil {
		h.metrics.RecordTransportError("connect", "invalid_request")
		return connect.NewError(connect.CodeInvalidArgument, err)
	}
	if h.runner == nil {
		return connect.NewError(connect.CodeUnavailable, errors.New("runner unavailable"))
	}

	events, err := h.runner.Run(ctx, *req.Msg)
	if err != nil {
		h.metrics.RecordTransportError("connect", "runner_error")
		return connect.NewError(connect.CodeInternal, err)
	}

	for ev := range events {
		ev := ev
		if err := stream.Send(&ev); err != nil {
			h.metrics.RecordTransportError("connect", "send")
			return err
		}
	}
	return nil
}
