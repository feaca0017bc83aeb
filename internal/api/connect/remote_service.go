package connect

import (
	"context"
	"net/http"
	"sync"

	"connectrpc.com/connect"
	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	zlog "github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/osa030/vidbox/internal/app/dispatch"
	"github.com/osa030/vidbox/internal/app/notification"
	"github.com/osa030/vidbox/internal/app/playback"
	"github.com/osa030/vidbox/internal/app/screen"
)

const (
	// RemoteServiceName is the fully-qualified name of the remote service.
	RemoteServiceName = "vidbox.v1.RemoteService"

	RemoteServiceStatusProcedure    = "/vidbox.v1.RemoteService/Status"
	RemoteServiceSelectProcedure    = "/vidbox.v1.RemoteService/Select"
	RemoteServiceLifecycleProcedure = "/vidbox.v1.RemoteService/Lifecycle"
	RemoteServicePlayProcedure      = "/vidbox.v1.RemoteService/Play"
	RemoteServicePauseProcedure     = "/vidbox.v1.RemoteService/Pause"
	RemoteServiceSubscribeProcedure = "/vidbox.v1.RemoteService/Subscribe"
)

// Lifecycle events accepted by the Lifecycle procedure.
const (
	EventStart      = "start"
	EventStop       = "stop"
	EventPause      = "pause"
	EventResume     = "resume"
	EventRecreate   = "recreate"
	EventForeground = "foreground"
	EventBackground = "background"
)

// Notification types sent on the Subscribe stream.
const (
	NotificationTypeInitialState = "initial_state"
	NotificationTypeToast        = "toast"
)

// Caller runs work on the UI loop and waits for it.
type Caller interface {
	Call(ctx context.Context, fn func()) error
}

type selectRequest struct {
	Index *int `mapstructure:"index" validate:"required,gte=0"`
}

type lifecycleRequest struct {
	Event string `mapstructure:"event" validate:"required,oneof=start stop pause resume recreate foreground background"`
}

// RemoteService implements the remote control procedures.
type RemoteService struct {
	loop          Caller
	host          *screen.Host
	notifications *notification.Manager
	done          <-chan struct{}
	validate      *validator.Validate
}

// NewRemoteService creates a new RemoteService. done ends open Subscribe
// streams, typically when the UI loop stops.
func NewRemoteService(loop Caller, host *screen.Host, notifications *notification.Manager, done <-chan struct{}) *RemoteService {
	return &RemoteService{
		loop:          loop,
		host:          host,
		notifications: notifications,
		done:          done,
		validate:      validator.New(),
	}
}

// Handler builds the HTTP handler for the service. It returns the path to
// mount it on.
func (s *RemoteService) Handler(opts ...connect.HandlerOption) (string, http.Handler) {
	mux := http.NewServeMux()
	mux.Handle(RemoteServiceStatusProcedure, connect.NewUnaryHandler(RemoteServiceStatusProcedure, s.Status, opts...))
	mux.Handle(RemoteServiceSelectProcedure, connect.NewUnaryHandler(RemoteServiceSelectProcedure, s.Select, opts...))
	mux.Handle(RemoteServiceLifecycleProcedure, connect.NewUnaryHandler(RemoteServiceLifecycleProcedure, s.Lifecycle, opts...))
	mux.Handle(RemoteServicePlayProcedure, connect.NewUnaryHandler(RemoteServicePlayProcedure, s.Play, opts...))
	mux.Handle(RemoteServicePauseProcedure, connect.NewUnaryHandler(RemoteServicePauseProcedure, s.Pause, opts...))
	mux.Handle(RemoteServiceSubscribeProcedure, connect.NewServerStreamHandler(RemoteServiceSubscribeProcedure, s.Subscribe, opts...))
	return "/" + RemoteServiceName + "/", mux
}

// Status returns the screen status.
func (s *RemoteService) Status(
	ctx context.Context,
	req *connect.Request[emptypb.Empty],
) (*connect.Response[structpb.Struct], error) {
	return s.respond(ctx, func() error { return nil })
}

// Select plays the playlist item at index.
func (s *RemoteService) Select(
	ctx context.Context,
	req *connect.Request[structpb.Struct],
) (*connect.Response[structpb.Struct], error) {
	var in selectRequest
	if err := s.decode(req.Msg, &in); err != nil {
		return nil, err
	}
	return s.respond(ctx, func() error {
		return s.host.Select(*in.Index)
	})
}

// Lifecycle drives the screen through a lifecycle event.
func (s *RemoteService) Lifecycle(
	ctx context.Context,
	req *connect.Request[structpb.Struct],
) (*connect.Response[structpb.Struct], error) {
	var in lifecycleRequest
	if err := s.decode(req.Msg, &in); err != nil {
		return nil, err
	}
	return s.respond(ctx, func() error {
		switch in.Event {
		case EventStart:
			return s.host.Start()
		case EventStop:
			return s.host.Stop()
		case EventPause:
			return s.host.Pause()
		case EventResume:
			return s.host.Resume()
		case EventRecreate:
			return s.host.Recreate()
		case EventForeground:
			return s.host.Foreground()
		case EventBackground:
			return s.host.Background()
		}
		return errors.Newf("unknown event %q", in.Event)
	})
}

// Play resumes playback.
func (s *RemoteService) Play(
	ctx context.Context,
	req *connect.Request[emptypb.Empty],
) (*connect.Response[structpb.Struct], error) {
	return s.respond(ctx, s.host.Play)
}

// Pause pauses playback.
func (s *RemoteService) Pause(
	ctx context.Context,
	req *connect.Request[emptypb.Empty],
) (*connect.Response[structpb.Struct], error) {
	return s.respond(ctx, s.host.PausePlayback)
}

// Subscribe streams the current status followed by every notification.
func (s *RemoteService) Subscribe(
	ctx context.Context,
	req *connect.Request[emptypb.Empty],
	stream *connect.ServerStream[structpb.Struct],
) error {
	var st screen.Status
	if err := s.loop.Call(ctx, func() { st = s.host.Status() }); err != nil {
		return loopError(err)
	}

	initial, err := structpb.NewStruct(map[string]any{
		"type":   NotificationTypeInitialState,
		"status": statusMap(st),
	})
	if err != nil {
		return connect.NewError(connect.CodeInternal, err)
	}

	adapter := &notificationStreamAdapter{stream: stream}
	if err := adapter.send(initial); err != nil {
		return err
	}

	subscriptionID := s.notifications.Subscribe(adapter)
	defer s.notifications.Unsubscribe(subscriptionID)
	zlog.Debug().Msgf("connect: subscribed: id=%s", subscriptionID)

	select {
	case <-ctx.Done():
	case <-s.done:
	}
	return nil
}

// respond runs op on the loop and answers with the resulting status.
func (s *RemoteService) respond(ctx context.Context, op func() error) (*connect.Response[structpb.Struct], error) {
	var (
		st    screen.Status
		opErr error
	)
	err := s.loop.Call(ctx, func() {
		opErr = op()
		st = s.host.Status()
	})
	if err != nil {
		return nil, loopError(err)
	}
	if opErr != nil {
		return nil, hostError(opErr)
	}

	msg, err := structpb.NewStruct(statusMap(st))
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(msg), nil
}

func (s *RemoteService) decode(msg *structpb.Struct, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		ErrorUnused:      true,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return connect.NewError(connect.CodeInternal, err)
	}
	if err := decoder.Decode(msg.AsMap()); err != nil {
		return connect.NewError(connect.CodeInvalidArgument, errors.Wrap(err, "failed to decode request"))
	}
	if err := s.validate.Struct(out); err != nil {
		return connect.NewError(connect.CodeInvalidArgument, errors.Wrap(err, "invalid request"))
	}
	return nil
}

func loopError(err error) error {
	if errors.Is(err, dispatch.ErrClosed) {
		return connect.NewError(connect.CodeUnavailable, err)
	}
	return connect.NewError(connect.CodeDeadlineExceeded, err)
}

func hostError(err error) error {
	switch {
	case errors.Is(err, playback.ErrIndexOutOfRange):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.Is(err, playback.ErrNotCreated), errors.Is(err, screen.ErrInvalidTransition):
		return connect.NewError(connect.CodeFailedPrecondition, err)
	default:
		return connect.NewError(connect.CodeInternal, err)
	}
}

// statusMap converts a status into Struct-compatible values.
func statusMap(st screen.Status) map[string]any {
	snap := st.Session
	return map[string]any{
		"phase":             st.Phase.String(),
		"session_id":        snap.SessionID,
		"state":             snap.State.String(),
		"title":             snap.Title,
		"playing":           snap.Playing,
		"labels":            lo.ToAnySlice(snap.Labels),
		"position_ms":       snap.Position.Milliseconds(),
		"saved_position_ms": snap.LastSavedPosition.Milliseconds(),
		"queue_length":      snap.QueueLength,
		"released":          snap.Released,
	}
}

// notificationStreamAdapter adapts connect.ServerStream to notification.Sink.
type notificationStreamAdapter struct {
	mu     sync.Mutex
	stream *connect.ServerStream[structpb.Struct]
}

func (a *notificationStreamAdapter) send(msg *structpb.Struct) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stream.Send(msg)
}

func (a *notificationStreamAdapter) Send(n notification.Notification) error {
	msg, err := structpb.NewStruct(map[string]any{
		"type":        NotificationTypeToast,
		"sequence_no": n.SequenceNo,
		"message":     n.Message,
		"length":      n.Length.String(),
		"created_at":  n.CreatedAt.UnixMilli(),
	})
	if err != nil {
		return err
	}
	return a.send(msg)
}
