package websocket

import (
	"fmt"
	"reflect"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/webseed87/camera/core"
	"github.com/webseed87/camera/handlers/api/captures"
	"github.com/webseed87/camera/middleware"
	"github.com/webseed87/camera/session"
	"github.com/zishang520/engine.io/v2/types"
	socketio "github.com/zishang520/socket.io/v2/socket"
)

// PreviewRoom is joined by every display client on connect.
const PreviewRoom socketio.Room = "preview"

type (
	ackInvoker func(err error, payload map[string]any)

	// CapturesPayload is the captures-change event body.
	CapturesPayload struct {
		Count  int                      `json:"count"`
		Latest *captures.CaptureSummary `json:"latest"`
	}

	// Controls is the part of a session driven by touch events.
	Controls interface {
		State() session.State
		Records() []core.CaptureRecord
		PinchStart(a, b core.Point)
		PinchMove(a, b core.Point) session.State
		PinchEnd()
		Tap(at time.Time) session.State
	}

	// Preview pushes live state to display clients and feeds their touch
	// gestures back into the session. It implements session.Listener.
	Preview struct {
		srv      *socketio.Server
		controls Controls
	}
)

// NewPreview creates the socket.io server for display clients.
func NewPreview(controls Controls) *Preview {
	opts := socketio.DefaultServerOptions()
	opts.SetMaxHttpBufferSize(5000000)
	opts.SetPath("/socket.io")
	opts.SetAllowEIO3(true)
	opts.SetCors(&types.Cors{
		Origin:      []any{middleware.LocalOrigin},
		Credentials: true,
	})

	p := &Preview{
		srv:      socketio.NewServer(nil, opts),
		controls: controls,
	}
	p.srv.On("connection", p.onConnection)
	return p
}

// Server returns the underlying socket.io server for mounting and shutdown.
func (p *Preview) Server() *socketio.Server {
	return p.srv
}

// PreviewChanged broadcasts new zoom and filter state.
func (p *Preview) PreviewChanged(st session.State) {
	if err := p.srv.To(PreviewRoom).Emit("preview-change", st); err != nil {
		logrus.WithField("error", err).Warn("Failed to broadcast preview change")
	}
}

// CapturesChanged broadcasts the gallery size and newest thumbnail.
func (p *Preview) CapturesChanged(records []core.CaptureRecord) {
	if err := p.srv.To(PreviewRoom).Emit("captures-change", capturesPayload(records)); err != nil {
		logrus.WithField("error", err).Warn("Failed to broadcast captures change")
	}
}

func (p *Preview) onConnection(clients ...any) {
	socket, ok := clients[0].(*socketio.Socket)
	if !ok {
		return
	}
	me := socket.Id()
	socket.Join(PreviewRoom)
	logrus.WithField("socket", me).Debug("Display client connected")

	_ = socket.Emit("preview-change", p.controls.State())
	_ = socket.Emit("captures-change", capturesPayload(p.controls.Records()))

	socket.On("pinch-start", func(datas ...any) {
		ack, args := extractAck(datas)
		a, b, err := parsePoints(args)
		if err != nil {
			respond(ack, err, nil)
			return
		}
		p.controls.PinchStart(a, b)
		respond(ack, nil, map[string]any{"status": "ok"})
	})

	socket.On("pinch-move", func(datas ...any) {
		ack, args := extractAck(datas)
		a, b, err := parsePoints(args)
		if err != nil {
			respond(ack, err, nil)
			return
		}
		st := p.controls.PinchMove(a, b)
		respond(ack, nil, map[string]any{"status": "ok", "factor": st.Zoom.Factor})
	})

	socket.On("pinch-end", func(datas ...any) {
		ack, _ := extractAck(datas)
		p.controls.PinchEnd()
		respond(ack, nil, map[string]any{"status": "ok"})
	})

	socket.On("tap", func(datas ...any) {
		ack, _ := extractAck(datas)
		st := p.controls.Tap(time.Now())
		respond(ack, nil, map[string]any{"status": "ok", "factor": st.Zoom.Factor})
	})

	socket.On("disconnect", func(datas ...any) {
		logrus.WithField("socket", me).Debug("Display client disconnected")
		socket.RemoveAllListeners("")
	})
}

func capturesPayload(records []core.CaptureRecord) CapturesPayload {
	payload := CapturesPayload{Count: len(records)}
	if n := len(records); n > 0 {
		latest := captures.Summaries(records[n-1:])[0]
		latest.Index = n - 1
		payload.Latest = &latest
	}
	return payload
}

// parsePoints reads two {x, y} touch points from event arguments. The points
// may come as two arguments or as one two-element array.
func parsePoints(args []any) (core.Point, core.Point, error) {
	if len(args) == 1 {
		if list, ok := args[0].([]any); ok {
			args = list
		}
	}
	if len(args) < 2 {
		return core.Point{}, core.Point{}, fmt.Errorf("two touch points are required")
	}
	a, err := parsePoint(args[0])
	if err != nil {
		return core.Point{}, core.Point{}, err
	}
	b, err := parsePoint(args[1])
	if err != nil {
		return core.Point{}, core.Point{}, err
	}
	return a, b, nil
}

func parsePoint(v any) (core.Point, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return core.Point{}, fmt.Errorf("invalid touch point %v", v)
	}
	x, okX := m["x"].(float64)
	y, okY := m["y"].(float64)
	if !okX || !okY {
		return core.Point{}, fmt.Errorf("touch point needs numeric x and y")
	}
	return core.Point{X: x, Y: y}, nil
}

func respond(ack ackInvoker, err error, payload map[string]any) {
	if ack == nil {
		return
	}
	if err != nil {
		payload = map[string]any{"status": "error", "error": err.Error()}
	}
	ack(err, payload)
}

func extractAck(datas []any) (ackInvoker, []any) {
	if len(datas) == 0 {
		return nil, datas
	}
	ack := wrapAck(datas[len(datas)-1])
	if ack == nil {
		return nil, datas
	}
	return ack, datas[:len(datas)-1]
}

// wrapAck adapts a client acknowledgement callback. socket.io hands acks over
// as func([]any, error); other functions get the payload when they take one
// parameter and (err, payload) when they take two.
func wrapAck(candidate any) ackInvoker {
	if candidate == nil {
		return nil
	}
	if fn, ok := candidate.(func([]any, error)); ok {
		return func(err error, payload map[string]any) {
			fn([]any{payload}, err)
		}
	}
	value := reflect.ValueOf(candidate)
	if value.Kind() != reflect.Func {
		return nil
	}

	typ := value.Type()
	return func(err error, payload map[string]any) {
		args := make([]reflect.Value, typ.NumIn())
		for i := range args {
			var arg any
			switch {
			case typ.NumIn() == 1:
				arg = payload
			case i == 0:
				arg = err
			case i == 1:
				arg = payload
			}
			args[i] = coerce(arg, typ.In(i))
		}
		value.Call(args)
	}
}

func coerce(v any, target reflect.Type) reflect.Value {
	if v == nil {
		return reflect.Zero(target)
	}
	rv := reflect.ValueOf(v)
	if rv.Type().AssignableTo(target) {
		return rv
	}
	if rv.Type().ConvertibleTo(target) {
		return rv.Convert(target)
	}
	return reflect.Zero(target)
}
