package interaction

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/spvis/spvis-go/pkg/device"
	"github.com/spvis/spvis-go/pkg/log"
	"github.com/spvis/spvis-go/pkg/transport"
	"github.com/spvis/spvis-go/pkg/version"
	"github.com/spvis/spvis-go/pkg/wire"
)

// ServerConfig configures a bridge Server.
type ServerConfig struct {
	// Name is reported to clients in Hello.
	Name string

	// Logger receives operational logs (optional).
	Logger *slog.Logger

	// ProtocolLogger receives wire-level message events (optional).
	ProtocolLogger log.Logger
}

// Server answers bridge requests by calling a device.Transport.
type Server struct {
	transport   device.Transport
	name        string
	multiplexed bool
	logger      *slog.Logger
	events      log.Logger
}

// NewServer creates a bridge server in front of t.
func NewServer(t device.Transport, cfg ServerConfig) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Server{
		transport:   t,
		name:        cfg.Name,
		multiplexed: device.IsMultiplexed(t),
		logger:      logger,
		events:      log.OrNoop(cfg.ProtocolLogger),
	}
}

// Responder sends an encoded response back to the requesting client.
type Responder interface {
	Send(data []byte) error
	ConnID() string
}

// Handler returns a transport.ServerConfig.OnMessage callback. Library calls
// run under ctx, so cancelling it aborts calls in flight.
func (s *Server) Handler(ctx context.Context) func(conn *transport.ServerConn, msg []byte) {
	return func(conn *transport.ServerConn, msg []byte) {
		s.HandleFrame(ctx, conn, msg)
	}
}

// HandleFrame decodes one request, executes it and sends the response. When
// the wrapped transport is multiplexed the call runs on its own goroutine.
func (s *Server) HandleFrame(ctx context.Context, conn Responder, data []byte) {
	req, err := wire.DecodeRequest(data)
	if err != nil {
		s.logger.Warn("dropping invalid request", "conn", conn.ConnID(), "error", err)
		return
	}

	if s.multiplexed && req.Operation.HasIndex() {
		go s.serve(ctx, conn, req)
		return
	}
	s.serve(ctx, conn, req)
}

func (s *Server) serve(ctx context.Context, conn Responder, req *wire.Request) {
	start := time.Now()
	s.logMessage(conn.ConnID(), log.DirectionIn, req.MessageID, &req.Operation, nil, nil, req.Index)

	resp := s.HandleRequest(ctx, req)

	elapsed := time.Since(start)
	s.logMessage(conn.ConnID(), log.DirectionOut, resp.MessageID, nil, &resp.Status, &elapsed, req.Index)

	data, err := wire.EncodeResponse(resp.MessageID, resp.Status, resp.result, resp.Message)
	if err != nil {
		s.logger.Error("encode response", "op", req.Operation, "error", err)
		data, _ = wire.EncodeResponse(req.MessageID, wire.StatusUnknown, nil, err.Error())
	}
	if err := conn.Send(data); err != nil {
		s.logger.Debug("send response", "conn", conn.ConnID(), "error", err)
	}
}

func (s *Server) logMessage(connID string, dir log.Direction, id uint32, op *wire.Operation,
	status *wire.Status, took *time.Duration, index int) {
	typ := log.MessageTypeRequest
	if status != nil {
		typ = log.MessageTypeResponse
	}
	e := log.Event{
		Timestamp: time.Now(),
		SessionID: connID,
		Direction: dir,
		Layer:     log.LayerWire,
		Category:  log.CategoryMessage,
		LocalRole: log.RoleBridge,
		Message: &log.MessageEvent{
			Type:           typ,
			MessageID:      id,
			Operation:      op,
			Status:         status,
			ProcessingTime: took,
		},
	}
	if op == nil || op.HasIndex() {
		e.DeviceIndex = log.Index(index)
	}
	s.events.Log(e)
}

// Reply is the outcome of one request before encoding.
type Reply struct {
	MessageID uint32
	Status    wire.Status
	Message   string
	result    any
}

// Decode decodes the reply's result into v, as a client would.
func (r *Reply) Decode(v any) error {
	if r.result == nil {
		return nil
	}
	raw, err := wire.Marshal(r.result)
	if err != nil {
		return err
	}
	return wire.Unmarshal(raw, v)
}

// HandleRequest executes one request against the wrapped transport.
func (s *Server) HandleRequest(ctx context.Context, req *wire.Request) *Reply {
	result, err := s.dispatch(ctx, req)
	reply := &Reply{MessageID: req.MessageID, result: result}
	if err != nil {
		status, ok := device.StatusOf(err)
		if !ok {
			status = wire.StatusUnknown
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
				s.logger.Warn("library call aborted", "op", req.Operation, "index", req.Index, "error", err)
			}
		}
		reply.Status = status
		reply.Message = err.Error()
		var se *device.StatusError
		if errors.As(err, &se) {
			reply.Message = se.Message
		}
	}
	return reply
}

func decode[T any](req *wire.Request) (T, error) {
	var p T
	if err := req.DecodeParams(&p); err != nil {
		return p, device.NewStatusError(wire.StatusInvalidParameter, "%v", err)
	}
	return p, nil
}

func (s *Server) dispatch(ctx context.Context, req *wire.Request) (any, error) {
	t := s.transport
	idx := req.Index

	switch req.Operation {
	case wire.OpHello:
		p, err := decode[wire.HelloParams](req)
		if err != nil {
			return nil, err
		}
		if err := version.CheckPeer(p.Version); err != nil {
			return nil, device.NewStatusError(wire.StatusInvalidParameter, "%v", err)
		}
		s.logger.Info("client hello", "client", p.Client, "version", p.Version)
		return &wire.HelloResult{Version: version.Current, Bridge: s.name, Multiplexed: s.multiplexed}, nil

	case wire.OpInit:
		n, err := t.Init(ctx)
		return &wire.InitResult{DeviceCount: n}, err

	case wire.OpDone:
		return nil, t.Done(ctx, idx)

	case wire.OpDoneAll:
		return nil, t.DoneAll(ctx)

	case wire.OpActivate:
		p, err := decode[wire.PathParams](req)
		if err != nil {
			return nil, err
		}
		return nil, t.Activate(ctx, idx, p.Path)

	case wire.OpGetList:
		serial, err := t.SerialNumber(ctx, idx)
		if err != nil {
			return nil, err
		}
		return &wire.SerialResult{Serial: serial}, nil

	case wire.OpGetParameter:
		p, err := decode[wire.ParameterParams](req)
		if err != nil {
			return nil, err
		}
		v, err := t.Parameter(ctx, idx, p.Kind)
		if err != nil {
			return nil, err
		}
		return &wire.ParameterResult{Value: v}, nil

	case wire.OpAutoDark:
		p, err := decode[wire.AcquisitionParams](req)
		if err != nil {
			return nil, err
		}
		return nil, t.AutoDark(ctx, idx, p.IntegrationMs)

	case wire.OpOnceDark:
		p, err := decode[wire.AcquisitionParams](req)
		if err != nil {
			return nil, err
		}
		return nil, t.OnceDark(ctx, idx, p.IntegrationMs, p.Averaging)

	case wire.OpAutoIntegration:
		p, err := decode[wire.AutoIntegrationParams](req)
		if err != nil {
			return nil, err
		}
		ms, avg, err := t.AutoIntegration(ctx, idx, p.Saturation)
		if err != nil {
			return nil, err
		}
		return &wire.IntegrationResult{IntegrationMs: ms, Averaging: avg}, nil

	case wire.OpSetIntegration:
		p, err := decode[wire.AcquisitionParams](req)
		if err != nil {
			return nil, err
		}
		return nil, t.SetIntegration(ctx, idx, p.IntegrationMs, p.Averaging)

	case wire.OpGetSaturation:
		p, err := decode[wire.AcquisitionParams](req)
		if err != nil {
			return nil, err
		}
		v, err := t.Saturation(ctx, idx, p.IntegrationMs, p.Averaging)
		if err != nil {
			return nil, err
		}
		return &wire.ValueResult{Value: v}, nil

	case wire.OpSetAutoMaxIntegration:
		p, err := decode[wire.AcquisitionParams](req)
		if err != nil {
			return nil, err
		}
		ms, avg, err := t.SetAutoMaxLimits(ctx, idx, p.IntegrationMs, p.Averaging)
		if err != nil {
			return nil, err
		}
		return &wire.IntegrationResult{IntegrationMs: ms, Averaging: avg}, nil

	case wire.OpGetSpectrum:
		p, err := decode[wire.AcquisitionParams](req)
		if err != nil {
			return nil, err
		}
		v, err := t.Spectrum(ctx, idx, p.DarkMode, p.IntegrationMs, p.Averaging)
		if err != nil {
			return nil, err
		}
		return &wire.ValuesResult{Values: v}, nil

	case wire.OpLampCalibration:
		p, err := decode[wire.LampCalibrationParams](req)
		if err != nil {
			return nil, err
		}
		return nil, t.CalibrateWithLamp(ctx, idx, p.DarkMode, p.IntegrationMs, p.Averaging, p.LampSpectrum, p.LampWavelengths)

	case wire.OpReadCalibration:
		p, err := decode[wire.PathParams](req)
		if err != nil {
			return nil, err
		}
		prof, err := t.ReadCalibration(ctx, idx, p.Path)
		if err != nil {
			return nil, err
		}
		return &wire.CalibrationResult{
			Serial:       prof.Serial,
			UsageMode:    prof.UsageMode,
			Wavelengths:  prof.Wavelengths,
			LampSpectrum: prof.StandardLampSpectrum,
		}, nil

	case wire.OpSaveCalibration:
		p, err := decode[wire.PathParams](req)
		if err != nil {
			return nil, err
		}
		path, err := t.SaveCalibration(ctx, idx, p.UsageMode, p.Path)
		if err != nil {
			return nil, err
		}
		return &wire.PathResult{Path: path}, nil

	case wire.OpSetZoomFactor:
		p, err := decode[wire.ZoomParams](req)
		if err != nil {
			return nil, err
		}
		return nil, t.SetZoomFactor(ctx, idx, p.Factor)

	case wire.OpGetZoomFactor:
		v, err := t.ZoomFactor(ctx, idx)
		if err != nil {
			return nil, err
		}
		return &wire.ValueResult{Value: v}, nil

	case wire.OpMeasure:
		p, err := decode[wire.MeasureParams](req)
		if err != nil {
			return nil, err
		}
		m, err := t.Measure(ctx, idx, device.MeasurementRequest{
			IntegrationMs:   p.IntegrationMs,
			Averaging:       p.Averaging,
			DarkMode:        p.DarkMode,
			AuxCompensation: p.Aux,
			SmoothingWindow: p.Smoothing,
		})
		if err != nil {
			return nil, err
		}
		return &wire.MeasureResult{
			Wavelengths:   m.Wavelengths,
			Spectrum:      m.Spectrum,
			IntegrationMs: m.IntegrationMs,
			Averaging:     m.Averaging,
			Saturation:    m.Saturation,
			DurationMs:    float64(m.Duration) / float64(time.Millisecond),
		}, nil

	case wire.OpMeasureData:
		p, err := decode[wire.MetricParams](req)
		if err != nil {
			return nil, err
		}
		v, vs, err := t.MeasureData(ctx, idx, p.Metric)
		if err != nil {
			return nil, err
		}
		return &wire.MetricResult{Value: v, Values: vs}, nil

	case wire.OpCheckError:
		msg, err := t.DeviceError(ctx, idx)
		if err != nil {
			return nil, err
		}
		return &wire.MessageResult{Message: msg}, nil

	case wire.OpShutter:
		p, err := decode[wire.ShutterParams](req)
		if err != nil {
			return nil, err
		}
		return nil, t.Shutter(ctx, idx, p.Open)
	}

	return nil, device.NewStatusError(wire.StatusInvalidParameter, "unsupported operation %s", req.Operation)
}
