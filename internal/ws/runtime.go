package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mrnkr/socketscope/core"
	"github.com/mrnkr/socketscope/internal/pipeline"
	"github.com/mrnkr/socketscope/internal/session"
	pkgws "github.com/mrnkr/socketscope/pkg/ws"
	"go.uber.org/zap"
)

// TransportName은 WebSocket 세션의 Transport() 값입니다.
const TransportName = "ws"

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// wsConn은 gorilla 연결 하나와 쓰기 잠금입니다.
// gorilla 연결은 동시 쓰기를 허용하지 않습니다.
type wsConn struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (c *wsConn) send(msg pkgws.Message) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(msg)
}

func (c *wsConn) closeWith(code int, reason string) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason),
		time.Now().Add(time.Second),
	)
}

type Runtime struct {
	registry *Registry
	pipeline *pipeline.Pipeline
	logger   *zap.Logger

	stopOnce sync.Once
	ctx      context.Context
	cancel   context.CancelFunc
	connMu   sync.Mutex
	conns    map[string]*wsConn
	wg       sync.WaitGroup
}

func NewRuntime(registry *Registry, pipeline *pipeline.Pipeline, logger *zap.Logger) *Runtime {
	if registry == nil {
		panic("ws: registry는 nil일 수 없습니다")
	}
	if pipeline == nil {
		panic("ws: pipeline은 nil일 수 없습니다")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Runtime{
		registry: registry,
		pipeline: pipeline,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
		conns:    make(map[string]*wsConn),
	}
}

func (r *Runtime) Name() string {
	return TransportName
}

// Start는 아무것도 하지 않습니다. 연결은 HTTP 서버가 ServeHTTP로 넘겨줍니다.
func (r *Runtime) Start(ctx context.Context) error {
	for _, reg := range r.registry.Registrations() {
		r.logger.Info("[WS] 이벤트 등록", zap.String("event", reg.Event))
	}
	return nil
}

func (r *Runtime) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.HandleConn(w, req)
}

// Connections는 현재 열려 있는 연결 수입니다.
func (r *Runtime) Connections() int {
	r.connMu.Lock()
	defer r.connMu.Unlock()
	return len(r.conns)
}

func (r *Runtime) HandleConn(w http.ResponseWriter, req *http.Request) {
	select {
	case <-r.ctx.Done():
		http.Error(w, "websocket runtime is shutting down", http.StatusServiceUnavailable)
		return
	default:
	}

	conn, err := upgrader.Upgrade(w, req, nil)
	if err != nil {
		r.logger.Warn("[WS] 업그레이드 실패", zap.String("path", req.URL.Path), zap.Error(err))
		return
	}

	wc := &wsConn{conn: conn}
	connID := session.NewID()
	if !r.trackConn(connID, wc) {
		_ = conn.Close()
		return
	}

	ctx, cancel := context.WithCancel(r.ctx)
	sess := session.New(ctx, connID, TransportName, func(event string, args ...any) error {
		msg, err := pkgws.NewMessage(event, args...)
		if err != nil {
			return err
		}
		return wc.send(msg)
	})

	// 지연 결과를 기다리는 goroutine
	var pending sync.WaitGroup

	defer func() {
		cancel()
		pending.Wait()
		if err := sess.Release(); err != nil {
			r.logger.Warn("[WS] scope 해제 실패", zap.String("conn", connID), zap.Error(err))
		}
		r.untrackConn(connID)
		_ = conn.Close()
	}()

	log := r.logger.With(zap.String("conn", connID))
	log.Info("[WS] 연결 수립", zap.String("path", req.URL.Path))

	if err := r.pipeline.Open(sess); err != nil {
		log.Warn("[WS] 연결 미들웨어 실패", zap.Error(err))
		wc.closeWith(websocket.ClosePolicyViolation, err.Error())
		return
	}

	// 연결당 루프
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			log.Info("[WS] 연결 종료", zap.Error(err))
			return
		}

		var msg pkgws.Message
		if err := json.Unmarshal(payload, &msg); err != nil || msg.Event == "" {
			r.reply(log, wc, msg.ID, nil, errMalformed)
			continue
		}

		handler, ok := r.registry.Lookup(msg.Event)
		if !ok {
			r.reply(log, wc, msg.ID, nil, &unknownEventError{event: msg.Event})
			continue
		}

		args := make([]any, len(msg.Args))
		for i, raw := range msg.Args {
			args[i] = raw
		}

		// 핸들러는 도착 순서대로 실행하고, 지연 결과만 따로 기다립니다.
		out, err := r.pipeline.Invoke(sess, handler, args)
		if err != nil {
			r.reply(log, wc, msg.ID, nil, err)
			continue
		}

		if _, deferred := out.(core.Awaitable); !deferred {
			r.reply(log, wc, msg.ID, out, nil)
			continue
		}

		pending.Add(1)
		go func(id int64, event string, out any) {
			defer pending.Done()
			result, err := pipeline.Await(sess, out)
			if err != nil {
				log.Warn("[WS] 핸들러 실패", zap.String("event", event), zap.Error(err))
			}
			r.reply(log, wc, id, result, err)
		}(msg.ID, msg.Event, out)
	}
}

// reply는 ID가 있는 메시지에 ack 또는 error 프레임을 보냅니다.
func (r *Runtime) reply(log *zap.Logger, wc *wsConn, id int64, result any, err error) {
	if id == 0 {
		if err != nil {
			log.Debug("[WS] ID 없는 메시지 처리 실패", zap.Error(err))
		}
		return
	}

	var msg pkgws.Message
	if err != nil {
		msg = pkgws.Message{Event: pkgws.ErrorEvent, ID: id, Error: err.Error()}
	} else {
		var args []any
		if result != nil {
			args = append(args, result)
		}
		encoded, encErr := pkgws.NewMessage(pkgws.AckEvent, args...)
		if encErr != nil {
			msg = pkgws.Message{Event: pkgws.ErrorEvent, ID: id, Error: encErr.Error()}
		} else {
			msg = encoded
			msg.ID = id
		}
	}

	if sendErr := wc.send(msg); sendErr != nil {
		log.Debug("[WS] 응답 전송 실패", zap.Int64("id", id), zap.Error(sendErr))
	}
}

// Stop은 새 연결을 거부하고 열린 연결을 닫은 뒤, 각 연결의 scope 해제까지 기다립니다.
func (r *Runtime) Stop(ctx context.Context) error {
	r.stopOnce.Do(func() {
		r.cancel()

		r.connMu.Lock()
		conns := make(map[string]*wsConn, len(r.conns))
		for id, conn := range r.conns {
			conns[id] = conn
		}
		r.connMu.Unlock()

		for _, wc := range conns {
			wc.closeWith(websocket.CloseNormalClosure, "server shutting down")
			_ = wc.conn.Close()
		}
	})

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info("[WS] WebSocket 런타임을 중지했습니다.")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Runtime) trackConn(connID string, wc *wsConn) bool {
	r.connMu.Lock()
	defer r.connMu.Unlock()

	select {
	case <-r.ctx.Done():
		return false
	default:
		r.conns[connID] = wc
		r.wg.Add(1)
		return true
	}
}

func (r *Runtime) untrackConn(connID string) {
	r.connMu.Lock()
	defer r.connMu.Unlock()
	if _, ok := r.conns[connID]; ok {
		delete(r.conns, connID)
		r.wg.Done()
	}
}
