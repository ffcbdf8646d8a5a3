package ws

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/stratisd/internal/domain/exposure"
	"github.com/GriffinCanCode/stratisd/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/stratisd/internal/shared/types"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingPeriod   = pongWait * 9 / 10
	eventBuffer  = 64
	maxReadBytes = 4096
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Handler streams exposure events to websocket clients
type Handler struct {
	exp     *exposure.Manager
	metrics *monitoring.Metrics
	logger  *zap.Logger
}

// NewHandler creates a new event stream handler
func NewHandler(exp *exposure.Manager, metrics *monitoring.Metrics, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{exp: exp, metrics: metrics, logger: logger}
}

// conn serializes writes to one client
type conn struct {
	ws *websocket.Conn
	mu sync.Mutex

	filterMu sync.RWMutex
	kinds    map[string]bool
}

func (c *conn) send(msg types.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteJSON(msg)
}

func (c *conn) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

func (c *conn) wants(kind string) bool {
	c.filterMu.RLock()
	defer c.filterMu.RUnlock()
	return len(c.kinds) == 0 || c.kinds[kind]
}

func (c *conn) subscribe(kinds []string) {
	set := make(map[string]bool, len(kinds))
	for _, k := range kinds {
		set[k] = true
	}
	c.filterMu.Lock()
	c.kinds = set
	c.filterMu.Unlock()
}

// HandleConnection upgrades the request and streams events until the
// client goes away
func (h *Handler) HandleConnection(c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer ws.Close()

	h.metrics.IncWSConnections()
	defer h.metrics.DecWSConnections()

	// Subscribe before the greeting so nothing exposed after it is missed
	events, cancel := h.exp.Subscribe(eventBuffer)
	defer cancel()

	cl := &conn{ws: ws}
	if err := h.send(cl, types.Event{Type: types.WSHello, Message: "connected to " + c.Request.Host}); err != nil {
		return
	}

	done := make(chan struct{})
	go h.readLoop(cl, done)

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			if !cl.wants(ev.Kind) {
				continue
			}
			if err := h.send(cl, eventView(ev)); err != nil {
				h.logger.Debug("event stream write failed", zap.Error(err))
				return
			}
		case <-ticker.C:
			if err := cl.ping(); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

// readLoop handles client messages and closes done when the client leaves
func (h *Handler) readLoop(cl *conn, done chan<- struct{}) {
	defer close(done)

	cl.ws.SetReadLimit(maxReadBytes)
	_ = cl.ws.SetReadDeadline(time.Now().Add(pongWait))
	cl.ws.SetPongHandler(func(string) error {
		return cl.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg types.WSMessage
		if err := cl.ws.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("event stream read failed", zap.Error(err))
			}
			return
		}
		h.metrics.RecordWSMessage(msg.Type)

		var reply types.Event
		switch msg.Type {
		case types.WSPing:
			reply = types.Event{Type: types.WSPong}
		case types.WSSubscribe:
			cl.subscribe(msg.Kinds)
			reply = types.Event{Type: types.WSSubscribed}
		default:
			reply = types.Event{Type: types.WSError, Message: "unknown message type " + msg.Type}
		}
		if err := h.send(cl, reply); err != nil {
			return
		}
	}
}

func (h *Handler) send(cl *conn, msg types.Event) error {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	return cl.send(msg)
}

func eventView(ev exposure.Event) types.Event {
	return types.Event{
		Type:      string(ev.Type),
		Path:      string(ev.Path),
		Kind:      ev.Kind,
		ID:        ev.ID,
		Timestamp: ev.Timestamp,
	}
}
