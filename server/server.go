package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/tliron/commonlog"

	"github.com/chazu/lispik/session"
	"github.com/chazu/lispik/vm"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1 << 20
)

// DefaultMaxSteps bounds every submission evaluated by the server unless
// WithMaxSteps says otherwise.
const DefaultMaxSteps = 1_000_000

// EvalServer evaluates Lispík submissions sent over websockets. Every
// connection gets its own session.
type EvalServer struct {
	sessions *SessionStore
	mux      *http.ServeMux
	upgrader websocket.Upgrader
	log      commonlog.Logger
}

// ServerOption configures an EvalServer.
type ServerOption func(*serverConfig)

type serverConfig struct {
	sessionOpts []session.Option
	maxSteps    int
	checkOrigin func(*http.Request) bool
}

// WithMaxSteps sets the per-submission instruction budget. n must be
// positive; the server never runs unbounded submissions.
func WithMaxSteps(n int) ServerOption {
	return func(c *serverConfig) {
		if n > 0 {
			c.maxSteps = n
		}
	}
}

// WithSessionOptions sets the options every connection's session is built with.
func WithSessionOptions(opts ...session.Option) ServerOption {
	return func(c *serverConfig) { c.sessionOpts = append(c.sessionOpts, opts...) }
}

// WithCheckOrigin overrides the websocket origin check.
func WithCheckOrigin(fn func(*http.Request) bool) ServerOption {
	return func(c *serverConfig) { c.checkOrigin = fn }
}

// New creates an EvalServer.
func New(opts ...ServerOption) *EvalServer {
	cfg := &serverConfig{maxSteps: DefaultMaxSteps}
	for _, opt := range opts {
		opt(cfg)
	}
	budget := session.WithVMOptions(vm.WithMaxSteps(cfg.maxSteps))

	s := &EvalServer{
		sessions: NewSessionStore(append(cfg.sessionOpts, budget)...),
		mux:      http.NewServeMux(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     cfg.checkOrigin,
		},
		log: commonlog.GetLogger("lispik.server"),
	}

	s.mux.HandleFunc("/ws", s.serveWS)
	s.mux.HandleFunc("/healthz", s.serveHealth)

	return s
}

// Handler returns the server's HTTP handler.
func (s *EvalServer) Handler() http.Handler {
	return s.mux
}

// Sessions returns the live session store.
func (s *EvalServer) Sessions() *SessionStore {
	return s.sessions
}

// ListenAndServe starts the HTTP server on the given address.
func (s *EvalServer) ListenAndServe(addr string) error {
	s.log.Noticef("Lispík eval server listening on %s (ws://%s/ws)", addr, addr)
	return http.ListenAndServe(addr, s.mux)
}

// Stop shuts down every session worker.
func (s *EvalServer) Stop() {
	s.sessions.DestroyAll()
}

func (s *EvalServer) serveHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"status": "ok", "sessions": s.sessions.Len()})
}

// Request is a client message.
type Request struct {
	Source string `json:"source"`
	Input  string `json:"input,omitempty"`
}

// Response answers one Request. Error responses carry Stage and Kind.
type Response struct {
	Session string   `json:"session"`
	Results []string `json:"results,omitempty"`
	Defined []string `json:"defined,omitempty"`
	Output  string   `json:"output,omitempty"`
	Steps   int      `json:"steps,omitempty"`
	Error   string   `json:"error,omitempty"`
	Stage   string   `json:"stage,omitempty"`
	Kind    string   `json:"kind,omitempty"`
}

func (s *EvalServer) serveWS(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Errorf("websocket upgrade: %s", err)
		return
	}
	defer ws.Close()

	conn := s.sessions.Create()
	defer s.sessions.Destroy(conn.ID)
	s.log.Infof("session %s connected from %s", conn.ID, r.RemoteAddr)

	ws.SetReadLimit(maxMessageSize)
	ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	replies := make(chan *Response, 16)
	done := make(chan struct{})
	go s.writeLoop(ws, replies, done)
	defer func() {
		close(replies)
		<-done
	}()

	for {
		messageType, message, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNoStatusReceived) {
				s.log.Warningf("session %s: %s", conn.ID, err)
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}
		replies <- s.handle(conn, message)
	}
}

func (s *EvalServer) writeLoop(ws *websocket.Conn, replies <-chan *Response, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case reply, ok := <-replies:
			ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := ws.WriteJSON(reply); err != nil {
				s.log.Errorf("session %s: write: %s", reply.Session, err)
				// Keep draining so the reader never blocks on a dead socket.
				for range replies {
				}
				return
			}
		case <-ticker.C:
			ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				for range replies {
				}
				return
			}
		}
	}
}

// handle evaluates one raw message.
func (s *EvalServer) handle(conn *Conn, message []byte) *Response {
	resp := &Response{Session: conn.ID}

	var req Request
	if err := json.Unmarshal(message, &req); err != nil {
		resp.Error = "invalid request: " + err.Error()
		resp.Stage = "request"
		return resp
	}

	outcome, err := conn.Eval(req.Source, req.Input)
	if err != nil {
		resp.Error = err.Error()
		resp.Stage = string(session.StageOther)
		return resp
	}
	resp.Output = outcome.Output
	if outcome.Err != nil {
		stage, kind := session.Classify(outcome.Err)
		resp.Error = outcome.Err.Error()
		resp.Stage = string(stage)
		resp.Kind = kind
		return resp
	}

	resp.Results = make([]string, len(outcome.Result.Values))
	for i, v := range outcome.Result.Values {
		resp.Results[i] = v.String()
	}
	resp.Defined = outcome.Result.Defined
	resp.Steps = outcome.Result.Steps
	return resp
}
