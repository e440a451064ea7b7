package service

import (
	"encoding/json"
	"interview_assistant_backend/internal/config"
	"interview_assistant_backend/internal/proctor"
	"interview_assistant_backend/pkg/logger"
	"interview_assistant_backend/pkg/monitoring"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 32
)

// 客户端上行消息类型
const (
	MsgStart        = "start"
	MsgCameraReady  = "camera_ready"
	MsgCameraFailed = "camera_failed"
	MsgPresence     = "presence"
	MsgStop         = "stop"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type WSMessage struct {
	Type    string `json:"type"`
	Present *bool  `json:"present,omitempty"`
	Reason  string `json:"reason,omitempty"`
	Error   string `json:"error,omitempty"`
}

// SessionInfo 推给客户端的首条消息
type SessionInfo struct {
	Type      string        `json:"type"`
	SessionID string        `json:"sessionId"`
	State     proctor.State `json:"state"`
}

type ProctorSession struct {
	ID      string
	UserID  uint
	Hub     *ProctorHub
	Conn    *websocket.Conn
	Monitor *proctor.Monitor
	Limiter *rate.Limiter

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

// ProctorHub 管理所有监考 WebSocket 会话，每个会话独立的状态机
type ProctorHub struct {
	mu         sync.RWMutex
	sessions   map[string]*ProctorSession
	classifier *proctor.Classifier
	cfg        config.ProctorConfig
	clock      proctor.Clock
}

func NewProctorHub(cfg config.ProctorConfig, clock proctor.Clock) *ProctorHub {
	if clock == nil {
		clock = proctor.RealClock()
	}
	return &ProctorHub{
		sessions:   make(map[string]*ProctorSession),
		classifier: proctor.NewClassifier(ClassifierConfigFrom(cfg)),
		cfg:        cfg,
		clock:      clock,
	}
}

func ClassifierConfigFrom(cfg config.ProctorConfig) proctor.ClassifierConfig {
	c := proctor.DefaultClassifierConfig()
	if cfg.SkinRatioThreshold > 0 {
		c.SkinRatioThreshold = cfg.SkinRatioThreshold
	}
	if cfg.MinRed > 0 {
		c.MinRed = cfg.MinRed
	}
	if cfg.MaxRed > 0 {
		c.MaxRed = cfg.MaxRed
	}
	if cfg.ChannelMargin > 0 {
		c.ChannelMargin = cfg.ChannelMargin
	}
	return c
}

func MonitorConfigFrom(cfg config.ProctorConfig) proctor.MonitorConfig {
	c := proctor.DefaultMonitorConfig()
	if cfg.MaxConsecutiveMiss > 0 {
		c.MaxConsecutiveMiss = cfg.MaxConsecutiveMiss
	}
	if cfg.AbsenceTimeoutMS > 0 {
		c.AbsenceTimeout = time.Duration(cfg.AbsenceTimeoutMS) * time.Millisecond
	}
	if cfg.TerminateAfterMS > 0 {
		c.TerminateAfter = time.Duration(cfg.TerminateAfterMS) * time.Millisecond
	}
	if cfg.RedirectDelayMS > 0 {
		c.RedirectDelay = time.Duration(cfg.RedirectDelayMS) * time.Millisecond
	}
	return c
}

// UpdateConfig 热更新阈值，只影响之后新建的会话
func (h *ProctorHub) UpdateConfig(cfg config.ProctorConfig) {
	h.mu.Lock()
	h.cfg = cfg
	h.classifier = proctor.NewClassifier(ClassifierConfigFrom(cfg))
	h.mu.Unlock()
}

func (h *ProctorHub) config() config.ProctorConfig {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.cfg
}

func (h *ProctorHub) Classifier() *proctor.Classifier {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.classifier
}

func (h *ProctorHub) ActiveSessions() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

func (h *ProctorHub) Session(id string) *ProctorSession {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.sessions[id]
}

// NewSession 创建会话但不绑定连接，Conn 为空时事件只进入发送队列
func (h *ProctorHub) NewSession(userID uint, conn *websocket.Conn) *ProctorSession {
	s := &ProctorSession{
		ID:      uuid.NewString(),
		UserID:  userID,
		Hub:     h,
		Conn:    conn,
		Limiter: rate.NewLimiter(rate.Limit(30), 50), // 每秒30帧，允许突发50帧
		send:    make(chan []byte, sendBuffer),
	}
	s.Monitor = proctor.NewMonitor(MonitorConfigFrom(h.config()), h.clock, s.onEvent)

	h.mu.Lock()
	h.sessions[s.ID] = s
	h.mu.Unlock()
	monitoring.ProctorSessions.Inc()
	return s
}

func (h *ProctorHub) remove(s *ProctorSession) {
	h.mu.Lock()
	_, ok := h.sessions[s.ID]
	delete(h.sessions, s.ID)
	h.mu.Unlock()
	if ok {
		monitoring.ProctorSessions.Dec()
	}
}

// Stop 关闭所有会话
func (h *ProctorHub) Stop() {
	h.mu.RLock()
	sessions := make([]*ProctorSession, 0, len(h.sessions))
	for _, s := range h.sessions {
		sessions = append(sessions, s)
	}
	h.mu.RUnlock()

	for _, s := range sessions {
		s.Close()
	}
	logger.Log.Info("ProctorHub stopped", zap.Int("closedSessions", len(sessions)))
}

func (h *ProctorHub) ServeWs(w http.ResponseWriter, r *http.Request, userID uint) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Error("WebSocket upgrade failed", zap.Error(err), zap.Uint("userId", userID))
		return
	}
	s := h.NewSession(userID, conn)
	logger.Log.Info("Proctor session opened", zap.String("sessionId", s.ID), zap.Uint("userId", userID))

	s.enqueue(SessionInfo{Type: "session", SessionID: s.ID, State: s.Monitor.State()})
	go s.writePump()
	s.readPump()
}

// Send 返回待发送队列，测试中直接读取
func (s *ProctorSession) Send() <-chan []byte {
	return s.send
}

func (s *ProctorSession) onEvent(ev proctor.Event) {
	if ev.State == proctor.StateTerminated && ev.Message == proctor.MessageTerminated {
		monitoring.ProctorTerminations.Inc()
		logger.Log.Info("Proctored session terminated", zap.String("sessionId", s.ID), zap.Uint("userId", s.UserID))
	}
	s.enqueue(ev)
}

func (s *ProctorSession) enqueue(v interface{}) {
	payload, err := json.Marshal(v)
	if err != nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.send <- payload:
	default:
		logger.Log.Warn("Proctor send buffer full, dropping event", zap.String("sessionId", s.ID))
	}
}

// HandleText 处理一条文本控制消息
func (s *ProctorSession) HandleText(data []byte) {
	var msg WSMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	switch msg.Type {
	case MsgStart:
		s.Monitor.Start()
	case MsgCameraReady:
		s.Monitor.Start()
		s.Monitor.CameraReady()
	case MsgCameraFailed:
		reason := msg.Reason
		if reason == "" {
			reason = msg.Error
		}
		s.Monitor.CameraFailed(reason)
	case MsgPresence:
		if msg.Present != nil {
			s.Monitor.Observe(*msg.Present)
		}
	case MsgStop:
		s.Monitor.Close()
	}
}

// HandleFrame 对一帧图像做肤色判定后输入状态机
func (s *ProctorSession) HandleFrame(data []byte) {
	if max := s.Hub.config().MaxFrameBytes; max > 0 && int64(len(data)) > max {
		return
	}
	res, err := s.Hub.Classifier().ClassifyBytes(data)
	if err != nil {
		// 解码失败的帧按未检测到人脸处理
		s.Monitor.Observe(false)
		return
	}
	s.Monitor.Observe(res.FacePresent)
}

func (s *ProctorSession) Close() {
	s.Monitor.Close()
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.send)
	}
	s.mu.Unlock()
	s.Hub.remove(s)
}

func (s *ProctorSession) readPump() {
	defer func() {
		s.Close()
		s.Conn.Close()
		logger.Log.Info("Proctor session closed", zap.String("sessionId", s.ID))
	}()
	limit := s.Hub.config().MaxFrameBytes
	if limit <= 0 {
		limit = 4 << 20
	}
	s.Conn.SetReadLimit(limit)
	s.Conn.SetReadDeadline(time.Now().Add(pongWait))
	s.Conn.SetPongHandler(func(string) error { s.Conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		kind, data, err := s.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Log.Error("WebSocket unexpected close", zap.Error(err), zap.Uint("userId", s.UserID))
			}
			return
		}
		s.Conn.SetReadDeadline(time.Now().Add(pongWait))

		switch kind {
		case websocket.BinaryMessage:
			if !s.Limiter.Allow() {
				continue
			}
			s.HandleFrame(data)
		case websocket.TextMessage:
			s.HandleText(data)
		}
	}
}

func (s *ProctorSession) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.Conn.Close()
	}()
	for {
		select {
		case message, ok := <-s.send:
			s.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				s.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			s.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
