package proctor

import (
	"sync"
	"time"
)

type State string

const (
	StateIdle           State = "idle"
	StateCameraStarting State = "camera_starting"
	StateMonitoring     State = "monitoring"
	StateFaceLost       State = "face_lost"
	StateTerminated     State = "terminated"
)

const (
	MessageFaceLost      = "Face not detected. Please return to the camera."
	MessageTerminated    = "Face not detected. The test has been terminated."
	MessageCameraFailure = "Unable to access camera. Please allow camera permissions."
)

// Event 每次状态变化推给客户端一次
type Event struct {
	Type            string `json:"type"`
	State           State  `json:"state"`
	Message         string `json:"message,omitempty"`
	RedirectAfterMs int    `json:"redirectAfterMs,omitempty"`
}

type MonitorConfig struct {
	MaxConsecutiveMiss int
	AbsenceTimeout     time.Duration
	TerminateAfter     time.Duration
	RedirectDelay      time.Duration
}

func DefaultMonitorConfig() MonitorConfig {
	return MonitorConfig{
		MaxConsecutiveMiss: 5,
		AbsenceTimeout:     5 * time.Second,
		TerminateAfter:     3 * time.Second,
		RedirectDelay:      800 * time.Millisecond,
	}
}

// Monitor 单场监考的状态机。Terminated 为终态，新的一场考试需要新的 Monitor。
type Monitor struct {
	mu     sync.Mutex
	cfg    MonitorConfig
	clock  Clock
	notify func(Event)

	state  State
	misses int

	absenceTimer   Timer
	terminateTimer Timer
	// 每次布置计时器递增，过期回调据此丢弃
	generation uint64
}

func NewMonitor(cfg MonitorConfig, clock Clock, notify func(Event)) *Monitor {
	if clock == nil {
		clock = RealClock()
	}
	if notify == nil {
		notify = func(Event) {}
	}
	if cfg.MaxConsecutiveMiss <= 0 {
		cfg.MaxConsecutiveMiss = 1
	}
	return &Monitor{cfg: cfg, clock: clock, notify: notify, state: StateIdle}
}

func (m *Monitor) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Monitor) Misses() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.misses
}

func (m *Monitor) Start() {
	m.transition(func() *Event {
		if m.state != StateIdle {
			return nil
		}
		return m.setState(StateCameraStarting, "")
	})
}

func (m *Monitor) CameraReady() {
	m.transition(func() *Event {
		if m.state != StateCameraStarting {
			return nil
		}
		return m.setState(StateMonitoring, "")
	})
}

func (m *Monitor) CameraFailed(reason string) {
	m.transition(func() *Event {
		if m.state == StateTerminated {
			return nil
		}
		m.stopTimers()
		msg := MessageCameraFailure
		if reason != "" {
			msg = msg + " (" + reason + ")"
		}
		ev := m.setState(StateTerminated, msg)
		ev.RedirectAfterMs = int(m.cfg.RedirectDelay / time.Millisecond)
		return ev
	})
}

// Observe 输入一帧的判定结果
func (m *Monitor) Observe(present bool) {
	m.transition(func() *Event {
		switch m.state {
		case StateMonitoring:
			if present {
				m.misses = 0
				m.stopAbsenceTimer()
				return nil
			}
			m.misses++
			if m.misses >= m.cfg.MaxConsecutiveMiss {
				return m.enterFaceLost()
			}
			if m.absenceTimer == nil {
				gen := m.nextGeneration()
				m.absenceTimer = m.clock.AfterFunc(m.cfg.AbsenceTimeout, func() { m.onAbsenceTimeout(gen) })
			}
		case StateFaceLost:
			if !present {
				m.misses++
				return nil
			}
			m.misses = 0
			m.stopTimers()
			return m.setState(StateMonitoring, "")
		}
		return nil
	})
}

// Close 释放计时器，不产生事件
func (m *Monitor) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopTimers()
}

func (m *Monitor) onAbsenceTimeout(gen uint64) {
	m.transition(func() *Event {
		if gen != m.generation || m.state != StateMonitoring {
			return nil
		}
		m.absenceTimer = nil
		return m.enterFaceLost()
	})
}

func (m *Monitor) onTerminate(gen uint64) {
	m.transition(func() *Event {
		if gen != m.generation || m.state != StateFaceLost {
			return nil
		}
		m.terminateTimer = nil
		ev := m.setState(StateTerminated, MessageTerminated)
		ev.RedirectAfterMs = int(m.cfg.RedirectDelay / time.Millisecond)
		return ev
	})
}

func (m *Monitor) enterFaceLost() *Event {
	m.stopAbsenceTimer()
	gen := m.nextGeneration()
	m.terminateTimer = m.clock.AfterFunc(m.cfg.TerminateAfter, func() { m.onTerminate(gen) })
	return m.setState(StateFaceLost, MessageFaceLost)
}

// transition 在锁内计算状态变化，锁外通知
func (m *Monitor) transition(f func() *Event) {
	m.mu.Lock()
	ev := f()
	m.mu.Unlock()
	if ev != nil {
		m.notify(*ev)
	}
}

func (m *Monitor) setState(s State, msg string) *Event {
	m.state = s
	return &Event{Type: "state", State: s, Message: msg}
}

func (m *Monitor) nextGeneration() uint64 {
	m.generation++
	return m.generation
}

func (m *Monitor) stopAbsenceTimer() {
	if m.absenceTimer != nil {
		m.absenceTimer.Stop()
		m.absenceTimer = nil
		m.generation++
	}
}

func (m *Monitor) stopTimers() {
	m.stopAbsenceTimer()
	if m.terminateTimer != nil {
		m.terminateTimer.Stop()
		m.terminateTimer = nil
	}
	m.generation++
}
