package supervisor

import (
	"os"
	"os/exec"
	"sync"

	"golang.org/x/sys/unix"
)

// Roles of the processes a session can track.
const (
	RoleProxy       = "proxy"
	RoleAppServer   = "app-server"
	RoleModelServer = "model-server"
)

type member struct {
	role   string
	cmd    *exec.Cmd
	quit   os.Signal
	reaped bool
}

// Group is the set of processes tracked by one supervised session. Every
// member is signaled on termination and the first member to exit ends the
// session.
type Group struct {
	mu      sync.Mutex
	members []*member
	pub     EventPublisher
	session string
}

func newGroup(session string, pub EventPublisher) *Group {
	if pub == nil {
		pub = noopPublisher{}
	}
	return &Group{session: session, pub: pub}
}

// Add tracks a started command. quit is the signal sent to it on termination.
func (g *Group) Add(role string, cmd *exec.Cmd, quit os.Signal) {
	g.mu.Lock()
	g.members = append(g.members, &member{role: role, cmd: cmd, quit: quit})
	g.mu.Unlock()
}

// Len returns the number of tracked processes.
func (g *Group) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.members)
}

// Pids returns the process ids of all tracked members.
func (g *Group) Pids() []int {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]int, 0, len(g.members))
	for _, m := range g.members {
		if m.cmd != nil && m.cmd.Process != nil {
			out = append(out, m.cmd.Process.Pid)
		}
	}
	return out
}

// Terminate sends every member its quit signal. Delivery is independent per
// member and failures (typically a process that already exited) are ignored.
// Members already reaped by the wait loop are skipped.
// It never waits for the members to exit.
func (g *Group) Terminate() {
	g.mu.Lock()
	live := make([]member, 0, len(g.members))
	for _, m := range g.members {
		if m.reaped || m.cmd == nil || m.cmd.Process == nil || m.quit == nil {
			continue
		}
		live = append(live, *m)
	}
	g.mu.Unlock()
	for _, m := range live {
		if err := m.cmd.Process.Signal(m.quit); err != nil {
			continue
		}
		signalsTotal.WithLabelValues(m.role, signalName(m.quit)).Inc()
		g.pub.Publish(Event{Name: "signal_forward", Session: g.session, Role: m.role, Fields: map[string]any{"pid": m.cmd.Process.Pid, "signal": signalName(m.quit)}})
	}
}

// claim marks pid as reaped and returns its member, or nil if pid is not tracked.
func (g *Group) claim(pid int) *member {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, m := range g.members {
		if m.reaped || m.cmd == nil || m.cmd.Process == nil {
			continue
		}
		if m.cmd.Process.Pid == pid {
			m.reaped = true
			return m
		}
	}
	return nil
}

func (g *Group) pending() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for _, m := range g.members {
		if !m.reaped {
			n++
		}
	}
	return n
}

func signalName(s os.Signal) string {
	if us, ok := s.(unix.Signal); ok {
		if name := unix.SignalName(us); name != "" {
			return name
		}
	}
	return s.String()
}
