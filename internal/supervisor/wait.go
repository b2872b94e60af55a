package supervisor

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// Exit describes the tracked process whose exit ended a session.
type Exit struct {
	Role     string
	Pid      int
	Code     int
	Signaled bool
	Signal   string

	// SignalNum is set with Signaled.
	SignalNum int
}

// StatusCode maps e to a shell-style exit status: the exit code, or 128
// plus the signal number.
func (e Exit) StatusCode() int {
	if e.Signaled {
		return 128 + e.SignalNum
	}
	return e.Code
}

func (e Exit) String() string {
	if e.Signaled {
		return fmt.Sprintf("%s pid=%d killed by %s", e.Role, e.Pid, e.Signal)
	}
	return fmt.Sprintf("%s pid=%d exit=%d", e.Role, e.Pid, e.Code)
}

// waitFunc blocks until any child changes state and returns its pid.
type waitFunc func(ws *unix.WaitStatus) (int, error)

func wait4Any(ws *unix.WaitStatus) (int, error) {
	return unix.Wait4(-1, ws, 0, nil)
}

// waitFirst reaps children until one tracked by g exits. Children that are
// not tracked are reaped and ignored.
func (g *Group) waitFirst(wait waitFunc) (Exit, error) {
	if wait == nil {
		wait = wait4Any
	}
	for {
		if g.pending() == 0 {
			return Exit{}, errors.New("wait: no tracked processes")
		}
		var ws unix.WaitStatus
		pid, err := wait(&ws)
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return Exit{}, fmt.Errorf("wait: %w", err)
		}
		if !ws.Exited() && !ws.Signaled() {
			// stopped or continued, still alive
			continue
		}
		m := g.claim(pid)
		if m == nil {
			observeExit("", false)
			continue
		}
		observeExit(m.role, true)
		ex := Exit{Role: m.role, Pid: pid, Code: ws.ExitStatus()}
		if ws.Signaled() {
			ex.Signaled = true
			ex.Signal = signalName(ws.Signal())
			ex.SignalNum = int(ws.Signal())
		}
		return ex, nil
	}
}
