package supervisor

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"

	"modelshim/internal/config"
	"modelshim/internal/render"
)

// Placeholder names understood by the shipped templates.
const (
	ProxyPortPlaceholder     = "NGINX_HTTP_PORT"
	InferencePortPlaceholder = "INFERENCE_HTTP_PORT"
)

// Supervisor starts the serving stack and waits for it.
type Supervisor struct {
	cfg      config.Config
	env      config.ServingEnv
	log      zerolog.Logger
	pub      EventPublisher
	renderer *render.Renderer
	sigs     []os.Signal
	stdout   io.Writer
	stderr   io.Writer
	wait     waitFunc
}

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithLogger sets the structured logger.
func WithLogger(l zerolog.Logger) Option { return func(s *Supervisor) { s.log = l } }

// WithPublisher installs an EventPublisher for lifecycle events.
func WithPublisher(p EventPublisher) Option {
	return func(s *Supervisor) {
		if p != nil {
			s.pub = p
		}
	}
}

// WithSignals overrides the signals that trigger termination (default SIGTERM).
func WithSignals(sigs ...os.Signal) Option {
	return func(s *Supervisor) {
		if len(sigs) > 0 {
			s.sigs = sigs
		}
	}
}

// WithOutput sets where children write stdout and stderr (default: inherited).
func WithOutput(stdout, stderr io.Writer) Option {
	return func(s *Supervisor) {
		s.stdout = stdout
		s.stderr = stderr
	}
}

// New constructs a Supervisor for one serving session. cfg is merged with
// config.Default() so zero fields are always usable.
func New(cfg config.Config, env config.ServingEnv, opts ...Option) *Supervisor {
	s := &Supervisor{
		cfg:    cfg.Merge(config.Default()),
		env:    env,
		log:    zerolog.Nop(),
		pub:    noopPublisher{},
		sigs:   []os.Signal{unix.SIGTERM},
		stdout: os.Stdout,
		stderr: os.Stderr,
	}
	for _, o := range opts {
		o(s)
	}
	s.renderer = render.New(s.log)
	return s
}

// AppServerArgs returns the app server command line for the given bind
// address and entry point.
func (s *Supervisor) AppServerArgs(bind, entryPoint string) []string {
	return []string{
		"--timeout", strconv.Itoa(s.env.TimeoutSec),
		"-k", s.cfg.WorkerClass,
		"-b", bind,
		"--worker-connections", strconv.Itoa(s.cfg.ConnsPerWorker * s.env.Workers),
		"-w", strconv.Itoa(s.env.Workers),
		"--log-level", "info",
		entryPoint,
	}
}

// StartServingStack starts the optional proxy and the app server serving
// appEntryPoint, then blocks until one of them exits or ctx is canceled and
// the resulting termination completes.
func (s *Supervisor) StartServingStack(ctx context.Context, appEntryPoint string) (Exit, error) {
	session := uuid.NewString()
	g := newGroup(session, s.pub)
	term := installTerminationHandler(ctx, g, s.sigs...)
	defer term.uninstall()

	bind := fmt.Sprintf("0.0.0.0:%d", s.env.HTTPPort)
	if s.env.UseProxy {
		bind = s.cfg.SocketBind
		values := map[string]string{ProxyPortPlaceholder: strconv.Itoa(s.env.HTTPPort)}
		if err := s.renderer.Render(s.cfg.ProxyTemplate, s.cfg.ProxyConfig, values); err != nil {
			return Exit{}, fmt.Errorf("proxy config: %w", err)
		}
		if err := s.spawn(g, RoleProxy, s.cfg.ProxyBin, []string{"-c", s.cfg.ProxyConfig}, unix.SIGQUIT); err != nil {
			return Exit{}, err
		}
	}

	if err := s.spawn(g, RoleAppServer, s.cfg.AppServerBin, s.AppServerArgs(bind, appEntryPoint), unix.SIGTERM); err != nil {
		// Best effort: do not leave the proxy running without a backend.
		g.Terminate()
		return Exit{}, err
	}
	return s.supervise(g, term)
}

// StartModelServerStack archives the model, renders the model server config,
// starts the model server and blocks until it exits.
func (s *Supervisor) StartModelServerStack(ctx context.Context) (Exit, error) {
	session := uuid.NewString()
	g := newGroup(session, s.pub)
	term := installTerminationHandler(ctx, g, s.sigs...)
	defer term.uninstall()

	// A termination request during archiving kills the archiver.
	if err := s.archive(term.ctx, session); err != nil {
		return Exit{}, err
	}
	values := map[string]string{InferencePortPlaceholder: strconv.Itoa(s.env.HTTPPort)}
	if err := s.renderer.Render(s.cfg.ModelServerTmpl, s.cfg.ModelServerConfig, values); err != nil {
		return Exit{}, fmt.Errorf("model server config: %w", err)
	}
	s.log.Info().Msg("start model server")
	args := []string{"--start", "--mms-config", s.cfg.ModelServerConfig}
	if err := s.spawn(g, RoleModelServer, s.cfg.ModelServerBin, args, unix.SIGQUIT); err != nil {
		return Exit{}, err
	}
	return s.supervise(g, term)
}

func (s *Supervisor) spawn(g *Group, role, bin string, args []string, quit os.Signal) error {
	cmd := exec.Command(bin, args...)
	cmd.Stdout = s.stdout
	cmd.Stderr = s.stderr
	if err := cmd.Start(); err != nil {
		s.log.Error().Err(err).Str("role", role).Str("bin", bin).Msg("spawn failed")
		s.pub.Publish(Event{Name: "spawn_error", Session: g.session, Role: role, Fields: map[string]any{"bin": bin, "error": err.Error()}})
		return &SpawnError{Role: role, Bin: bin, Err: err}
	}
	g.Add(role, cmd, quit)
	spawnsTotal.WithLabelValues(role).Inc()
	s.log.Info().Str("role", role).Int("pid", cmd.Process.Pid).Str("bin", bin).Strs("args", args).Msg("spawned")
	s.pub.Publish(Event{Name: "spawn_start", Session: g.session, Role: role, Fields: map[string]any{"pid": cmd.Process.Pid, "bin": bin}})
	return nil
}

// supervise arms the termination handler over every member of g and waits
// for the first tracked exit.
func (s *Supervisor) supervise(g *Group, term *terminationHandler) (Exit, error) {
	term.arm()

	ex, err := g.waitFirst(s.wait)
	if err != nil {
		return Exit{}, err
	}
	s.log.Info().Str("role", ex.Role).Int("pid", ex.Pid).Int("code", ex.Code).Bool("signaled", ex.Signaled).Msg("tracked process exited, ending session")
	s.pub.Publish(Event{Name: "session_end", Session: g.session, Role: ex.Role, Fields: map[string]any{"pid": ex.Pid, "code": ex.Code, "signaled": ex.Signaled}})
	return ex, nil
}
