package supervisor

import (
	"context"
	"os/exec"
	"time"
)

// archive packages the user's model directory with the configured archiver.
// It runs to completion before the model server is started.
func (s *Supervisor) archive(ctx context.Context, session string) error {
	name := s.env.FrameworkSupport()
	if name == "" {
		name = "model"
	}
	args := []string{
		"--model-name", name,
		"--handler", s.cfg.HandlerRef,
		"--model-path", s.env.ModelDir,
	}
	if s.cfg.ArchiveTimeoutSec > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(s.cfg.ArchiveTimeoutSec)*time.Second)
		defer cancel()
	}
	s.log.Info().Str("bin", s.cfg.ArchiverBin).Strs("args", args).Msg("archive")
	s.pub.Publish(Event{Name: "archive_start", Session: session, Fields: map[string]any{"model_name": name}})

	cmd := exec.CommandContext(ctx, s.cfg.ArchiverBin, args...)
	cmd.Stdout = s.stdout
	cmd.Stderr = s.stderr
	if err := cmd.Start(); err != nil {
		return &SpawnError{Role: "archiver", Bin: s.cfg.ArchiverBin, Err: err}
	}
	if err := cmd.Wait(); err != nil {
		return archiveError{err: err}
	}
	s.pub.Publish(Event{Name: "archive_done", Session: session})
	return nil
}
