package gateway

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/phuslu/log"
)

const (
	janitorInterval = 5 * time.Second
	stopGrace       = 1 * time.Second
	socketWaitTries = 100
	socketWaitStep  = 20 * time.Millisecond
)

// Backend locates the FastCGI server a request should be sent to.
type Backend interface {
	Addr() (network, address string, err error)
}

// Static is a Backend that is already running.
type Static struct {
	Network string
	Address string
}

func (s Static) Addr() (string, string, error) {
	return s.Network, s.Address, nil
}

type childProcess struct {
	cmd           *exec.Cmd
	socketPath    string
	lastUsed      time.Time
	binaryModTime time.Time
	exited        chan struct{}
}

func (c *childProcess) alive() bool {
	select {
	case <-c.exited:
		return false
	default:
		return true
	}
}

// Spawner is a Backend that runs the handler binary on a unix socket,
// starting it on demand and restarting it when the binary changes.
type Spawner struct {
	binary      string
	socketDir   string
	idleTimeout time.Duration

	mu    sync.Mutex
	child *childProcess
}

func NewSpawner(binary, socketDir string, idleTimeout time.Duration) *Spawner {
	return &Spawner{
		binary:      binary,
		socketDir:   socketDir,
		idleTimeout: idleTimeout,
	}
}

// Addr returns the socket of a running handler, starting one if needed.
func (s *Spawner) Addr() (string, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	info, err := os.Stat(s.binary)
	if os.IsNotExist(err) {
		return "", "", fmt.Errorf("handler not found: %s", s.binary)
	}
	if err != nil {
		return "", "", fmt.Errorf("failed to get file info for %s: %w", s.binary, err)
	}

	if c := s.child; c != nil {
		if c.alive() && !info.ModTime().After(c.binaryModTime) {
			c.lastUsed = time.Now()
			return "unix", c.socketPath, nil
		}
		log.Info().Int("pid", c.cmd.Process.Pid).Str("handler", s.binary).Msg("handler exited or binary changed, restarting")
		s.stopLocked()
	}

	c, err := s.start(info.ModTime())
	if err != nil {
		return "", "", err
	}
	s.child = c
	return "unix", c.socketPath, nil
}

func (s *Spawner) start(modTime time.Time) (*childProcess, error) {
	if err := os.MkdirAll(s.socketDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create socket directory: %w", err)
	}
	socketPath := filepath.Join(s.socketDir, filepath.Base(s.binary)+".sock")
	_ = os.Remove(socketPath)

	cmd := exec.Command(s.binary, socketPath)
	cmd.Stderr = os.Stderr
	cmd.Stdout = os.Stderr
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start handler %s: %w", s.binary, err)
	}

	c := &childProcess{
		cmd:           cmd,
		socketPath:    socketPath,
		lastUsed:      time.Now(),
		binaryModTime: modTime,
		exited:        make(chan struct{}),
	}
	go func() {
		err := cmd.Wait()
		log.Info().Err(err).Int("pid", cmd.Process.Pid).Msg("handler exited")
		close(c.exited)
	}()

	for i := 0; i < socketWaitTries; i++ {
		if _, err := os.Stat(socketPath); err == nil {
			break
		}
		if !c.alive() {
			return nil, fmt.Errorf("handler %s exited during startup", s.binary)
		}
		time.Sleep(socketWaitStep)
	}

	log.Info().Int("pid", cmd.Process.Pid).Str("socket", socketPath).Msg("started handler")
	return c, nil
}

// stopLocked terminates the current child: SIGTERM first, SIGKILL after
// a grace period. s.mu must be held.
func (s *Spawner) stopLocked() {
	c := s.child
	if c == nil {
		return
	}
	s.child = nil

	if c.alive() {
		if err := c.cmd.Process.Signal(syscall.SIGTERM); err != nil {
			log.Warn().Err(err).Int("pid", c.cmd.Process.Pid).Msg("SIGTERM failed")
		}
		select {
		case <-c.exited:
		case <-time.After(stopGrace):
			if err := c.cmd.Process.Kill(); err != nil {
				log.Warn().Err(err).Int("pid", c.cmd.Process.Pid).Msg("SIGKILL failed")
			}
			<-c.exited
		}
	}
	if err := os.Remove(c.socketPath); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Str("socket", c.socketPath).Msg("failed to remove socket")
	}
}

// Stop terminates the handler if it is running.
func (s *Spawner) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

// Run reaps dead or idle handlers and restarts on binary changes until
// ctx is done. The handler is stopped on return.
func (s *Spawner) Run(ctx context.Context) error {
	defer s.Stop()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create file watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(s.binary)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(s.binary), err)
	}
	log.Info().Str("handler", s.binary).Msg("watching handler binary for changes")

	ticker := time.NewTicker(janitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Name == s.binary && event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) != 0 {
				log.Info().Str("handler", s.binary).Str("op", event.Op.String()).Msg("handler binary changed, stopping current process")
				s.Stop()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Msg("watcher error")
		case <-ticker.C:
			s.reap()
		}
	}
}

func (s *Spawner) reap() {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.child
	if c == nil {
		return
	}
	if !c.alive() {
		log.Info().Int("pid", c.cmd.Process.Pid).Msg("handler is no longer running, cleaning up")
		s.stopLocked()
		return
	}
	if s.idleTimeout > 0 && time.Since(c.lastUsed) > s.idleTimeout {
		log.Info().Int("pid", c.cmd.Process.Pid).Dur("idle", time.Since(c.lastUsed).Round(time.Second)).Msg("handler idle, terminating")
		s.stopLocked()
	}
}
