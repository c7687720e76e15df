// Package session owns the browser used for automation: it prepares the
// persistent profile directory, enforces the single-owner rule on profiles the
// user brought along, launches the browser and tears it down exactly once.
package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/appkeys/cli/pkg/page"
	"github.com/appkeys/cli/pkg/util"
	"github.com/pterm/pterm"
)

const (
	DefaultWidth      = 1280
	DefaultHeight     = 900
	DefaultSlowMotion = 50 * time.Millisecond
)

// ErrExternalProfile is returned when an operation would modify a profile the
// tool does not own.
var ErrExternalProfile = errors.New("refusing to modify an external browser profile")

// ErrClosed is returned by Start after Close.
var ErrClosed = errors.New("browser session is closed")

// LaunchOptions are handed to a Launcher.
type LaunchOptions struct {
	ProfileDir string
	// Executable is empty when the bundled browser should be used.
	Executable string
	Headless   bool
	SlowMotion time.Duration
	Width      int
	Height     int
}

// Browser is a running browser process and the connection driving it.
type Browser interface {
	Page(ctx context.Context) (page.Page, error)
	// Close releases the automation connection and its pages.
	Close() error
	// Stop terminates the browser process.
	Stop() error
}

// Launcher starts browsers.
type Launcher interface {
	Launch(ctx context.Context, opts LaunchOptions) (Browser, error)
}

// Options configure a Manager.
type Options struct {
	ProfileDir string
	// External marks a profile supplied by the user. Its lock is never removed.
	External       bool
	ExecutablePath string
	Headless       bool
	SlowMotion     time.Duration
	Width          int
	Height         int

	Launcher Launcher
	Logger   *pterm.Logger
}

// Manager holds at most one live browser for a profile.
type Manager struct {
	opts   Options
	logger *pterm.Logger

	mu             sync.Mutex
	browser        Browser
	page           page.Page
	released       bool
	stopped        bool
	resolvedBinary string
}

// New returns a Manager. Nothing is launched until Start.
func New(opts Options) *Manager {
	if opts.Width == 0 {
		opts.Width = DefaultWidth
	}
	if opts.Height == 0 {
		opts.Height = DefaultHeight
	}
	if opts.Launcher == nil {
		opts.Launcher = RodLauncher{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = &pterm.DefaultLogger
	}
	return &Manager{opts: opts, logger: logger}
}

// Start prepares the profile, launches the browser and returns its page.
// Calling Start again returns the same page.
func (m *Manager) Start(ctx context.Context) (page.Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.page != nil {
		return m.page, nil
	}
	if m.released || m.stopped {
		return nil, ErrClosed
	}

	if err := m.prepareProfile(); err != nil {
		return nil, err
	}

	m.resolvedBinary = DefaultExecutable(m.opts.ExecutablePath)
	if m.opts.ExecutablePath != "" && m.resolvedBinary != m.opts.ExecutablePath {
		m.logger.Warn("browser executable override not found, falling back", m.logger.Args("path", m.opts.ExecutablePath))
	}
	binary := m.resolvedBinary
	if binary == "" {
		binary = "bundled"
	}
	m.logger.Info("launching browser", m.logger.Args("profile", m.opts.ProfileDir, "external", m.opts.External, "binary", binary))

	b, err := m.opts.Launcher.Launch(ctx, LaunchOptions{
		ProfileDir: m.opts.ProfileDir,
		Executable: m.resolvedBinary,
		Headless:   m.opts.Headless,
		SlowMotion: m.opts.SlowMotion,
		Width:      m.opts.Width,
		Height:     m.opts.Height,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}
	m.browser = b

	p, err := b.Page(ctx)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("failed to open page: %w", err), m.closeLocked())
	}
	m.page = p
	return p, nil
}

// Executable is the binary chosen by the last Start; empty means bundled.
func (m *Manager) Executable() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resolvedBinary
}

func (m *Manager) prepareProfile() error {
	dir := m.opts.ProfileDir
	if dir == "" {
		return errors.New("no browser profile directory configured")
	}

	if m.opts.External {
		info, err := os.Stat(dir)
		if err != nil {
			return fmt.Errorf("failed to open browser profile %s: %w", dir, err)
		}
		if !info.IsDir() {
			return fmt.Errorf("browser profile %s is not a directory", dir)
		}
		lock, err := readLock(dir)
		if err != nil {
			return err
		}
		if lock != nil {
			return &ProfileLockError{Path: dir, Host: lock.host, PID: lock.pid, Live: lock.live()}
		}
		return nil
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create browser profile %s: %w", dir, err)
	}
	if err := removeLock(dir); err != nil {
		m.logger.Warn("could not remove stale profile lock", m.logger.Args("profile", dir, "error", err))
	}
	return nil
}

// Close releases the page connection and then stops the browser. Each step
// runs at most once and a failure in one does not skip the other.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closeLocked()
}

func (m *Manager) closeLocked() error {
	if m.browser == nil {
		return nil
	}

	var errs []error
	if !m.released {
		m.released = true
		if err := m.browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close browser connection: %w", err))
		}
	}
	if !m.stopped {
		m.stopped = true
		if err := m.browser.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop browser: %w", err))
		}
	}
	m.page = nil
	return errors.Join(errs...)
}

// Clear deletes a tool-owned profile directory, archiving it to backupZip
// first when that is set.
func Clear(opts Options, backupZip string) error {
	if opts.External {
		return ErrExternalProfile
	}
	if _, err := os.Stat(opts.ProfileDir); os.IsNotExist(err) {
		return nil
	}
	if backupZip != "" {
		if err := util.ZipDirectory(opts.ProfileDir, backupZip); err != nil {
			return fmt.Errorf("failed to back up profile: %w", err)
		}
	}
	if err := os.RemoveAll(opts.ProfileDir); err != nil {
		return fmt.Errorf("failed to remove profile %s: %w", opts.ProfileDir, err)
	}
	return nil
}
