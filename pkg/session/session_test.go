package session

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/appkeys/cli/pkg/page"
	"github.com/appkeys/cli/pkg/page/pagetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// FakeBrowser implements Browser
type FakeBrowser struct {
	PageFunc  func(ctx context.Context) (page.Page, error)
	CloseFunc func() error
	StopFunc  func() error

	Closes int
	Stops  int
}

func (f *FakeBrowser) Page(ctx context.Context) (page.Page, error) {
	if f.PageFunc != nil {
		return f.PageFunc(ctx)
	}
	return pagetest.New("about:blank"), nil
}

func (f *FakeBrowser) Close() error {
	f.Closes++
	if f.CloseFunc != nil {
		return f.CloseFunc()
	}
	return nil
}

func (f *FakeBrowser) Stop() error {
	f.Stops++
	if f.StopFunc != nil {
		return f.StopFunc()
	}
	return nil
}

// FakeLauncher implements Launcher
type FakeLauncher struct {
	Browser  *FakeBrowser
	Err      error
	Launches []LaunchOptions
}

func (f *FakeLauncher) Launch(_ context.Context, opts LaunchOptions) (Browser, error) {
	f.Launches = append(f.Launches, opts)
	if f.Err != nil {
		return nil, f.Err
	}
	if f.Browser == nil {
		f.Browser = &FakeBrowser{}
	}
	return f.Browser, nil
}

func writeLock(t *testing.T, dir, target string) {
	t.Helper()
	require.NoError(t, os.Symlink(target, filepath.Join(dir, LockFile)))
}

func hostname(t *testing.T) string {
	t.Helper()
	h, err := os.Hostname()
	require.NoError(t, err)
	return h
}

func TestExternalProfileWithoutLockLaunches(t *testing.T) {
	dir := t.TempDir()
	l := &FakeLauncher{}
	m := New(Options{ProfileDir: dir, External: true, Launcher: l})

	p, err := m.Start(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, p)
	require.Len(t, l.Launches, 1)
	assert.Equal(t, dir, l.Launches[0].ProfileDir)
	assert.Equal(t, DefaultWidth, l.Launches[0].Width)
	assert.Equal(t, DefaultHeight, l.Launches[0].Height)
}

func TestExternalProfileWithLiveLockRefuses(t *testing.T) {
	dir := t.TempDir()
	writeLock(t, dir, fmt.Sprintf("%s-%d", hostname(t), os.Getpid()))
	l := &FakeLauncher{}
	m := New(Options{ProfileDir: dir, External: true, Launcher: l})

	_, err := m.Start(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProfileInUse)
	var lockErr *ProfileLockError
	require.ErrorAs(t, err, &lockErr)
	assert.True(t, lockErr.Live)
	assert.Equal(t, os.Getpid(), lockErr.PID)
	assert.Empty(t, l.Launches)

	// the lock is left alone
	_, statErr := os.Lstat(filepath.Join(dir, LockFile))
	assert.NoError(t, statErr)
}

func TestExternalProfileWithStaleLockRefuses(t *testing.T) {
	dir := t.TempDir()
	writeLock(t, dir, fmt.Sprintf("%s-%d", hostname(t), 99999999))
	l := &FakeLauncher{}
	m := New(Options{ProfileDir: dir, External: true, Launcher: l})

	_, err := m.Start(context.Background())
	var lockErr *ProfileLockError
	require.ErrorAs(t, err, &lockErr)
	assert.False(t, lockErr.Live)
	assert.Contains(t, err.Error(), "stale lock")
	assert.Empty(t, l.Launches)
}

func TestExternalProfileMissingDirFails(t *testing.T) {
	m := New(Options{ProfileDir: filepath.Join(t.TempDir(), "nope"), External: true, Launcher: &FakeLauncher{}})
	_, err := m.Start(context.Background())
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrProfileInUse)
}

func TestOwnedProfileRemovesLock(t *testing.T) {
	dir := t.TempDir()
	writeLock(t, dir, fmt.Sprintf("%s-%d", hostname(t), os.Getpid()))
	l := &FakeLauncher{}
	m := New(Options{ProfileDir: dir, Launcher: l})

	_, err := m.Start(context.Background())
	require.NoError(t, err)
	_, statErr := os.Lstat(filepath.Join(dir, LockFile))
	assert.True(t, os.IsNotExist(statErr))
	assert.Len(t, l.Launches, 1)
}

func TestOwnedProfileIsCreated(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "auth_session")
	m := New(Options{ProfileDir: dir, Launcher: &FakeLauncher{}})

	_, err := m.Start(context.Background())
	require.NoError(t, err)
	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestCloseIsIdempotent(t *testing.T) {
	l := &FakeLauncher{}
	m := New(Options{ProfileDir: t.TempDir(), Launcher: l})
	_, err := m.Start(context.Background())
	require.NoError(t, err)

	require.NoError(t, m.Close())
	require.NoError(t, m.Close())
	assert.Equal(t, 1, l.Browser.Closes)
	assert.Equal(t, 1, l.Browser.Stops)

	_, err = m.Start(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}

func TestCloseStopsEvenWhenReleaseFails(t *testing.T) {
	b := &FakeBrowser{CloseFunc: func() error { return errors.New("connection reset") }}
	m := New(Options{ProfileDir: t.TempDir(), Launcher: &FakeLauncher{Browser: b}})
	_, err := m.Start(context.Background())
	require.NoError(t, err)

	err = m.Close()
	assert.ErrorContains(t, err, "connection reset")
	assert.Equal(t, 1, b.Stops)
	assert.NoError(t, m.Close())
	assert.Equal(t, 1, b.Closes)
}

func TestCloseBeforeStartIsNoop(t *testing.T) {
	m := New(Options{ProfileDir: t.TempDir(), Launcher: &FakeLauncher{}})
	assert.NoError(t, m.Close())
}

func TestPageFailureTearsDown(t *testing.T) {
	b := &FakeBrowser{PageFunc: func(context.Context) (page.Page, error) { return nil, errors.New("no targets") }}
	m := New(Options{ProfileDir: t.TempDir(), Launcher: &FakeLauncher{Browser: b}})

	_, err := m.Start(context.Background())
	assert.ErrorContains(t, err, "no targets")
	assert.Equal(t, 1, b.Closes)
	assert.Equal(t, 1, b.Stops)
}

func TestLaunchFailure(t *testing.T) {
	m := New(Options{ProfileDir: t.TempDir(), Launcher: &FakeLauncher{Err: errors.New("boom")}})
	_, err := m.Start(context.Background())
	assert.ErrorContains(t, err, "failed to launch browser")
	assert.NoError(t, m.Close())
}

func TestResolveExecutable(t *testing.T) {
	dir := t.TempDir()
	override := filepath.Join(dir, "custom-chrome")
	common := filepath.Join(dir, "google-chrome")
	require.NoError(t, os.WriteFile(override, nil, 0o755))
	require.NoError(t, os.WriteFile(common, nil, 0o755))
	missing := filepath.Join(dir, "missing")

	tests := []struct {
		name       string
		override   string
		candidates []string
		want       string
	}{
		{name: "override wins", override: override, candidates: []string{common}, want: override},
		{name: "missing override falls back", override: missing, candidates: []string{missing, common}, want: common},
		{name: "nothing found means bundled", override: "", candidates: []string{missing}, want: ""},
		{name: "directories are skipped", override: dir, candidates: nil, want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveExecutable(tt.override, tt.candidates))
		})
	}
}

func TestCommonPaths(t *testing.T) {
	for _, goos := range []string{"linux", "darwin", "windows"} {
		assert.NotEmpty(t, CommonPaths(goos), goos)
	}
}

func TestParseLockTarget(t *testing.T) {
	host, pid := parseLockTarget("my-laptop.local-4242")
	assert.Equal(t, "my-laptop.local", host)
	assert.Equal(t, 4242, pid)

	host, pid = parseLockTarget("garbage")
	assert.Equal(t, "garbage", host)
	assert.Zero(t, pid)
}

func TestClear(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "auth_session")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "Default"), 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Default", "Cookies"), []byte("c"), 0o600))
	backup := filepath.Join(root, "backup.zip")

	require.NoError(t, Clear(Options{ProfileDir: dir}, backup))
	_, err := os.Stat(dir)
	assert.True(t, os.IsNotExist(err))

	zr, err := zip.OpenReader(backup)
	require.NoError(t, err)
	defer zr.Close()
	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	assert.Contains(t, names, filepath.Join("Default", "Cookies"))

	// clearing a missing profile is fine
	assert.NoError(t, Clear(Options{ProfileDir: dir}, ""))
	assert.ErrorIs(t, Clear(Options{ProfileDir: root, External: true}, ""), ErrExternalProfile)
}
