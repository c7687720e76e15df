package session

import (
	"context"
	"fmt"

	"github.com/appkeys/cli/pkg/page"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// RodLauncher launches a Chromium-family browser with go-rod.
type RodLauncher struct{}

func (RodLauncher) Launch(ctx context.Context, opts LaunchOptions) (Browser, error) {
	l := launcher.New().
		Context(ctx).
		UserDataDir(opts.ProfileDir).
		Headless(opts.Headless).
		Set("disable-blink-features", "AutomationControlled").
		Set("no-default-browser-check").
		Delete("enable-automation").
		Delete("no-startup-window")

	bin := opts.Executable
	if bin == "" {
		if found, ok := launcher.LookPath(); ok {
			bin = found
		}
	}
	// With no binary rod downloads its own Chromium.
	if bin != "" {
		l = l.Bin(bin)
	}

	u, err := l.Launch()
	if err != nil {
		return nil, err
	}

	b := rod.New().ControlURL(u).SlowMotion(opts.SlowMotion).NoDefaultDevice()
	if err := b.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}
	return &rodBrowser{launcher: l, browser: b, width: opts.Width, height: opts.Height}, nil
}

type rodBrowser struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	width    int
	height   int
}

// Page reuses the first open tab, creating one when none exists.
func (r *rodBrowser) Page(ctx context.Context) (page.Page, error) {
	b := r.browser.Context(ctx)
	pages, err := b.Pages()
	if err != nil {
		return nil, err
	}
	var p *rod.Page
	if pages.Empty() {
		p, err = b.Page(proto.TargetCreateTarget{})
		if err != nil {
			return nil, err
		}
	} else {
		p = pages.First()
	}
	if err := p.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             r.width,
		Height:            r.height,
		DeviceScaleFactor: 1,
	}); err != nil {
		return nil, fmt.Errorf("failed to set viewport: %w", err)
	}
	// Pages derived from the browser inherit ctx; detach them so later calls
	// can pass their own.
	return page.NewRodPage(p.Context(context.Background())), nil
}

func (r *rodBrowser) Close() error {
	return r.browser.Close()
}

func (r *rodBrowser) Stop() error {
	r.launcher.Kill()
	return nil
}
