package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/appkeys/cli/pkg/authflow"
	"github.com/appkeys/cli/pkg/page"
	"github.com/appkeys/cli/pkg/prompt"
	"github.com/appkeys/cli/pkg/provider"
	"github.com/appkeys/cli/pkg/provision"
	"github.com/appkeys/cli/pkg/selector"
	"github.com/appkeys/cli/pkg/session"
	"github.com/appkeys/cli/pkg/termimg"
	"github.com/pterm/pterm"
)

// Console is a browser session on one provider's developer console.
type Console interface {
	SignIn(ctx context.Context) error
	Create(ctx context.Context, cfg *provision.AppConfig) (*provision.Result, error)
	List(ctx context.Context) ([]provision.App, error)
	Delete(ctx context.Context, app provision.App) (bool, error)
	Screenshot(ctx context.Context) ([]byte, error)
	Close() error
}

// ConsoleOpener launches a browser for providerID. op answers the workflow's
// questions.
type ConsoleOpener func(ctx context.Context, providerID string, op prompt.Operator) (Console, error)

type browserConsole struct {
	mgr  *session.Manager
	page page.Page
	auth *authflow.Machine
	wf   *provision.Workflow
}

func (c *browserConsole) SignIn(ctx context.Context) error {
	pterm.Info.Println("Checking sign-in status...")
	if err := c.auth.EnsureLoggedIn(ctx); err != nil {
		return err
	}
	pterm.Success.Println("Signed in")
	return nil
}

func (c *browserConsole) Create(ctx context.Context, cfg *provision.AppConfig) (*provision.Result, error) {
	return c.wf.Create(ctx, cfg)
}

func (c *browserConsole) List(ctx context.Context) ([]provision.App, error) {
	return c.wf.List(ctx)
}

func (c *browserConsole) Delete(ctx context.Context, app provision.App) (bool, error) {
	return c.wf.Delete(ctx, app)
}

func (c *browserConsole) Screenshot(ctx context.Context) ([]byte, error) {
	return c.page.Screenshot(ctx)
}

func (c *browserConsole) Close() error {
	return c.mgr.Close()
}

// openBrowserConsole is the production ConsoleOpener.
func openBrowserConsole(ctx context.Context, providerID string, op prompt.Operator) (Console, error) {
	c := loadedConfig()
	log := cmdLogger()

	prov, err := provider.Load(providerID, c.SelectorsDir)
	if err != nil {
		return nil, err
	}
	dir, external := c.ProfileDir()
	if external {
		pterm.Info.Printf("Using browser profile %s\n", dir)
	}
	mgr := session.New(session.Options{
		ProfileDir:     dir,
		External:       external,
		ExecutablePath: c.ExecutablePath,
		Headless:       c.Headless,
		SlowMotion:     session.DefaultSlowMotion,
		Logger:         log,
	})

	spinner, _ := pterm.DefaultSpinner.Start("Launching browser...")
	pg, err := mgr.Start(ctx)
	if err != nil {
		if spinner != nil {
			spinner.Fail("Could not launch browser")
		}
		_ = mgr.Close()
		var lockErr *session.ProfileLockError
		if errors.As(err, &lockErr) {
			return nil, fmt.Errorf("%w; close the browser using it and try again", err)
		}
		return nil, err
	}
	if spinner != nil {
		spinner.Success("Browser ready")
	}

	res := selector.NewResolver(pg, prov.Intents, log)
	auth := authflow.New(res, prov, authflow.WithPassword(c.GitHubPassword), authflow.WithLogger(log))
	wf, err := provision.New(provision.Config{
		Resolver: res,
		Provider: prov,
		Auth:     auth,
		Renamer:  op,
		Secrets:  op,
		Logger:   log,
	})
	if err != nil {
		_ = mgr.Close()
		return nil, err
	}
	return &browserConsole{mgr: mgr, page: pg, auth: auth, wf: wf}, nil
}

// withConsole opens a signed-in console, runs fn and always closes the
// browser. On failure the page is shown inline when the terminal can, and
// the browser stays open until the operator presses Enter.
func withConsole(ctx context.Context, open ConsoleOpener, p prompt.Prompter, providerID string, fn func(Console) error) (err error) {
	op := prompt.Operator{P: p}
	c, err := open(ctx, providerID, op)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := c.Close(); cerr != nil {
			cmdLogger().Warn("browser did not close cleanly", cmdLogger().Args("error", cerr))
		}
	}()

	if err = c.SignIn(ctx); err == nil {
		err = fn(c)
	}
	if err != nil && ctx.Err() == nil {
		pterm.Error.Println("The run failed. The browser is left open so you can inspect the page.")
		if img, serr := c.Screenshot(ctx); serr == nil {
			termimg.ShowScreenshot(img)
		}
		op.Pause("Press Enter to close the browser...")
	}
	return err
}
