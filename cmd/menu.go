package cmd

import (
	"context"
	"os"
	"time"

	"github.com/appkeys/cli/pkg/config"
	"github.com/appkeys/cli/pkg/prompt"
	"github.com/appkeys/cli/pkg/provider"
	"github.com/appkeys/cli/pkg/provision"
	pkgbrowser "github.com/pkg/browser"
	"github.com/pterm/pterm"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

const (
	menuCreate       = "Create a GitHub OAuth app"
	menuCreateDual   = "Create DEV + PROD GitHub apps"
	menuCreateGoogle = "Create a Google OAuth client"
	menuVerify       = "Verify saved credentials"
	menuView         = "View saved credentials"
	menuDelete       = "Delete GitHub apps"
	menuClear        = "Clear browser session"
	menuAudit        = "View audit log"
	menuExit         = "Exit"
)

var menuItems = []string{
	menuCreate, menuCreateDual, menuCreateGoogle, menuVerify, menuView,
	menuDelete, menuClear, menuAudit, menuExit,
}

const (
	saveEnv       = "Write to an env file"
	saveClipboard = "Copy to clipboard"
	saveBoth      = "Write to an env file and copy to clipboard"
	savePrint     = "Only show them"
)

var envFileChoices = []string{".env", ".env.local", ".env.production"}

// Menu is the interactive front end shown when appkeys runs without a
// subcommand.
type Menu struct {
	prompt  prompt.Prompter
	cfg     *config.Config
	root    string
	github  GitHubCmd
	google  GoogleCmd
	verify  VerifyCmd
	env     EnvCmd
	audit   AuditCmd
	session SessionCmd
}

// Run shows the menu until the operator exits. A failed action is reported
// and the menu is shown again.
func (m Menu) Run(ctx context.Context) error {
	for {
		choice, err := m.prompt.Select("What would you like to do?", menuItems, menuCreate)
		if err != nil {
			return err
		}
		if choice == menuExit {
			return nil
		}
		if err := m.dispatch(ctx, choice); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			pterm.Error.Println(err.Error())
		}
	}
}

func (m Menu) dispatch(ctx context.Context, choice string) error {
	switch choice {
	case menuCreate:
		return m.createGitHub(ctx)
	case menuCreateDual:
		return m.createDual(ctx)
	case menuCreateGoogle:
		return m.createGoogle(ctx)
	case menuVerify:
		return m.verifySaved(ctx)
	case menuView:
		return m.env.Show(ctx, EnvShowInput{Root: m.root})
	case menuDelete:
		return m.github.Delete(ctx, GitHubDeleteInput{})
	case menuClear:
		return m.clearSession(ctx)
	case menuAudit:
		return m.showAudit(ctx)
	}
	return nil
}

// saveChoice asks where created credentials should go.
func (m Menu) saveChoice() (SaveTarget, bool, error) {
	choice, err := m.prompt.Select("Where should the credentials go?", []string{saveEnv, saveClipboard, saveBoth, savePrint}, saveEnv)
	if err != nil {
		return SaveTarget{}, false, err
	}
	var t SaveTarget
	if choice == saveEnv || choice == saveBoth {
		if t.EnvFile, err = m.prompt.Select("Which env file?", envFileChoices, envFileChoices[0]); err != nil {
			return t, false, err
		}
	}
	return t, choice == saveClipboard || choice == saveBoth, nil
}

func (m Menu) createGitHub(ctx context.Context) error {
	op := prompt.Operator{P: m.prompt}
	name, err := op.AppName("", m.cfg.AppName)
	if err != nil {
		return err
	}
	homepage, err := op.URL("Homepage URL", "", m.cfg.BaseURL)
	if err != nil {
		return err
	}
	def := lo.CoalesceOrEmpty(m.cfg.CallbackURL, provider.MustLoad(provider.GitHub).CallbackURL(homepage))
	callback, err := op.URL("Callback URL", "", def)
	if err != nil {
		return err
	}
	target, cp, err := m.saveChoice()
	if err != nil {
		return err
	}
	verify, err := m.prompt.Confirm("Verify the credentials afterwards?", true)
	if err != nil {
		return err
	}
	return m.github.Create(ctx, GitHubCreateInput{
		AppName:     name,
		Description: m.cfg.AppDescription,
		HomepageURL: homepage,
		CallbackURL: callback,
		Target:      target,
		Post:        PostCreate{Copy: cp, Verify: verify},
	})
}

func (m Menu) createDual(ctx context.Context) error {
	op := prompt.Operator{P: m.prompt}
	name, err := op.AppName("", m.cfg.AppName)
	if err != nil {
		return err
	}
	dev, err := op.URL("DEV homepage URL", "", m.cfg.BaseURL)
	if err != nil {
		return err
	}
	prod, err := op.URL("PROD homepage URL", "", m.cfg.ProdBaseURL)
	if err != nil {
		return err
	}
	path, err := m.prompt.Text("Callback path", provider.MustLoad(provider.GitHub).CallbackPath)
	if err != nil {
		return err
	}
	mode, err := m.prompt.Select("How should the credentials be written?", []string{dualCombined, dualSplit, dualNone}, dualCombined)
	if err != nil {
		return err
	}
	in := GitHubDualInput{AppName: name, DevHomepage: dev, ProdHomepage: prod, CallbackPath: path, Mode: mode}
	if mode != dualNone {
		if in.DevFile, err = m.prompt.Select("Env file for the DEV app", envFileChoices, envFileChoices[0]); err != nil {
			return err
		}
	}
	if mode == dualSplit {
		if in.ProdFile, err = m.prompt.Select("Env file for the PROD app", envFileChoices, envFileChoices[2]); err != nil {
			return err
		}
	}
	if in.Post.Copy, err = m.prompt.Confirm("Copy the credentials to the clipboard?", false); err != nil {
		return err
	}
	return m.github.CreateDual(ctx, in)
}

func (m Menu) createGoogle(ctx context.Context) error {
	op := prompt.Operator{P: m.prompt}
	name, err := op.AppName("", m.cfg.GoogleAppName)
	if err != nil {
		return err
	}
	kind, err := m.prompt.Select("Application type", []string{string(provision.AppTypeWeb), string(provision.AppTypeDesktop)}, string(provision.AppTypeWeb))
	if err != nil {
		return err
	}
	project, err := m.prompt.Text("Project id (empty for the selected project)", "")
	if err != nil {
		return err
	}
	in := GoogleCreateInput{AppName: name, AppType: provision.AppType(kind), ProjectID: project}
	if in.AppType == provision.AppTypeWeb {
		origin, err := op.URL("JavaScript origin", "", m.cfg.BaseURL)
		if err != nil {
			return err
		}
		redirect, err := op.URL("Redirect URI", "", provider.MustLoad(provider.Google).CallbackURL(origin))
		if err != nil {
			return err
		}
		in.Origins, in.RedirectURIs = []string{origin}, []string{redirect}
	}
	if in.Target, in.Copy, err = m.saveChoice(); err != nil {
		return err
	}
	return m.google.Create(ctx, in)
}

func (m Menu) verifySaved(ctx context.Context) error {
	p, err := m.prompt.Select("Provider", provider.IDs(), provider.GitHub)
	if err != nil {
		return err
	}
	prefix, err := m.prompt.Text("Key prefix (empty for the standard keys)", "")
	if err != nil {
		return err
	}
	return m.verify.Run(ctx, VerifyInput{Provider: p, Prefix: prefix})
}

func (m Menu) clearSession(ctx context.Context) error {
	dir, external := m.cfg.ProfileDir()
	backup, err := m.prompt.Confirm("Back up the profile first?", false)
	if err != nil {
		return err
	}
	return m.session.Clear(ctx, SessionClearInput{ProfileDir: dir, External: external, Backup: backup})
}

func (m Menu) showAudit(ctx context.Context) error {
	if !m.cfg.SecureLogging {
		ok, err := m.prompt.Confirm("Secure logging is off. Enable it in .env?", false)
		if err != nil || !ok {
			return err
		}
		if err := m.audit.Enable(ctx, AuditEnableInput{EnvFile: ".env"}); err != nil {
			return err
		}
		m.cfg.SecureLogging = true
		pterm.Info.Println("Credentials created from now on will be recorded")
		return nil
	}
	p, err := m.prompt.Select("Provider", provider.IDs(), provider.GitHub)
	if err != nil {
		return err
	}
	return m.audit.List(ctx, AuditListInput{Provider: p})
}

func runMenu(cmd *cobra.Command, args []string) error {
	wd, err := os.Getwd()
	if err != nil {
		return err
	}
	p := prompt.Terminal{}
	saver := newSaver(p)
	verifier := newVerifier()
	m := Menu{
		prompt:  p,
		cfg:     loadedConfig(),
		root:    wd,
		github:  GitHubCmd{open: openBrowserConsole, prompt: p, saver: saver, verifier: verifier, browse: pkgbrowser.OpenURL},
		google:  GoogleCmd{open: openBrowserConsole, prompt: p, saver: saver, verifier: verifier},
		verify:  VerifyCmd{verifier: verifier, browse: pkgbrowser.OpenURL, getenv: os.Getenv},
		env:     EnvCmd{prompt: p},
		audit:   AuditCmd{open: openAuditLister},
		session: SessionCmd{prompt: p, now: time.Now},
	}
	pterm.DefaultHeader.WithFullWidth().Println("appkeys: OAuth app credentials")
	return m.Run(cmd.Context())
}
