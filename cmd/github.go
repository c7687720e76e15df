package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/appkeys/cli/pkg/envfile"
	"github.com/appkeys/cli/pkg/prompt"
	"github.com/appkeys/cli/pkg/provider"
	"github.com/appkeys/cli/pkg/provision"
	"github.com/appkeys/cli/pkg/table"
	"github.com/appkeys/cli/pkg/util"
	pkgbrowser "github.com/pkg/browser"
	"github.com/pterm/pterm"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// GitHubCmd handles GitHub OAuth app operations independent of cobra.
type GitHubCmd struct {
	open     ConsoleOpener
	prompt   prompt.Prompter
	saver    *Saver
	verifier Verifier
	browse   func(url string) error
}

// PostCreate is what happens after credentials exist.
type PostCreate struct {
	Copy   bool
	Verify bool
	// TestMode offers to delete the new apps straight away.
	TestMode bool
}

type GitHubCreateInput struct {
	AppName     string
	Description string
	HomepageURL string
	CallbackURL string
	Target      SaveTarget
	Post        PostCreate
}

type GitHubDualInput struct {
	AppName      string
	DevHomepage  string
	ProdHomepage string
	CallbackPath string
	Mode         string
	DevFile      string
	ProdFile     string
	Strategy     envfile.Strategy
	Post         PostCreate
}

type GitHubDeleteInput struct {
	All         bool
	SkipConfirm bool
}

// created is a credential plus the prefix it is shown under when copied.
type created struct {
	cred       provision.Credential
	copyPrefix string
}

func (g GitHubCmd) Create(ctx context.Context, in GitHubCreateInput) error {
	cfg := &provision.AppConfig{
		Name:         in.AppName,
		Description:  in.Description,
		HomepageURL:  in.HomepageURL,
		RedirectURIs: []string{in.CallbackURL},
	}
	return withConsole(ctx, g.open, g.prompt, provider.GitHub, func(c Console) error {
		cred, err := g.createAndSave(ctx, c, cfg, in.Target)
		if err != nil {
			return err
		}
		return g.after(ctx, c, []created{{cred: cred, copyPrefix: in.Target.Prefix}}, in.Post)
	})
}

// CreateDual creates a development and a production app in one session.
func (g GitHubCmd) CreateDual(ctx context.Context, in GitHubDualInput) error {
	path := in.CallbackPath
	if path != "" && !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	dev := &provision.AppConfig{
		Name:         in.AppName + "-dev",
		HomepageURL:  strings.TrimRight(in.DevHomepage, "/"),
		RedirectURIs: []string{strings.TrimRight(in.DevHomepage, "/") + path},
	}
	prod := &provision.AppConfig{
		Name:         in.AppName + "-prod",
		HomepageURL:  strings.TrimRight(in.ProdHomepage, "/"),
		RedirectURIs: []string{strings.TrimRight(in.ProdHomepage, "/") + path},
	}
	devTarget, prodTarget := dualTargets(in)

	return withConsole(ctx, g.open, g.prompt, provider.GitHub, func(c Console) error {
		var done []created
		for _, step := range []struct {
			cfg    *provision.AppConfig
			target SaveTarget
			prefix string
		}{
			{dev, devTarget, ""},
			{prod, prodTarget, "PROD"},
		} {
			pterm.DefaultSection.Printf("Creating %s app", step.target.EnvType)
			cred, err := g.createAndSave(ctx, c, step.cfg, step.target)
			if err != nil {
				return err
			}
			done = append(done, created{cred: cred, copyPrefix: step.prefix})
		}
		pterm.Success.Println("Both applications created")
		return g.after(ctx, c, done, in.Post)
	})
}

// dualTargets maps a dual output mode to the two save targets. Combined
// mode writes PROD keys under a forced PROD prefix in the dev file.
func dualTargets(in GitHubDualInput) (dev, prod SaveTarget) {
	dev = SaveTarget{EnvType: "DEV", Strategy: in.Strategy}
	prod = SaveTarget{EnvType: "PROD", Strategy: in.Strategy}
	switch in.Mode {
	case dualCombined:
		dev.EnvFile = in.DevFile
		prod.EnvFile = in.DevFile
		prod.Prefix = "PROD"
		prod.ForcePrefix = true
	case dualSplit:
		dev.EnvFile = in.DevFile
		prod.EnvFile = in.ProdFile
	}
	return dev, prod
}

func (g GitHubCmd) createAndSave(ctx context.Context, c Console, cfg *provision.AppConfig, t SaveTarget) (provision.Credential, error) {
	res, err := c.Create(ctx, cfg)
	if err != nil {
		return provision.Credential{}, err
	}
	printWarnings(res)
	pterm.Success.Printf("Created %s\n", res.Credential.AppName)
	printCredential(res.Credential)
	if err := g.saver.Save(res.Credential, t); err != nil {
		return res.Credential, err
	}
	return res.Credential, nil
}

// after runs the optional clipboard, verification and test-mode steps.
func (g GitHubCmd) after(ctx context.Context, c Console, done []created, post PostCreate) error {
	if post.Copy {
		var sb strings.Builder
		for _, d := range done {
			sb.WriteString(blockFor(d.cred, "").Render(d.copyPrefix))
		}
		g.saver.Copy(sb.String())
	}
	if post.Verify && g.verifier != nil {
		prov := provider.MustLoad(provider.GitHub)
		for _, d := range done {
			printReport(d.cred.AppName, g.verifier.Verify(ctx, prov, d.cred.ClientID, d.cred.ClientSecret))
		}
	}
	if !post.TestMode {
		return nil
	}
	ok, err := g.prompt.Confirm(fmt.Sprintf("TEST MODE: delete the %d app(s) just created?", len(done)), false)
	if err != nil || !ok {
		return err
	}
	for _, d := range done {
		if d.cred.AppURL == "" {
			pterm.Warning.Printf("Cannot delete %s: its console URL was not captured\n", d.cred.AppName)
			continue
		}
		deleted, err := c.Delete(ctx, provision.App{Name: d.cred.AppName, URL: d.cred.AppURL})
		if err != nil {
			return err
		}
		if deleted {
			pterm.Success.Printf("Deleted %s\n", d.cred.AppName)
		}
	}
	return nil
}

func (g GitHubCmd) List(ctx context.Context) error {
	return withConsole(ctx, g.open, g.prompt, provider.GitHub, func(c Console) error {
		apps, err := c.List(ctx)
		if err != nil {
			return err
		}
		printApps(apps)
		return nil
	})
}

func printApps(apps []provision.App) {
	if len(apps) == 0 {
		pterm.Info.Println("No OAuth apps found")
		return
	}
	rows := pterm.TableData{{"App ID", "Name", "URL"}}
	for _, a := range apps {
		rows = append(rows, []string{a.ID, util.OrDash(a.Name), a.URL})
	}
	table.Print(rows, true)
}

func appLabel(a provision.App) string {
	return fmt.Sprintf("%s (%s)", util.OrDash(a.Name), a.ID)
}

// Delete removes apps chosen by the operator, or every app with All.
func (g GitHubCmd) Delete(ctx context.Context, in GitHubDeleteInput) error {
	return withConsole(ctx, g.open, g.prompt, provider.GitHub, func(c Console) error {
		apps, err := c.List(ctx)
		if err != nil {
			return err
		}
		if len(apps) == 0 {
			pterm.Info.Println("No OAuth apps found")
			return nil
		}

		selected := apps
		if !in.All {
			picked, err := g.prompt.MultiSelect("Select apps to delete", lo.Map(apps, func(a provision.App, _ int) string { return appLabel(a) }))
			if err != nil {
				return err
			}
			selected = lo.Filter(apps, func(a provision.App, _ int) bool { return lo.Contains(picked, appLabel(a)) })
		}
		if len(selected) == 0 {
			pterm.Info.Println("Nothing selected")
			return nil
		}

		if !in.SkipConfirm {
			ok, err := g.prompt.Confirm(fmt.Sprintf("Delete %d app(s)? This cannot be undone", len(selected)), false)
			if err != nil {
				return err
			}
			if !ok {
				pterm.Info.Println("Deletion cancelled")
				return nil
			}
		}

		var failed []string
		deleted := 0
		for _, a := range selected {
			ok, err := c.Delete(ctx, a)
			switch {
			case err != nil:
				pterm.Error.Printf("Failed to delete %s: %v\n", appLabel(a), err)
				failed = append(failed, appLabel(a))
			case !ok:
				pterm.Warning.Printf("No delete button for %s; it may already be gone\n", appLabel(a))
			default:
				deleted++
				pterm.Success.Printf("Deleted %s\n", appLabel(a))
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
		}
		pterm.Info.Printf("Deleted %d of %d app(s)\n", deleted, len(selected))
		if len(failed) > 0 {
			return fmt.Errorf("failed to delete %s", strings.Join(failed, ", "))
		}
		return nil
	})
}

// Open shows url, or the app list, in the operator's default browser.
func (g GitHubCmd) Open(url string) error {
	if url == "" {
		url = provider.MustLoad(provider.GitHub).ListURL
	}
	if err := g.browse(url); err != nil {
		return fmt.Errorf("failed to open %s: %w", url, err)
	}
	return nil
}

// --- Cobra wiring ---

var githubCmd = &cobra.Command{
	Use:   "github",
	Short: "Manage GitHub OAuth apps",
}

var githubCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a GitHub OAuth app and save its credentials",
	Args:  cobra.NoArgs,
	RunE:  runGitHubCreate,
}

var githubCreateDualCmd = &cobra.Command{
	Use:   "create-dual",
	Short: "Create development and production GitHub OAuth apps",
	Args:  cobra.NoArgs,
	RunE:  runGitHubCreateDual,
}

var githubListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your GitHub OAuth apps",
	Args:  cobra.NoArgs,
	RunE:  runGitHubList,
}

var githubDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete GitHub OAuth apps",
	Args:  cobra.NoArgs,
	RunE:  runGitHubDelete,
}

var githubOpenCmd = &cobra.Command{
	Use:   "open [url]",
	Short: "Open an app page (default: the app list) in your browser",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runGitHubOpen,
}

func init() {
	githubCmd.AddCommand(githubCreateCmd)
	githubCmd.AddCommand(githubCreateDualCmd)
	githubCmd.AddCommand(githubListCmd)
	githubCmd.AddCommand(githubDeleteCmd)
	githubCmd.AddCommand(githubOpenCmd)

	githubCmd.PersistentFlags().String("password", "", "GitHub password for sudo prompts (default $GITHUB_PASSWORD)")

	f := githubCreateCmd.Flags()
	f.String("app-name", "", "Application name (default $OAUTH_APP_NAME)")
	f.String("description", "", "Application description")
	f.String("homepage-url", "", "Homepage URL (default $OAUTH_BASE_URL)")
	f.String("callback-url", "", "Authorization callback URL (default <homepage>/api/auth/callback/github)")
	addSaveFlags(f)

	f = githubCreateDualCmd.Flags()
	f.String("app-name", "", "Base application name; -dev and -prod are appended")
	f.String("dev-homepage", "", "Development homepage URL (default $OAUTH_BASE_URL)")
	f.String("prod-homepage", "", "Production homepage URL (default $OAUTH_PROD_BASE_URL)")
	f.String("callback-path", "", "Callback path appended to each homepage")
	f.Var(dualModeFlag(), "mode", "Env output: combined (PROD_ keys in the dev file), split, or none")
	f.String("dev-file", ".env", "Env file for the development app")
	f.String("prod-file", ".env.production", "Env file for the production app in split mode")
	f.Var(conflictFlag(), "on-conflict", "When keys already exist: ask, generated, or archive")
	addPostFlags(f)

	githubDeleteCmd.Flags().Bool("all", false, "Delete every app without selecting")
	githubDeleteCmd.Flags().BoolP("yes", "y", false, "Skip confirmation prompt")
}

func addSaveFlags(f *pflag.FlagSet) {
	f.Bool("write-env", false, "Append the credentials to the env file")
	f.String("env-file", ".env", "Env file to write")
	f.String("prefix", "", "Write keys under this prefix (PREFIX_GITHUB_CLIENT_ID)")
	f.Var(conflictFlag(), "on-conflict", "When keys already exist: ask, generated, or archive")
	addPostFlags(f)
}

func addPostFlags(f *pflag.FlagSet) {
	f.Bool("copy", false, "Copy the credentials to the clipboard")
	f.Bool("verify", false, "Verify the credentials after creation")
	f.Bool("test-mode", false, "Offer to delete the new apps right away")
}

func newGitHubCmd() GitHubCmd {
	p := prompt.Terminal{}
	return GitHubCmd{
		open:     openBrowserConsole,
		prompt:   p,
		saver:    newSaver(p),
		verifier: newVerifier(),
		browse:   pkgbrowser.OpenURL,
	}
}

func applyPassword(cmd *cobra.Command) {
	if pw, _ := cmd.Flags().GetString("password"); pw != "" {
		loadedConfig().GitHubPassword = pw
	}
}

func postFromFlags(cmd *cobra.Command) PostCreate {
	cp, _ := cmd.Flags().GetBool("copy")
	v, _ := cmd.Flags().GetBool("verify")
	tm, _ := cmd.Flags().GetBool("test-mode")
	return PostCreate{Copy: cp, Verify: v, TestMode: tm}
}

func targetFromFlags(cmd *cobra.Command) SaveTarget {
	var t SaveTarget
	if write, _ := cmd.Flags().GetBool("write-env"); write {
		t.EnvFile, _ = cmd.Flags().GetString("env-file")
	}
	t.Prefix, _ = cmd.Flags().GetString("prefix")
	t.Strategy = flagStrategy(cmd.Flags(), "on-conflict")
	return t
}

func runGitHubCreate(cmd *cobra.Command, args []string) error {
	applyPassword(cmd)
	c := loadedConfig()
	g := newGitHubCmd()
	op := prompt.Operator{P: g.prompt}

	name, _ := cmd.Flags().GetString("app-name")
	name, err := op.AppName(lo.CoalesceOrEmpty(name, c.AppName), c.AppName)
	if err != nil {
		return err
	}
	homepage, _ := cmd.Flags().GetString("homepage-url")
	homepage, err = op.URL("Homepage URL", lo.CoalesceOrEmpty(homepage, c.BaseURL), c.BaseURL)
	if err != nil {
		return err
	}
	callback, _ := cmd.Flags().GetString("callback-url")
	def := lo.CoalesceOrEmpty(c.CallbackURL, provider.MustLoad(provider.GitHub).CallbackURL(homepage))
	callback, err = op.URL("Callback URL", lo.CoalesceOrEmpty(callback, def), def)
	if err != nil {
		return err
	}
	desc, _ := cmd.Flags().GetString("description")

	return g.Create(cmd.Context(), GitHubCreateInput{
		AppName:     name,
		Description: lo.CoalesceOrEmpty(desc, c.AppDescription),
		HomepageURL: homepage,
		CallbackURL: callback,
		Target:      targetFromFlags(cmd),
		Post:        postFromFlags(cmd),
	})
}

func runGitHubCreateDual(cmd *cobra.Command, args []string) error {
	applyPassword(cmd)
	c := loadedConfig()
	g := newGitHubCmd()
	op := prompt.Operator{P: g.prompt}

	name, _ := cmd.Flags().GetString("app-name")
	name, err := op.AppName(lo.CoalesceOrEmpty(name, c.AppName), c.AppName)
	if err != nil {
		return err
	}
	dev, _ := cmd.Flags().GetString("dev-homepage")
	if dev, err = op.URL("DEV homepage URL", lo.CoalesceOrEmpty(dev, c.BaseURL), c.BaseURL); err != nil {
		return err
	}
	prod, _ := cmd.Flags().GetString("prod-homepage")
	if prod, err = op.URL("PROD homepage URL", lo.CoalesceOrEmpty(prod, c.ProdBaseURL), c.ProdBaseURL); err != nil {
		return err
	}
	path, _ := cmd.Flags().GetString("callback-path")
	devFile, _ := cmd.Flags().GetString("dev-file")
	prodFile, _ := cmd.Flags().GetString("prod-file")

	return g.CreateDual(cmd.Context(), GitHubDualInput{
		AppName:      name,
		DevHomepage:  dev,
		ProdHomepage: prod,
		CallbackPath: lo.CoalesceOrEmpty(path, provider.MustLoad(provider.GitHub).CallbackPath),
		Mode:         flagString(cmd.Flags(), "mode"),
		DevFile:      devFile,
		ProdFile:     prodFile,
		Strategy:     flagStrategy(cmd.Flags(), "on-conflict"),
		Post:         postFromFlags(cmd),
	})
}

func runGitHubList(cmd *cobra.Command, args []string) error {
	applyPassword(cmd)
	return newGitHubCmd().List(cmd.Context())
}

func runGitHubDelete(cmd *cobra.Command, args []string) error {
	applyPassword(cmd)
	all, _ := cmd.Flags().GetBool("all")
	yes, _ := cmd.Flags().GetBool("yes")
	return newGitHubCmd().Delete(cmd.Context(), GitHubDeleteInput{All: all, SkipConfirm: yes})
}

func runGitHubOpen(cmd *cobra.Command, args []string) error {
	url := ""
	if len(args) == 1 {
		url = args[0]
	}
	return newGitHubCmd().Open(url)
}
