package cmd

import (
	"context"
	"strings"

	"github.com/appkeys/cli/pkg/prompt"
	"github.com/appkeys/cli/pkg/provider"
	"github.com/appkeys/cli/pkg/provision"
	"github.com/pterm/pterm"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

// GoogleCmd creates OAuth clients in the Google Cloud console.
type GoogleCmd struct {
	open     ConsoleOpener
	prompt   prompt.Prompter
	saver    *Saver
	verifier Verifier
}

type GoogleCreateInput struct {
	AppName      string
	AppType      provision.AppType
	ProjectID    string
	Origins      []string
	RedirectURIs []string
	Target       SaveTarget
	Copy         bool
	Verify       bool
}

func (g GoogleCmd) Create(ctx context.Context, in GoogleCreateInput) error {
	cfg := &provision.AppConfig{
		Name:         in.AppName,
		AppType:      in.AppType,
		ProjectID:    in.ProjectID,
		Origins:      in.Origins,
		RedirectURIs: in.RedirectURIs,
	}
	if len(in.Origins) > 0 {
		cfg.HomepageURL = in.Origins[0]
	}
	return withConsole(ctx, g.open, g.prompt, provider.Google, func(c Console) error {
		res, err := c.Create(ctx, cfg)
		if err != nil {
			return err
		}
		printWarnings(res)
		pterm.Success.Printf("Created OAuth client %s\n", res.Credential.AppName)
		printCredential(res.Credential)
		if err := g.saver.Save(res.Credential, in.Target); err != nil {
			return err
		}
		if in.Copy {
			g.saver.Copy(blockFor(res.Credential, "").Render(in.Target.Prefix))
		}
		if in.Verify && g.verifier != nil {
			cred := res.Credential
			printReport(cred.AppName, g.verifier.Verify(ctx, provider.MustLoad(provider.Google), cred.ClientID, cred.ClientSecret))
		}
		return nil
	})
}

// --- Cobra wiring ---

var googleCmd = &cobra.Command{
	Use:   "google",
	Short: "Manage Google Cloud OAuth clients",
}

var googleCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a Google OAuth client and save its credentials",
	Args:  cobra.NoArgs,
	RunE:  runGoogleCreate,
}

func init() {
	googleCmd.AddCommand(googleCreateCmd)

	f := googleCreateCmd.Flags()
	f.String("app-name", "", "OAuth client name (default $GOOGLE_OAUTH_APP_NAME)")
	f.Var(appTypeFlag(), "app-type", "Client type: web or desktop")
	f.String("project-id", "", "Google Cloud project id (default: the project selected in the console)")
	f.String("homepage-url", "", "Authorized JavaScript origin (default $OAUTH_BASE_URL)")
	f.String("callback-url", "", "Authorized redirect URI (default <homepage>/api/auth/callback/google)")
	f.StringSlice("origin", nil, "Additional JavaScript origins")
	f.StringSlice("redirect-uri", nil, "Additional redirect URIs")
	f.Bool("write-env", false, "Append the credentials to the env file")
	f.String("env-file", ".env", "Env file to write")
	f.String("prefix", "", "Write keys under this prefix (PREFIX_GOOGLE_CLIENT_ID)")
	f.Var(conflictFlag(), "on-conflict", "When keys already exist: ask, generated, or archive")
	f.Bool("copy", false, "Copy the credentials to the clipboard")
	f.Bool("verify", false, "Check the credential format after creation")
}

func runGoogleCreate(cmd *cobra.Command, args []string) error {
	c := loadedConfig()
	p := prompt.Terminal{}
	op := prompt.Operator{P: p}
	g := GoogleCmd{open: openBrowserConsole, prompt: p, saver: newSaver(p), verifier: newVerifier()}

	name, _ := cmd.Flags().GetString("app-name")
	name, err := op.AppName(lo.CoalesceOrEmpty(name, c.GoogleAppName), c.GoogleAppName)
	if err != nil {
		return err
	}
	appType := provision.AppType(flagString(cmd.Flags(), "app-type"))
	projectID, _ := cmd.Flags().GetString("project-id")
	extraOrigins, _ := cmd.Flags().GetStringSlice("origin")
	extraRedirects, _ := cmd.Flags().GetStringSlice("redirect-uri")

	var origins, redirects []string
	if appType == provision.AppTypeWeb {
		homepage, _ := cmd.Flags().GetString("homepage-url")
		homepage, err = op.URL("JavaScript origin", lo.CoalesceOrEmpty(homepage, c.BaseURL), c.BaseURL)
		if err != nil {
			return err
		}
		callback, _ := cmd.Flags().GetString("callback-url")
		def := provider.MustLoad(provider.Google).CallbackURL(homepage)
		callback, err = op.URL("Redirect URI", lo.CoalesceOrEmpty(callback, def), def)
		if err != nil {
			return err
		}
		origins = lo.Uniq(append([]string{strings.TrimRight(homepage, "/")}, extraOrigins...))
		redirects = lo.Uniq(append([]string{callback}, extraRedirects...))
	}

	t := targetFromFlags(cmd)
	cp, _ := cmd.Flags().GetBool("copy")
	v, _ := cmd.Flags().GetBool("verify")
	return g.Create(cmd.Context(), GoogleCreateInput{
		AppName:      name,
		AppType:      appType,
		ProjectID:    projectID,
		Origins:      origins,
		RedirectURIs: redirects,
		Target:       t,
		Copy:         cp,
		Verify:       v,
	})
}
