package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/appkeys/cli/pkg/envfile"
	"github.com/appkeys/cli/pkg/provider"
	"github.com/appkeys/cli/pkg/table"
	"github.com/appkeys/cli/pkg/verify"
	pkgbrowser "github.com/pkg/browser"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// Verifier checks a credential against its provider.
type Verifier interface {
	Verify(ctx context.Context, p *provider.Provider, clientID, clientSecret string) verify.Report
}

func newVerifier() Verifier {
	return verify.New(nil, cmdLogger())
}

// VerifyCmd checks existing credentials.
type VerifyCmd struct {
	verifier Verifier
	browse   func(url string) error
	getenv   func(string) string
}

type VerifyInput struct {
	Provider     string
	ClientID     string
	ClientSecret string
	// Prefix selects prefixed keys when the credential is read from the
	// environment.
	Prefix string
	// Open shows the authorize page in the default browser.
	Open        bool
	RedirectURL string
}

var errVerifyFailed = errors.New("credential verification failed")

func (v VerifyCmd) Run(ctx context.Context, in VerifyInput) error {
	prov, err := provider.Load(in.Provider, "")
	if err != nil {
		return err
	}
	keys := keysFor(prov.ID)
	id, secret := in.ClientID, in.ClientSecret
	if id == "" {
		id = v.getenv(envfile.Prefixed(in.Prefix, keys.ClientID))
	}
	if secret == "" {
		secret = v.getenv(envfile.Prefixed(in.Prefix, keys.ClientSecret))
	}
	if id == "" {
		return fmt.Errorf("no client id given and %s is not set", envfile.Prefixed(in.Prefix, keys.ClientID))
	}

	report := v.verifier.Verify(ctx, prov, id, secret)
	printReport(id, report)

	if in.Open {
		u := verify.AuthorizeURL(prov, id, in.RedirectURL)
		if err := v.browse(u); err != nil {
			pterm.Warning.Printf("Could not open browser: %v\nOpen this URL manually: %s\n", err, u)
		}
	}
	if !report.OK() {
		return errVerifyFailed
	}
	return nil
}

func printReport(label string, r verify.Report) {
	pterm.DefaultSection.Printf("Verification: %s", label)
	rows := pterm.TableData{{"Check", "Result", "Detail"}}
	for _, c := range r.Checks {
		rows = append(rows, []string{c.Name, statusText(c.Status), c.Detail})
	}
	table.Print(rows, true)
	if r.OK() {
		pterm.Success.Println("Credentials look valid")
	} else {
		pterm.Warning.Println("Verification found problems")
	}
}

func statusText(s verify.Status) string {
	switch s {
	case verify.Pass:
		return pterm.Green(s.String())
	case verify.Fail:
		return pterm.Red(s.String())
	default:
		return pterm.Yellow(s.String())
	}
}

// --- Cobra wiring ---

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify OAuth client credentials",
	Long: `Checks the format of a client id and secret and, for GitHub, whether the
authorize endpoint recognizes the client id. Without --client-id the credentials are
read from the environment (including the loaded .env file).`,
	Args: cobra.NoArgs,
	RunE: runVerify,
}

func init() {
	verifyCmd.Flags().String("provider", provider.GitHub, "Provider: github or google")
	verifyCmd.Flags().String("client-id", "", "Client id (default from the environment)")
	verifyCmd.Flags().String("client-secret", "", "Client secret (default from the environment)")
	verifyCmd.Flags().String("prefix", "", "Read PREFIX_ keys from the environment")
	verifyCmd.Flags().Bool("open", false, "Open the authorize URL in your browser")
	verifyCmd.Flags().String("redirect-url", "", "Redirect URL for --open")
}

func runVerify(cmd *cobra.Command, args []string) error {
	p, _ := cmd.Flags().GetString("provider")
	id, _ := cmd.Flags().GetString("client-id")
	secret, _ := cmd.Flags().GetString("client-secret")
	prefix, _ := cmd.Flags().GetString("prefix")
	open, _ := cmd.Flags().GetBool("open")
	redirect, _ := cmd.Flags().GetString("redirect-url")

	v := VerifyCmd{verifier: newVerifier(), browse: pkgbrowser.OpenURL, getenv: os.Getenv}
	return v.Run(cmd.Context(), VerifyInput{
		Provider:     p,
		ClientID:     id,
		ClientSecret: secret,
		Prefix:       prefix,
		Open:         open,
		RedirectURL:  redirect,
	})
}
