package cmd

import (
	"fmt"
	"strings"

	"github.com/appkeys/cli/pkg/audit"
	"github.com/appkeys/cli/pkg/envfile"
	"github.com/appkeys/cli/pkg/prompt"
	"github.com/appkeys/cli/pkg/provider"
	"github.com/appkeys/cli/pkg/provision"
	"github.com/appkeys/cli/pkg/table"
	"github.com/appkeys/cli/pkg/util"
	"github.com/atotto/clipboard"
	"github.com/pterm/pterm"
)

// AuditRecorder keeps an encrypted history of created credentials.
type AuditRecorder interface {
	Record(e audit.Entry) (audit.Entry, error)
}

// SaveTarget says where a credential goes.
type SaveTarget struct {
	// EnvFile is empty when nothing should be written.
	EnvFile     string
	Prefix      string
	ForcePrefix bool
	Strategy    envfile.Strategy
	// EnvType labels the audit entry (DEV, PROD).
	EnvType string
}

// Saver writes created credentials to env files, the clipboard and the
// audit log.
type Saver struct {
	envs      *envfile.Resolver
	openAudit func(providerID string) (AuditRecorder, error)
	// auditing reports whether secure logging is on. It is read per save
	// since the menu can turn it on mid-run.
	auditing func() bool
	copy     func(text string) error
}

func newSaver(p prompt.Prompter) *Saver {
	return &Saver{
		envs:     envfile.NewResolver(prompt.Operator{P: p}, cmdLogger()),
		auditing: func() bool { return loadedConfig().SecureLogging },
		copy:     clipboard.WriteAll,
		openAudit: func(providerID string) (AuditRecorder, error) {
			dir, err := auditDir()
			if err != nil {
				return nil, err
			}
			return audit.Open(dir, providerID)
		},
	}
}

func auditDir() (string, error) {
	if d := loadedConfig().AuditDir; d != "" {
		return d, nil
	}
	return audit.DefaultDir()
}

func keysFor(providerID string) envfile.KeySet {
	if providerID == provider.Google {
		return envfile.GoogleKeys
	}
	return envfile.GitHubKeys
}

func titleFor(providerID string) string {
	if providerID == provider.Google {
		return "Google"
	}
	return "GitHub"
}

// blockFor builds the env block for cred. label is appended to the title
// (DEV, PROD) when set.
func blockFor(cred provision.Credential, label string) envfile.Block {
	title := titleFor(cred.Provider)
	if label != "" {
		title += " " + label
	}
	return envfile.NewBlock(title, cred.AppName, keysFor(cred.Provider), cred.ClientID, cred.ClientSecret, cred.ProjectID)
}

// Save persists cred per t, then records it when secure logging is on.
// Persistence failures are returned; audit failures are warnings.
func (s *Saver) Save(cred provision.Credential, t SaveTarget) error {
	if t.EnvFile != "" {
		if err := s.writeEnv(blockFor(cred, t.EnvType), t); err != nil {
			return err
		}
	}
	s.record(cred, t.EnvType)
	return nil
}

func (s *Saver) writeEnv(b envfile.Block, t SaveTarget) error {
	out, err := s.envs.Write(t.EnvFile, b, envfile.WriteOptions{
		Prefix:      t.Prefix,
		ForcePrefix: t.ForcePrefix,
		Strategy:    t.Strategy,
	})
	if err != nil {
		return fmt.Errorf("failed to save credentials to %s: %w", t.EnvFile, err)
	}
	if out.Archived > 0 {
		pterm.Info.Printf("Archived %d existing line(s) in %s\n", out.Archived, out.Path)
	}
	if out.Prefix != "" {
		pterm.Success.Printf("Saved to %s as %s\n", out.Path, strings.Join(prefixedKeys(b, out.Prefix), ", "))
	} else {
		pterm.Success.Printf("Saved to %s\n", out.Path)
	}
	return nil
}

func prefixedKeys(b envfile.Block, prefix string) []string {
	keys := b.Keys()
	for i, k := range keys {
		keys[i] = envfile.Prefixed(prefix, k)
	}
	return keys
}

// Copy puts text on the system clipboard. A missing clipboard is a warning.
func (s *Saver) Copy(text string) {
	if err := s.copy(text); err != nil {
		pterm.Warning.Printf("Could not copy to clipboard: %v\n", err)
		return
	}
	pterm.Success.Println("Copied to clipboard")
}

func (s *Saver) record(cred provision.Credential, envType string) {
	if s.openAudit == nil || s.auditing == nil || !s.auditing() {
		return
	}
	log, err := s.openAudit(cred.Provider)
	if err == nil {
		_, err = log.Record(audit.Entry{
			Provider:     cred.Provider,
			AppName:      cred.AppName,
			ClientID:     cred.ClientID,
			ClientSecret: cred.ClientSecret,
			Homepage:     cred.HomepageURL,
			EnvType:      envType,
		})
	}
	if err != nil {
		pterm.Warning.Printf("Failed to record credentials in the audit log: %v\n", err)
		return
	}
	cmdLogger().Debug("credentials recorded", cmdLogger().Args("provider", cred.Provider, "app", cred.AppName))
}

// printCredential shows a created credential with its secret masked.
func printCredential(cred provision.Credential) {
	rows := pterm.TableData{{"Property", "Value"}}
	rows = append(rows, []string{"App Name", cred.AppName})
	rows = append(rows, []string{"Client ID", cred.ClientID})
	rows = append(rows, []string{"Client Secret", util.MaskSecret(cred.ClientSecret)})
	if cred.ProjectID != "" {
		rows = append(rows, []string{"Project", cred.ProjectID})
	}
	rows = append(rows, []string{"App URL", util.OrDash(cred.AppURL)})
	table.Print(rows, true)
}

func printWarnings(res *provision.Result) {
	for _, w := range res.Warnings {
		pterm.Warning.Println(w.Error())
	}
}
