package cmd

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/appkeys/cli/pkg/audit"
	"github.com/appkeys/cli/pkg/envfile"
	"github.com/appkeys/cli/pkg/provider"
	"github.com/appkeys/cli/pkg/table"
	"github.com/appkeys/cli/pkg/util"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// AuditLister reads an audit history.
type AuditLister interface {
	List() ([]audit.Entry, error)
}

// AuditCmd shows and enables the encrypted credential history.
type AuditCmd struct {
	open func(providerID string) (AuditLister, error)
}

type AuditListInput struct {
	Provider string
	// Reveal is the 1-based row whose secret is shown in full; 0 shows none.
	Reveal int
}

type AuditEnableInput struct {
	EnvFile string
}

func (a AuditCmd) List(ctx context.Context, in AuditListInput) error {
	log, err := a.open(in.Provider)
	if err != nil {
		return fmt.Errorf("failed to open audit log: %w", err)
	}
	entries, err := log.List()
	if errors.Is(err, audit.ErrDecrypt) {
		return fmt.Errorf("%w; the encryption key may have changed", err)
	}
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		pterm.Info.Println("No credentials recorded yet")
		return nil
	}
	if in.Reveal < 0 || in.Reveal > len(entries) {
		return fmt.Errorf("--reveal must be between 1 and %d", len(entries))
	}

	rows := pterm.TableData{{"#", "Created", "App Name", "Env", "Client ID", "Client Secret"}}
	for i, e := range entries {
		secret := util.MaskSecret(e.ClientSecret)
		if in.Reveal == i+1 {
			secret = e.ClientSecret
		}
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			util.FormatLocal(e.Timestamp),
			e.AppName,
			util.OrDash(e.EnvType),
			e.ClientID,
			secret,
		})
	}
	table.Print(rows, true)
	return nil
}

// Enable turns on secure logging in the env file.
func (a AuditCmd) Enable(ctx context.Context, in AuditEnableInput) error {
	if err := envfile.SetFlag(in.EnvFile, "ENABLE_SECURE_LOGGING", "true"); err != nil {
		return fmt.Errorf("failed to update %s: %w", in.EnvFile, err)
	}
	pterm.Success.Printf("Secure logging enabled in %s\n", in.EnvFile)
	return nil
}

// --- Cobra wiring ---

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "View the encrypted history of created credentials",
}

var auditListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded credentials",
	Args:  cobra.NoArgs,
	RunE:  runAuditList,
}

var auditEnableCmd = &cobra.Command{
	Use:   "enable",
	Short: "Record created credentials from now on",
	Args:  cobra.NoArgs,
	RunE:  runAuditEnable,
}

func init() {
	auditCmd.AddCommand(auditListCmd)
	auditCmd.AddCommand(auditEnableCmd)

	auditListCmd.Flags().String("provider", provider.GitHub, "Provider: github or google")
	auditListCmd.Flags().Int("reveal", 0, "Show the secret of this row")
	auditEnableCmd.Flags().String("env-file", ".env", "Env file to update")
}

func openAuditLister(providerID string) (AuditLister, error) {
	dir, err := auditDir()
	if err != nil {
		return nil, err
	}
	return audit.Open(dir, providerID)
}

func runAuditList(cmd *cobra.Command, args []string) error {
	p, _ := cmd.Flags().GetString("provider")
	reveal, _ := cmd.Flags().GetInt("reveal")
	return AuditCmd{open: openAuditLister}.List(cmd.Context(), AuditListInput{Provider: p, Reveal: reveal})
}

func runAuditEnable(cmd *cobra.Command, args []string) error {
	f, _ := cmd.Flags().GetString("env-file")
	return AuditCmd{open: openAuditLister}.Enable(cmd.Context(), AuditEnableInput{EnvFile: f})
}
