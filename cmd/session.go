package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/appkeys/cli/pkg/prompt"
	"github.com/appkeys/cli/pkg/session"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// SessionCmd manages the browser profile the tool signs in with.
type SessionCmd struct {
	prompt prompt.Prompter
	now    func() time.Time
}

type SessionClearInput struct {
	ProfileDir  string
	External    bool
	Backup      bool
	SkipConfirm bool
}

func (s SessionCmd) Clear(ctx context.Context, in SessionClearInput) error {
	if in.External {
		return fmt.Errorf("%w: %s is set by BROWSER_PROFILE_PATH", session.ErrExternalProfile, in.ProfileDir)
	}
	if !in.SkipConfirm {
		ok, err := s.prompt.Confirm(fmt.Sprintf("Delete the saved browser session in %s? You will need to sign in again", in.ProfileDir), false)
		if err != nil {
			return err
		}
		if !ok {
			pterm.Info.Println("Session kept")
			return nil
		}
	}

	backup := ""
	if in.Backup {
		backup = fmt.Sprintf("%s-backup-%s.zip", in.ProfileDir, s.now().Format("20060102-150405"))
	}
	err := session.Clear(session.Options{ProfileDir: in.ProfileDir, External: in.External}, backup)
	if errors.Is(err, session.ErrExternalProfile) {
		return err
	}
	if err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	if backup != "" {
		pterm.Info.Printf("Backed up the profile to %s\n", backup)
	}
	pterm.Success.Println("Browser session cleared")
	return nil
}

// --- Cobra wiring ---

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage the saved browser session",
}

var sessionClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete the saved browser profile",
	Args:  cobra.NoArgs,
	RunE:  runSessionClear,
}

func init() {
	sessionCmd.AddCommand(sessionClearCmd)
	sessionClearCmd.Flags().Bool("backup", false, "Zip the profile before deleting it")
	sessionClearCmd.Flags().BoolP("yes", "y", false, "Skip confirmation prompt")
}

func runSessionClear(cmd *cobra.Command, args []string) error {
	dir, external := loadedConfig().ProfileDir()
	backup, _ := cmd.Flags().GetBool("backup")
	yes, _ := cmd.Flags().GetBool("yes")
	s := SessionCmd{prompt: prompt.Terminal{}, now: time.Now}
	return s.Clear(cmd.Context(), SessionClearInput{ProfileDir: dir, External: external, Backup: backup, SkipConfirm: yes})
}
