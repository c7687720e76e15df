package cmd

import (
	"context"
	"os"
	"path/filepath"

	"github.com/appkeys/cli/pkg/envfile"
	"github.com/appkeys/cli/pkg/prompt"
	"github.com/appkeys/cli/pkg/provider"
	"github.com/appkeys/cli/pkg/table"
	"github.com/appkeys/cli/pkg/util"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

const discoverDepth = 3

// EnvCmd shows credentials saved in env files.
type EnvCmd struct {
	prompt prompt.Prompter
}

type EnvShowInput struct {
	// File is empty to pick from the env files under Root.
	File   string
	Root   string
	Reveal bool
}

func (e EnvCmd) Show(ctx context.Context, in EnvShowInput) error {
	path := in.File
	if path == "" {
		files, err := envfile.Discover(in.Root, discoverDepth)
		if err != nil {
			return err
		}
		switch len(files) {
		case 0:
			pterm.Info.Println("No .env files found")
			return nil
		case 1:
			path = files[0]
		default:
			if path, err = e.prompt.Select("Which env file?", files, files[0]); err != nil {
				return err
			}
		}
		path = filepath.Join(in.Root, path)
	}

	rows := pterm.TableData{{"Provider", "Prefix", "Client ID", "Client Secret"}}
	for _, id := range provider.IDs() {
		saved, err := envfile.ReadSaved(path, keysFor(id))
		if err != nil {
			return err
		}
		for _, s := range saved {
			secret := util.MaskSecret(s.ClientSecret)
			if in.Reveal {
				secret = util.OrDash(s.ClientSecret)
			}
			rows = append(rows, []string{titleFor(id), util.OrDash(s.Prefix), util.OrDash(s.ClientID), secret})
		}
	}
	if len(rows) == 1 {
		pterm.Info.Printf("No saved OAuth credentials in %s\n", path)
		return nil
	}
	pterm.DefaultSection.Println(path)
	table.Print(rows, true)
	return nil
}

// --- Cobra wiring ---

var envCmd = &cobra.Command{
	Use:   "env",
	Short: "Inspect credentials saved in env files",
}

var envShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show saved OAuth credentials",
	Args:  cobra.NoArgs,
	RunE:  runEnvShow,
}

func init() {
	envCmd.AddCommand(envShowCmd)
	envShowCmd.Flags().String("file", "", "Env file to read (default: choose from files in the current directory)")
	envShowCmd.Flags().Bool("reveal", false, "Show secrets unmasked")
}

func runEnvShow(cmd *cobra.Command, args []string) error {
	file, _ := cmd.Flags().GetString("file")
	reveal, _ := cmd.Flags().GetBool("reveal")
	wd, err := os.Getwd()
	if err != nil {
		return err
	}
	return EnvCmd{prompt: prompt.Terminal{}}.Show(cmd.Context(), EnvShowInput{File: file, Root: wd, Reveal: reveal})
}
