package cmd

import (
	"fmt"
	"strings"

	"github.com/appkeys/cli/pkg/envfile"
	"github.com/appkeys/cli/pkg/provision"
	"github.com/spf13/pflag"
)

// enumValue is a string flag restricted to a fixed set of choices.
type enumValue struct {
	value   string
	allowed []string
}

var _ pflag.Value = (*enumValue)(nil)

func newEnum(def string, allowed ...string) *enumValue {
	return &enumValue{value: def, allowed: allowed}
}

func (e *enumValue) String() string { return e.value }

func (e *enumValue) Set(s string) error {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, a := range e.allowed {
		if s == a {
			e.value = s
			return nil
		}
	}
	return fmt.Errorf("must be one of %s", strings.Join(e.allowed, ", "))
}

func (e *enumValue) Type() string { return "string" }

// appTypeFlag selects the Google OAuth client type.
func appTypeFlag() *enumValue {
	return newEnum(string(provision.AppTypeWeb), string(provision.AppTypeWeb), string(provision.AppTypeDesktop))
}

// conflictFlag selects what to do when credentials already exist in the
// target env file.
func conflictFlag() *enumValue {
	return newEnum(envfile.Ask.String(), envfile.Ask.String(), envfile.Generated.String(), envfile.Archive.String())
}

// Dual-app env output modes.
const (
	dualCombined = "combined"
	dualSplit    = "split"
	dualNone     = "none"
)

func dualModeFlag() *enumValue {
	return newEnum(dualCombined, dualCombined, dualSplit, dualNone)
}

func flagStrategy(fs *pflag.FlagSet, name string) envfile.Strategy {
	f := fs.Lookup(name)
	if f == nil {
		return envfile.Ask
	}
	s, err := envfile.ParseStrategy(f.Value.String())
	if err != nil {
		return envfile.Ask
	}
	return s
}

func flagString(fs *pflag.FlagSet, name string) string {
	if f := fs.Lookup(name); f != nil {
		return f.Value.String()
	}
	return ""
}
