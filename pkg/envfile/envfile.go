// Package envfile writes OAuth credentials into dotenv files without
// silently replacing credentials that are already there.
package envfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pterm/pterm"
)

// Strategy resolves a write that would shadow existing canonical keys.
type Strategy int

const (
	// Ask defers to the Decider.
	Ask Strategy = iota
	// Generated writes under the next unused GENERATED prefix.
	Generated
	// Archive comments out the existing keys and writes canonical names.
	Archive
)

var strategyNames = map[Strategy]string{Ask: "ask", Generated: "generated", Archive: "archive"}

func (s Strategy) String() string {
	if n, ok := strategyNames[s]; ok {
		return n
	}
	return fmt.Sprintf("Strategy(%d)", int(s))
}

// ParseStrategy is the inverse of String.
func ParseStrategy(s string) (Strategy, error) {
	for k, v := range strategyNames {
		if strings.EqualFold(v, s) {
			return k, nil
		}
	}
	return Ask, fmt.Errorf("invalid conflict strategy %q (must be ask, generated or archive)", s)
}

// ErrNoDecision is returned when Ask is requested without a Decider.
var ErrNoDecision = errors.New("credentials already exist and no conflict strategy was given")

// KeySet names a provider's canonical variables.
type KeySet struct {
	ClientID     string
	ClientSecret string
	Extra        []string
}

// All returns every key in write order.
func (k KeySet) All() []string {
	return append([]string{k.ClientID, k.ClientSecret}, k.Extra...)
}

var (
	GitHubKeys = KeySet{ClientID: "GITHUB_CLIENT_ID", ClientSecret: "GITHUB_CLIENT_SECRET"}
	GoogleKeys = KeySet{ClientID: "GOOGLE_CLIENT_ID", ClientSecret: "GOOGLE_CLIENT_SECRET", Extra: []string{"GOOGLE_PROJECT_ID"}}
)

// Var is one assignment.
type Var struct {
	Key   string
	Value string
}

// Block is a group of assignments written together under a header comment.
type Block struct {
	// Title is the provider's display name.
	Title   string
	AppName string
	Vars    []Var

	// credential names the client id and secret keys among Vars.
	credential []string
}

// NewBlock pairs keys with values; missing values are left out.
func NewBlock(title, app string, keys KeySet, values ...string) Block {
	b := Block{Title: title, AppName: app, credential: []string{keys.ClientID, keys.ClientSecret}}
	for i, k := range keys.All() {
		if i < len(values) && values[i] != "" {
			b.Vars = append(b.Vars, Var{Key: k, Value: values[i]})
		}
	}
	return b
}

// Keys returns the canonical keys of the block.
func (b Block) Keys() []string {
	out := make([]string, len(b.Vars))
	for i, v := range b.Vars {
		out[i] = v.Key
	}
	return out
}

// CredentialKeys returns the client id and secret keys. Only these decide
// whether a credential already exists; extra keys such as a project id do not.
func (b Block) CredentialKeys() []string {
	if len(b.credential) > 0 {
		return b.credential
	}
	return b.Keys()[:min(2, len(b.Vars))]
}

// Render formats the block with every key under prefix, if any.
func (b Block) Render(prefix string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "\n# %s OAuth Credentials (%s)\n", b.Title, b.AppName)
	for _, v := range b.Vars {
		fmt.Fprintf(&sb, "%s=%s\n", Prefixed(prefix, v.Key), quote(v.Value))
	}
	return sb.String()
}

// Prefixed returns key under prefix, joined by an underscore.
func Prefixed(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "_" + key
}

func quote(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	return `"` + strings.ReplaceAll(v, `"`, `\"`) + `"`
}

// Decider chooses a Strategy when credentials already exist.
type Decider interface {
	Decide(path string, existing []string) (Strategy, error)
}

// DeciderFunc adapts a function to Decider.
type DeciderFunc func(path string, existing []string) (Strategy, error)

func (f DeciderFunc) Decide(path string, existing []string) (Strategy, error) {
	return f(path, existing)
}

// WriteOptions controls how a block is written.
type WriteOptions struct {
	// Prefix is used when forced, or when the canonical keys are taken.
	Prefix      string
	ForcePrefix bool
	Strategy    Strategy
}

// Outcome describes a completed write.
type Outcome struct {
	Path     string
	Prefix   string
	Archived int
}

// Resolver writes credential blocks.
type Resolver struct {
	decider Decider
	logger  *pterm.Logger
}

// NewResolver returns a Resolver; decider may be nil when Ask is never used.
func NewResolver(decider Decider, logger *pterm.Logger) *Resolver {
	if logger == nil {
		logger = &pterm.DefaultLogger
	}
	return &Resolver{decider: decider, logger: logger}
}

// Write appends b to path, resolving conflicts with existing canonical keys.
func (r *Resolver) Write(path string, b Block, opts WriteOptions) (Outcome, error) {
	out := Outcome{Path: path}
	if len(b.Vars) == 0 {
		return out, errors.New("nothing to write")
	}

	content, err := readOptional(path)
	if err != nil {
		return out, err
	}
	existing := activeKeys(content, b.CredentialKeys())

	switch {
	case opts.ForcePrefix:
		out.Prefix = opts.Prefix
	case len(existing) == 0:
		out.Prefix = opts.Prefix
	case opts.Prefix != "":
		out.Prefix = opts.Prefix
	default:
		strategy := opts.Strategy
		if strategy == Ask {
			if r.decider == nil {
				return out, fmt.Errorf("%w: %s", ErrNoDecision, path)
			}
			if strategy, err = r.decider.Decide(path, existing); err != nil {
				return out, err
			}
		}
		switch strategy {
		case Archive:
			rewritten, n := archive(content, b.CredentialKeys())
			if err := replaceFile(path, rewritten); err != nil {
				return out, err
			}
			out.Archived = n
			r.logger.Info("archived existing keys", r.logger.Args("file", path, "lines", n))
		case Generated:
			out.Prefix = NextGeneratedPrefix(content, b.Vars[0].Key)
		default:
			return out, fmt.Errorf("unsupported conflict strategy %s", strategy)
		}
	}

	if err := appendFile(path, b.Render(out.Prefix)); err != nil {
		return out, err
	}
	r.logger.Debug("credentials written", r.logger.Args("file", path, "prefix", out.Prefix))
	return out, nil
}

func activeLine(key string) *regexp.Regexp {
	return regexp.MustCompile(`(?m)^(?:export\s+)?` + regexp.QuoteMeta(key) + `\s*=`)
}

// activeKeys returns the keys with an uncommented assignment in content.
func activeKeys(content string, keys []string) []string {
	var out []string
	for _, k := range keys {
		if activeLine(k).MatchString(content) {
			out = append(out, k)
		}
	}
	return out
}

// NextGeneratedPrefix returns GENERATED, then GENERATED_2, GENERATED_3 and so
// on, skipping prefixes already used for key.
func NextGeneratedPrefix(content, key string) string {
	prefix := "GENERATED"
	for n := 2; activeLine(Prefixed(prefix, key)).MatchString(content); n++ {
		prefix = fmt.Sprintf("GENERATED_%d", n)
	}
	return prefix
}

// archive comments out every active assignment of keys as "# OLD_<line>",
// leaving the rest of each line untouched.
func archive(content string, keys []string) (string, int) {
	lines := strings.SplitAfter(content, "\n")
	n := 0
	for i, line := range lines {
		for _, k := range keys {
			if activeLine(k).MatchString(line) {
				lines[i] = "# OLD_" + line
				n++
				break
			}
		}
	}
	return strings.Join(lines, ""), n
}

func readOptional(path string) (string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), nil
}

func appendFile(path, s string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	if _, err := f.WriteString(s); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}

// replaceFile swaps path's content in one rename.
func replaceFile(path, content string) error {
	mode := os.FileMode(0600)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to rewrite %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to rewrite %s: %w", path, err)
	}
	if err := tmp.Chmod(mode); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to rewrite %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to rewrite %s: %w", path, err)
	}
	return os.Rename(tmp.Name(), path)
}
