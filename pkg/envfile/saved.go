package envfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/boyter/gocodewalker"
	"github.com/joho/godotenv"
	"github.com/samber/lo"
)

// Saved is one credential pair found in a file.
type Saved struct {
	// Prefix is empty for the canonical pair.
	Prefix       string
	ClientID     string
	ClientSecret string
	Extra        map[string]string
}

// ReadSaved lists the credential pairs for keys in path, canonical first.
// Archived pairs are comments and are not returned.
func ReadSaved(path string, keys KeySet) ([]Saved, error) {
	vars, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	var prefixes []string
	for k := range vars {
		switch {
		case k == keys.ClientID:
			prefixes = append(prefixes, "")
		case strings.HasSuffix(k, "_"+keys.ClientID):
			prefixes = append(prefixes, strings.TrimSuffix(k, "_"+keys.ClientID))
		}
	}
	slices.Sort(prefixes)

	return lo.Map(prefixes, func(p string, _ int) Saved {
		s := Saved{
			Prefix:       p,
			ClientID:     vars[Prefixed(p, keys.ClientID)],
			ClientSecret: vars[Prefixed(p, keys.ClientSecret)],
		}
		for _, k := range keys.Extra {
			if v, ok := vars[Prefixed(p, k)]; ok {
				if s.Extra == nil {
					s.Extra = map[string]string{}
				}
				s.Extra[k] = v
			}
		}
		return s
	}), nil
}

// Discover returns the dotenv files under root, nearest first. Ignore files
// are not honoured since dotenv files are usually ignored by git.
func Discover(root string, maxDepth int) ([]string, error) {
	queue := make(chan *gocodewalker.File, 64)
	walker := gocodewalker.NewFileWalker(root, queue)
	walker.IncludeHidden = true
	walker.IgnoreGitIgnore = true
	walker.IgnoreIgnoreFile = true
	walker.ExcludeDirectory = []string{".git", "node_modules", "vendor", ".next", "dist"}

	var walkErr error
	walker.SetErrorHandler(func(err error) bool {
		walkErr = errors.Join(walkErr, err)
		return true
	})
	go func() {
		// Start closes the queue when it returns.
		_ = walker.Start()
	}()

	var found []string
	for f := range queue {
		if !isDotenv(f.Filename) {
			continue
		}
		rel, err := filepath.Rel(root, f.Location)
		if err != nil {
			continue
		}
		if strings.Count(rel, string(filepath.Separator)) >= maxDepth {
			continue
		}
		found = append(found, rel)
	}
	slices.SortFunc(found, func(a, b string) int {
		da, db := strings.Count(a, string(filepath.Separator)), strings.Count(b, string(filepath.Separator))
		if da != db {
			return da - db
		}
		return strings.Compare(a, b)
	})
	return found, walkErr
}

func isDotenv(name string) bool {
	return name == ".env" || (strings.HasPrefix(name, ".env.") && !strings.HasSuffix(name, ".example"))
}

// SetFlag sets key=value in path, replacing an existing active assignment
// or appending one.
func SetFlag(path, key, value string) error {
	content, err := readOptional(path)
	if err != nil {
		return err
	}
	line := key + "=" + value
	re := activeLine(key)
	lines := strings.SplitAfter(content, "\n")
	for i, l := range lines {
		if re.MatchString(l) {
			lines[i] = line
			if strings.HasSuffix(l, "\n") {
				lines[i] += "\n"
			}
			return replaceFile(path, strings.Join(lines, ""))
		}
	}
	if content != "" && !strings.HasSuffix(content, "\n") {
		line = "\n" + line
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return os.WriteFile(path, []byte(line+"\n"), 0600)
	}
	return appendFile(path, line+"\n")
}
