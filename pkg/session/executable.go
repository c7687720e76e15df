package session

import (
	"os"
	"runtime"
)

// CommonPaths lists well-known Chromium-family install locations for goos.
func CommonPaths(goos string) []string {
	switch goos {
	case "darwin":
		return []string{
			"/Applications/Brave Browser.app/Contents/MacOS/Brave Browser",
			"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
			"/Applications/Chromium.app/Contents/MacOS/Chromium",
		}
	case "windows":
		return []string{
			`C:\Program Files\BraveSoftware\Brave-Browser\Application\brave.exe`,
			`C:\Program Files\Google\Chrome\Application\chrome.exe`,
			`C:\Program Files (x86)\Google\Chrome\Application\chrome.exe`,
		}
	default:
		return []string{
			"/usr/bin/brave-browser",
			"/usr/bin/google-chrome",
			"/usr/bin/google-chrome-stable",
			"/usr/bin/chromium",
			"/usr/bin/chromium-browser",
		}
	}
}

// ResolveExecutable picks the browser binary: the override when it exists,
// else the first existing candidate. An empty result means the bundled
// browser should be used.
func ResolveExecutable(override string, candidates []string) string {
	if override != "" && fileExists(override) {
		return override
	}
	for _, c := range candidates {
		if fileExists(c) {
			return c
		}
	}
	return ""
}

// DefaultExecutable resolves against the install paths of the running OS.
func DefaultExecutable(override string) string {
	return ResolveExecutable(override, CommonPaths(runtime.GOOS))
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
