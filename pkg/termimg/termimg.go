// Package termimg shows page screenshots inline in terminals that speak the
// iTerm2 or Kitty graphics protocols, so a failed run leaves evidence in the
// scrollback as well as in the browser window.
package termimg

import (
	"encoding/base64"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

// Protocol is an inline image protocol.
type Protocol int

const (
	None Protocol = iota
	ITerm2
	Kitty
)

func (p Protocol) String() string {
	switch p {
	case ITerm2:
		return "iTerm2"
	case Kitty:
		return "Kitty"
	default:
		return "none"
	}
}

// Detect returns the protocol the terminal described by getenv supports.
// Ghostty and WezTerm speak Kitty's protocol.
func Detect(getenv func(string) string) Protocol {
	switch getenv("TERM_PROGRAM") {
	case "iTerm.app", "WezTerm":
		return ITerm2
	case "ghostty":
		return Kitty
	}
	if getenv("KITTY_WINDOW_ID") != "" {
		return Kitty
	}
	return None
}

// Supported reports whether stdout is a terminal that can show images.
func Supported() bool {
	return term.IsTerminal(int(os.Stdout.Fd())) && Detect(os.Getenv) != None
}

// Show writes img (PNG bytes) to w using protocol p, scaled to at most cols
// terminal cells wide.
func Show(w io.Writer, p Protocol, img []byte, cols int) error {
	switch p {
	case ITerm2:
		return showITerm2(w, img, cols)
	case Kitty:
		return showKitty(w, img, cols)
	default:
		return fmt.Errorf("terminal does not support inline images")
	}
}

// ShowScreenshot displays img on stdout when the terminal supports it and
// reports whether it did.
func ShowScreenshot(img []byte) bool {
	if len(img) == 0 || !Supported() {
		return false
	}
	return Show(os.Stdout, Detect(os.Getenv), img, terminalWidth()) == nil
}

func terminalWidth() int {
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		return w
	}
	return 80
}

// https://iterm2.com/documentation-images.html
func showITerm2(w io.Writer, img []byte, cols int) error {
	_, err := fmt.Fprintf(w, "\033]1337;File=inline=1;size=%d;width=%d;preserveAspectRatio=1:%s\a\n",
		len(img), cols, base64.StdEncoding.EncodeToString(img))
	return err
}

// kittyChunk is the protocol's maximum payload per escape sequence.
const kittyChunk = 4096

// https://sw.kovidgoyal.net/kitty/graphics-protocol/
func showKitty(w io.Writer, img []byte, cols int) error {
	encoded := base64.StdEncoding.EncodeToString(img)
	for i := 0; i < len(encoded); i += kittyChunk {
		end := min(i+kittyChunk, len(encoded))
		more := 0
		if end < len(encoded) {
			more = 1
		}
		var err error
		if i == 0 {
			_, err = fmt.Fprintf(w, "\033_Ga=T,f=100,c=%d,m=%d;%s\033\\", cols, more, encoded[i:end])
		} else {
			_, err = fmt.Fprintf(w, "\033_Gm=%d;%s\033\\", more, encoded[i:end])
		}
		if err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w)
	return err
}
