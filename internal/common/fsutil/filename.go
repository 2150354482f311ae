package fsutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var windowsDeviceNames = map[string]bool{
	"CON": true, "PRN": true, "AUX": true, "NUL": true,
	"COM1": true, "COM2": true, "COM3": true, "COM4": true,
	"LPT1": true, "LPT2": true, "LPT3": true,
}

// SanitizeFilename returns a version of name that is safe to store on a
// regular file system. Non-ASCII characters are decomposed and dropped, path
// separators become spaces, whitespace runs become a single underscore and
// only [A-Za-z0-9_.-] survive. Leading and trailing dots and underscores are
// trimmed. The result may be empty.
func SanitizeFilename(name string) string {
	decomposed := norm.NFKD.String(name)
	var b strings.Builder
	for _, r := range decomposed {
		if r > unicode.MaxASCII {
			continue
		}
		if r == '/' || r == '\\' {
			r = ' '
		}
		b.WriteRune(r)
	}
	joined := strings.Join(strings.Fields(b.String()), "_")

	b.Reset()
	for _, r := range joined {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '_' || r == '.' || r == '-':
			b.WriteRune(r)
		}
	}
	out := strings.Trim(b.String(), "._")

	if out != "" {
		stem := strings.ToUpper(strings.SplitN(out, ".", 2)[0])
		if windowsDeviceNames[stem] {
			out = "_" + out
		}
	}
	return out
}
