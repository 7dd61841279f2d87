package media

import "strings"

// fallbackFolderName is used when sanitization leaves nothing usable.
const fallbackFolderName = "untitled"

func isForbiddenFolderChar(r rune) bool {
	switch r {
	case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
		return true
	}
	return r < 0x20
}

// SanitizeFolderName converts an arbitrary collection name into a
// filesystem-safe folder name. Forbidden characters and whitespace map to
// underscores, runs collapse to a single underscore, and trailing dots,
// spaces and underscores are stripped (Windows rejects trailing dots and
// spaces in directory names). Empty input yields "untitled".
func SanitizeFolderName(name string) string {
	var b strings.Builder
	b.Grow(len(name))

	pendingSep := false
	for _, r := range name {
		if isForbiddenFolderChar(r) || r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			if b.Len() > 0 {
				pendingSep = true
			}
			continue
		}
		if pendingSep {
			b.WriteByte('_')
			pendingSep = false
		}
		b.WriteRune(r)
	}

	out := strings.TrimRight(b.String(), "._ ")
	if out == "" {
		return fallbackFolderName
	}
	return out
}
