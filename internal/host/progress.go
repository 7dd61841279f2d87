package host

import (
	"regexp"
	"strconv"
	"strings"
)

// yt-dlp progress lines look like:
//
//	[download]  45.0% of 123.45MiB at 1.23MiB/s ETA 00:12
var (
	percentPattern = regexp.MustCompile(`(\d+\.?\d*)%`)
	speedPattern   = regexp.MustCompile(`(\d+\.?\d*)(K|M|G)iB/s`)
)

// Progress is one parsed progress update.
type Progress struct {
	Percent        float64
	BytesPerSecond int64
}

// ParseProgressLine extracts progress from a yt-dlp stdout line. The
// second return value is false for non-progress lines.
func ParseProgressLine(line string) (Progress, bool) {
	if !strings.Contains(line, "[download]") {
		return Progress{}, false
	}

	m := percentPattern.FindStringSubmatch(line)
	if len(m) < 2 {
		return Progress{}, false
	}
	percent, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return Progress{}, false
	}

	p := Progress{Percent: percent}
	if m := speedPattern.FindStringSubmatch(line); len(m) > 2 {
		if speed, err := strconv.ParseFloat(m[1], 64); err == nil {
			switch m[2] {
			case "K":
				p.BytesPerSecond = int64(speed * 1024)
			case "M":
				p.BytesPerSecond = int64(speed * 1024 * 1024)
			case "G":
				p.BytesPerSecond = int64(speed * 1024 * 1024 * 1024)
			}
		}
	}
	return p, true
}
