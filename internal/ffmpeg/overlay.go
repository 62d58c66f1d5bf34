package ffmpeg

import (
	"fmt"
	"strings"
)

// cornerPositions maps overlay corners to drawtext x/y expressions.
var cornerPositions = map[string]string{
	"top-left":     "x=10:y=10",
	"top-right":    "x=w-tw-10:y=10",
	"bottom-left":  "x=10:y=h-th-10",
	"bottom-right": "x=w-tw-10:y=h-th-10",
}

// CornerPosition returns the drawtext coordinates for a corner, falling back
// to top-left.
func CornerPosition(corner string) string {
	if pos, ok := cornerPositions[corner]; ok {
		return pos
	}
	return cornerPositions["top-left"]
}

// DrawtextFilter builds a drawtext filter that reloads the status file on
// every frame.
func DrawtextFilter(p OverlayParams) string {
	return fmt.Sprintf(
		"drawtext=fontfile=%s:textfile=%s:reload=1:%s:"+
			"fontcolor=white:fontsize=28:box=1:boxcolor=0x000000AA:boxborderw=8:line_spacing=6",
		escapeFilterValue(p.FontFile),
		escapeFilterValue(p.StatusFile),
		CornerPosition(p.Corner),
	)
}

// A -vf value is unescaped twice: once by the filtergraph parser, then by
// the filter's option parser. Escape for the option parser first.
var (
	optionEscaper = strings.NewReplacer(`\`, `\\`, `:`, `\:`, `'`, `\'`)
	graphEscaper  = strings.NewReplacer(`\`, `\\`, `'`, `\'`, `[`, `\[`, `]`, `\]`, `,`, `\,`, `;`, `\;`)
)

func escapeFilterValue(s string) string {
	return graphEscaper.Replace(optionEscaper.Replace(s))
}
