package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/muesli/termenv"
)

var bannerLines = []struct {
	text  string
	color string
}{
	{"  _____ ____  __  __", "#818cf8"},
	{" |  ___/ ___||  \\/  |", "#a78bfa"},
	{" | |_  \\___ \\| |\\/| |", "#c084fc"},
	{" |  _|  ___) | |  | |", "#e879f9"},
	{" |_|   |____/|_|  |_|", "#f472b6"},
}

// PrintBanner writes the FSM banner and version to w, colored for profile.
// Pass termenv.Ascii to get plain text.
func PrintBanner(w io.Writer, version string, profile termenv.Profile) {
	fmt.Fprintln(w)
	for _, l := range bannerLines {
		fmt.Fprintln(w, profile.String(l.text).Foreground(profile.Color(l.color)))
	}
	tag := profile.String(" v" + strings.TrimSpace(version)).Faint()
	fmt.Fprintln(w, tag)
	fmt.Fprintln(w)
}
