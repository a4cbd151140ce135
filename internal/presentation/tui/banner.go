package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

var bannerLines = []string{
	` __   _____  _   ___   _____ ___   _   `,
	` \ \ / / _ \| | | \ \ / /_ _/ __| /_\  `,
	`  \ V / (_) | |_| |\ V / | |\__ \/ _ \ `,
	`   |_| \___/ \___/  \_/ |___|___/_/ \_\`,
}

// Teal to blue, one color per banner line.
var bannerColors = []string{"#2dd4bf", "#22d3ee", "#38bdf8", "#60a5fa"}

// PrintBanner writes the YOUVISA banner, colored when w is a color terminal.
func PrintBanner(w io.Writer) {
	out := termenv.NewOutput(w)
	p := out.ColorProfile()

	fmt.Fprintln(w)
	for i, line := range bannerLines {
		fmt.Fprintln(w, out.String(line).Foreground(p.Color(bannerColors[i%len(bannerColors)])))
	}
	fmt.Fprintln(w, "  Digite /start para começar, /attach <arquivo> para enviar um documento, exit para sair.")
	fmt.Fprintln(w)
}
