package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the carpintaria banner in a warm wood gradient.
func PrintBanner(w io.Writer) {
	p := termenv.ColorProfile()
	lines := []struct {
		text, color string
	}{
		{"   ____                  _       _             _", "#fbbf24"},
		{"  / ___|__ _ _ __ _ __ (_)_ __ | |_ __ _ _ __(_) __ _", "#f59e0b"},
		{" | |   / _` | '__| '_ \\| | '_ \\| __/ _` | '__| |/ _` |", "#d97706"},
		{" | |__| (_| | |  | |_) | | | | | || (_| | |  | | (_| |", "#b45309"},
		{"  \\____\\__,_|_|  | .__/|_|_| |_|\\__\\__,_|_|  |_|\\__,_|", "#92400e"},
		{"                  |_|", "#78350f"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w)
}
