package tui

import (
	"fmt"

	"github.com/muesli/termenv"
)

// PrintBanner prints the startup banner, shaded with the terminal's color
// profile.
func PrintBanner(version string) {
	p := termenv.ColorProfile()

	s1 := termenv.String("  _ __   ___ _ __ __ _  ___ | | __ _ ").Foreground(p.Color("#86efac"))
	s2 := termenv.String(" | '_ \\ / _ \\ '__/ _` |/ _ \\| |/ _` |").Foreground(p.Color("#4ade80"))
	s3 := termenv.String(" | |_) |  __/ |  | (_| | (_) | | (_| |").Foreground(p.Color("#22c55e"))
	s4 := termenv.String(" | .__/ \\___|_|   \\__, |\\___/|_|\\__,_|").Foreground(p.Color("#16a34a"))
	s5 := termenv.String(" |_|              |___/               ").Foreground(p.Color("#15803d"))

	fmt.Println()
	fmt.Println(s1)
	fmt.Println(s2)
	fmt.Println(s3)
	fmt.Println(s4)
	fmt.Println(s5)
	fmt.Printf("  workflow interpreter %s\n\n", version)
}
