package main

import (
	"io"
	"os"

	"github.com/mattn/go-isatty"

	"storyreel/internal/store"
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

func renderStatusColor(status store.RenderStatus) string {
	switch status {
	case store.RenderCompleted:
		return ansiGreen
	case store.RenderFailed:
		return ansiRed
	case store.RenderRenderingVideo:
		return ansiYellow
	default:
		return ""
	}
}

func projectStatusColor(status store.ProjectStatus) string {
	switch status {
	case store.ProjectCompleted:
		return ansiGreen
	case store.ProjectRendering:
		return ansiYellow
	default:
		return ansiBlue
	}
}

func paint(value, color string, colorize bool) string {
	if !colorize || color == "" || value == "" {
		return value
	}
	return color + value + ansiReset
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
