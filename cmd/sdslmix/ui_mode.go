package main

import (
	"fmt"
	"strings"
)

// progressMode selects the live progress view of `sdslmix batch`.
type progressMode uint8

const (
	progressAuto progressMode = iota
	progressOn
	progressOff
)

var progressModeNames = [...]string{"auto", "on", "off"}

func (m progressMode) String() string {
	if int(m) < len(progressModeNames) {
		return progressModeNames[m]
	}
	return fmt.Sprintf("progressMode(%d)", m)
}

func parseProgressMode(value string) (progressMode, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return progressAuto, nil
	}
	for i, name := range progressModeNames {
		if name == value {
			return progressMode(i), nil
		}
	}
	return progressAuto, fmt.Errorf("sdslmix batch: --ui must be auto, on or off, got %q", value)
}

// live reports whether the progress view replaces the plain summary. Quiet
// runs never show it; auto shows it only when stdout is a terminal.
func (m progressMode) live(quiet, tty bool) bool {
	if quiet {
		return false
	}
	switch m {
	case progressOn:
		return true
	case progressOff:
		return false
	}
	return tty
}
