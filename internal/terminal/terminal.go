package terminal

import (
	"strings"
	"unicode/utf8"

	"walkthrough/internal/logger"
	"walkthrough/internal/ui"
)

const (
	prompt = "> "
	// Number of log lines drawn above the input bar when the terminal is open.
	maxLinesOnScreen = 14
	maxLineLength    = 200
	// barHeight matches the .terminal-bar height.
	barHeight = 40
)

// Runner executes one submitted line.
type Runner interface {
	RunLine(line string) error
}

// Terminal is the in-window command bar at the bottom of the screen. It is shown/hidden with ESC.
// While it is open it captures the keyboard, so the viewer does not move the player.
// Submitted lines are logged and executed through the runner; errors are logged too.
type Terminal struct {
	log      *logger.Logger
	runner   Runner
	inputBuf string
	open     bool
	history  []string
	recall   int

	chat *ui.Node
	bar  *ui.Node
}

// New returns a closed Terminal that runs lines through runner.
func New(log *logger.Logger, runner Runner) *Terminal {
	t := &Terminal{
		log:    log,
		runner: runner,
		chat:   ui.NewNode("panel", "terminal-log", "", ""),
		bar:    ui.NewNode("panel", "terminal-bar", "", ""),
	}
	// The log sits directly above the bar.
	t.chat.Bounds.Y = -barHeight
	return t
}

// IsOpen returns true when the terminal is visible and capturing input (player cannot move).
func (t *Terminal) IsOpen() bool {
	return t.open
}

// Toggle opens or closes the terminal.
func (t *Terminal) Toggle() {
	t.open = !t.open
}

// Input returns the line being typed.
func (t *Terminal) Input() string {
	return t.inputBuf
}

// Type appends typed characters or pasted text. Ignored while closed.
func (t *Terminal) Type(s string) {
	if !t.open {
		return
	}
	t.inputBuf += strings.ReplaceAll(s, "\n", " ")
}

// Backspace removes the last character of the input.
func (t *Terminal) Backspace() {
	if !t.open || t.inputBuf == "" {
		return
	}
	_, size := utf8.DecodeLastRuneInString(t.inputBuf)
	t.inputBuf = t.inputBuf[:len(t.inputBuf)-size]
}

// Recall replaces the input with an earlier submitted line; step -1 goes back, +1 forward.
func (t *Terminal) Recall(step int) {
	if !t.open || len(t.history) == 0 {
		return
	}
	t.recall += step
	if t.recall < 0 {
		t.recall = 0
	}
	if t.recall >= len(t.history) {
		t.recall = len(t.history)
		t.inputBuf = ""
		return
	}
	t.inputBuf = t.history[t.recall]
}

// Submit logs and executes the input line and clears it.
func (t *Terminal) Submit() {
	if !t.open || strings.TrimSpace(t.inputBuf) == "" {
		return
	}
	line := t.inputBuf
	t.inputBuf = ""
	t.history = append(t.history, line)
	t.recall = len(t.history)
	t.log.Log(prompt + line)
	if err := t.runner.RunLine(line); err != nil {
		t.log.Log(err.Error())
	}
}

// Nodes returns the log area and input bar when the terminal is open, with their text refreshed
// from the last log lines.
func (t *Terminal) Nodes() []*ui.Node {
	if !t.open {
		return nil
	}
	lines := t.log.Lines()
	if len(lines) > maxLinesOnScreen {
		lines = lines[len(lines)-maxLinesOnScreen:]
	}
	for i, line := range lines {
		if len(line) > maxLineLength {
			lines[i] = line[:maxLineLength-3] + "..."
		}
	}
	t.chat.Text = strings.Join(lines, "\n")
	t.bar.Text = prompt + t.inputBuf + "|"
	return []*ui.Node{t.chat, t.bar}
}
