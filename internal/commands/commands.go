package commands

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/mattn/go-shellwords"
)

// prefix is accepted, and ignored, in front of any command.
const prefix = "cmd "

// ErrUsage is returned by a command whose arguments are missing or malformed.
var ErrUsage = errors.New("usage")

// Command is a subcommand with its own flags and a Run function.
// Flags are defined on FlagSet; Run is called after Parse and can read flag state and fs.Args().
type Command struct {
	Name    string
	Usage   string
	FlagSet *flag.FlagSet
	Run     func() error
}

// Registry holds subcommands by name. Add commands with Register; run with Execute.
type Registry struct {
	cmds map[string]*Command
	out  io.Writer
}

// NewRegistry returns an empty command registry. Commands and flag errors write to out.
func NewRegistry(out io.Writer) *Registry {
	return &Registry{cmds: make(map[string]*Command), out: out}
}

// Out is the writer commands print to.
func (r *Registry) Out() io.Writer {
	return r.out
}

// Register adds a subcommand. name is the first token of a line (e.g. "listing"); usage is shown by help.
// fs is that command's FlagSet; run is called after fs.Parse(args[1:]) succeeds.
func (r *Registry) Register(name, usage string, fs *flag.FlagSet, run func() error) {
	if fs == nil {
		fs = flag.NewFlagSet(name, flag.ContinueOnError)
	}
	fs.SetOutput(r.out)
	r.cmds[name] = &Command{Name: name, Usage: usage, FlagSet: fs, Run: run}
}

// Names returns the registered command names in order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.cmds))
	for name := range r.cmds {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Usage returns the usage line of name.
func (r *Registry) Usage(name string) string {
	if c, ok := r.cmds[name]; ok {
		return c.Usage
	}
	return ""
}

// Parse tokenizes a console line with shell quoting rules. An optional leading "cmd " is dropped.
// Blank lines return nil, false.
func Parse(line string) (args []string, ok bool) {
	line = strings.TrimSpace(line)
	line = strings.TrimSpace(strings.TrimPrefix(line, prefix))
	if line == "" || line == strings.TrimSpace(prefix) {
		return nil, false
	}
	args, err := shellwords.Parse(line)
	if err != nil || len(args) == 0 {
		return strings.Fields(line), true
	}
	return args, true
}

// Execute runs the subcommand in args[0] with args[1:] as flag/positional arguments.
// Returns an error for unknown command, parse error, or from Run().
func (r *Registry) Execute(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("missing subcommand")
	}
	name := args[0]
	cmd, ok := r.cmds[name]
	if !ok {
		return fmt.Errorf("unknown command: %s", name)
	}
	if err := cmd.FlagSet.Parse(args[1:]); err != nil {
		return err
	}
	if err := cmd.Run(); err != nil {
		if errors.Is(err, ErrUsage) {
			return fmt.Errorf("%w: %s", err, cmd.Usage)
		}
		return err
	}
	return nil
}

// RunLine parses and executes one console line. Blank lines do nothing.
func (r *Registry) RunLine(line string) error {
	args, ok := Parse(line)
	if !ok {
		return nil
	}
	return r.Execute(args)
}
