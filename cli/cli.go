package cli

import (
	"context"
	"errors"
	"fmt"
	flag "github.com/spf13/pflag"
	"maps"
	"regexp"
	"slices"
	"strings"
)

var (
	ErrUnknownCommand = errors.New("unknown command")
	HelpPatterns      = []string{"--help", "-h"} // HelpPatterns is a slice of flags that should trigger the output of usage information with the top-level [CommandSet].

	keyCleansePattern = regexp.MustCompile(`\s`)
)

// CommandFunc is a function that may be executed within a [Command].
// The context is the one passed to [CommandSet.Exec], and is expected to be cancelled on shutdown.
type CommandFunc = func(ctx context.Context, flags *flag.FlagSet, printer *Printer) error

// BeforeFunc runs right before a [Command] executes, after its flags are parsed.
// Returning an error prevents execution.
type BeforeFunc = func(flags *flag.FlagSet) error

// Command is an executable function in a CLI.
// It should be linked to a [CommandSet] to establish a tree of commands available to the user.
type Command struct {
	CommandSet
	flags      *flag.FlagSet
	exec       CommandFunc
	key        string
	shortUsage string
	usage      string
	aliases    []string
}

func cleanseKey(key string) string {
	return keyCleansePattern.ReplaceAllString(strings.ToLower(key), "")
}

func newCommand(key string, parent *CommandSet, shortUsage string) *Command {
	key = cleanseKey(key)
	fs := flag.NewFlagSet(key, flag.ContinueOnError)
	fs.BoolP("help", "h", false, "Prints this usage information")
	fs.SetInterspersed(false)
	cmd := &Command{
		CommandSet: CommandSet{
			printer: parent.Printer(),
			before:  slices.Clone(parent.before),
			parent:  strings.TrimSpace(parent.parent + " " + key),
		},
		flags:      fs,
		key:        key,
		shortUsage: shortUsage,
	}
	fs.SetOutput(cmd.printer)
	fs.Usage = cmd.printUsage
	return cmd
}

// Does specifies the [CommandFunc] that should be executed by this [Command].
func (c *Command) Does(commandFunc CommandFunc) *Command {
	if commandFunc == nil {
		return c
	}
	c.exec = commandFunc
	return c
}

// CommandPath returns the reference chain for this [Command].
func (c *Command) CommandPath() string {
	return c.parent
}

// Flags returns the [flag.FlagSet] for this [Command].
func (c *Command) Flags() *flag.FlagSet {
	return c.flags
}

// Usage allows specifying a longer description of the [Command] that will be output when a [HelpPatterns] flag is passed.
// The text is prefixed with the [Command.CommandPath].
//
// The short description, flag usages, and sub-command usages will be appended to this description.
func (c *Command) Usage(format string, args ...any) *Command {
	c.usage = fmt.Sprintf(format, args...)
	return c
}

func (c *Command) printUsage() {
	var buf strings.Builder
	buf.WriteString(c.shortUsage + "\n")
	buf.WriteString("\nUSAGE:\n" + c.parent)
	if len(c.usage) > 0 {
		buf.WriteString(" " + strings.TrimSuffix(c.usage, "\n"))
	}
	buf.WriteString("\n\nFLAGS\n")
	buf.WriteString(c.flags.FlagUsages())
	if len(c.commands) > 0 {
		buf.WriteString("\nCOMMANDS\n")
		buf.WriteString(c.CommandUsages())
	}
	c.printer.Print(buf.String())
}

// Exec executes the command with given arguments, parsing flags.
// If the args start with a sub-command, then that is executed instead.
func (c *Command) Exec(ctx context.Context, args []string) error {
	if err := c.CommandSet.Exec(ctx, args); !errors.Is(err, ErrUnknownCommand) {
		return err
	}
	if err := c.flags.Parse(args); err != nil {
		return err
	}
	if val, _ := c.flags.GetBool("help"); val || c.exec == nil {
		c.printUsage()
		return nil
	}
	for _, before := range c.before {
		if err := before(c.flags); err != nil {
			return err
		}
	}
	err := c.exec(ctx, c.flags, c.printer)
	var usageErr *UsageError
	if errors.As(err, &usageErr) {
		c.printer.Println(err)
		c.printer.Println()
		c.printUsage()
	}
	return err
}

// CommandSet is a group of [Command].
type CommandSet struct {
	commands map[string]*Command
	aliases  map[string]*Command
	printer  *Printer
	before   []BeforeFunc
	parent   string
}

// NewCommandSet is used to set up a top level [CommandSet] as the root of a CLI's command structure.
//
// Note: the parent(s) passed to this function will be used to populate sub-command usage information.
// So they should only contain the commands used to invoke this [CommandSet].
func NewCommandSet(parent ...string) *CommandSet {
	return &CommandSet{printer: NewPrinter(), parent: strings.Join(parent, " ")}
}

// Parent retrieves the invocation chain of this [CommandSet].
func (s *CommandSet) Parent() string {
	return s.parent
}

// Before registers a [BeforeFunc] for every [Command] added to this [CommandSet] afterward.
// Passing a nil function will panic.
func (s *CommandSet) Before(fn BeforeFunc) {
	if fn == nil {
		panic("nil before function")
	}
	s.before = append(s.before, fn)
}

// AddCommand adds a sub-command to this [CommandSet].
// The key parameter will be cleansed to remove spaces, and normalize to lower-case.
// Aliases may be added as a way to support shorter variants of the same [Command].
func (s *CommandSet) AddCommand(key, shortUsage string, aliases ...string) *Command {
	cmd := newCommand(key, s, shortUsage)
	if s.commands == nil {
		s.commands = map[string]*Command{}
	}
	s.commands[cmd.key] = cmd
	for _, alias := range aliases {
		alias = cleanseKey(alias)
		if len(alias) == 0 {
			continue
		}
		if s.aliases == nil {
			s.aliases = map[string]*Command{}
		}
		s.aliases[alias] = cmd
		cmd.aliases = append(cmd.aliases, alias)
	}
	slices.Sort(cmd.aliases)
	return cmd
}

// Printer returns the [Printer] shared by this [CommandSet] and its sub-commands.
func (s *CommandSet) Printer() *Printer {
	if s.printer == nil {
		s.printer = NewPrinter()
	}
	return s.printer
}

// Exec executes this [CommandSet].
// It's expected that the first 1+ arguments include the key/alias for a sub-command.
func (s *CommandSet) Exec(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: no arguments", ErrUnknownCommand)
	}
	key := strings.ToLower(args[0])
	cmd, ok := s.commands[key]
	if !ok {
		cmd, ok = s.aliases[key]
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownCommand, args[0])
		}
	}
	return cmd.Exec(ctx, args[1:])
}

// RespondUsage will print usage information with the [Printer] if args is empty, or starts with one of [HelpPatterns].
// If usage information was printed, then true will be returned.
func (s *CommandSet) RespondUsage(args []string, format string, vals ...any) bool {
	if len(args) > 0 && !slices.Contains(HelpPatterns, args[0]) {
		return false
	}
	text := fmt.Sprintf(format, vals...)
	if len(text) > 0 {
		text = "\n\n" + strings.TrimSuffix(text, "\n")
	}
	s.Printer().Printf("%s%s\n\nCOMMANDS:\n%s", s.parent, text, s.CommandUsages())
	return true
}

// CommandUsages returns a string including the usage information for sub-commands in this [CommandSet].
//
// The sub-command keys will be sorted alphabetically before output.
func (s *CommandSet) CommandUsages() string {
	var (
		buf    strings.Builder
		keys   = slices.Sorted(maps.Keys(s.commands))
		names  = make([]string, len(keys))
		maxLen int
	)
	for i, key := range keys {
		names[i] = strings.Join(append([]string{key}, s.commands[key].aliases...), ", ")
		maxLen = max(maxLen, len(names[i]))
	}
	fmtStr := fmt.Sprintf("  %%-%ds\t%%s\n", maxLen)
	for i, key := range keys {
		buf.WriteString(fmt.Sprintf(fmtStr, names[i], s.commands[key].shortUsage))
	}
	return buf.String()
}
