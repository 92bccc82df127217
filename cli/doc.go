/*
Package cli provides an opinionated package for how a CLI with sub-commands can be structured.

  - User-visible output should go to STDERR by default. This is supported with a configurable [Printer].
  - This package uses [pflag] for posix style flags.
  - Flags should NOT be interspersed. This makes flag and argument parsing consistent and predictable.
  - Flags apply to the command at hand. Shared setup that depends on flags goes in a [BeforeFunc].
  - Sub-command aliases are supported as additional, optional parameters to [CommandSet.AddCommand].

# Invocation

Invoking a CLI with sub-commands always follows this form:

	CLI_NAME [SUB-COMMAND...] [FLAGS...] [ARGS...]

Just calling CLI_NAME will print usage information for the tool, when [CommandSet.RespondUsage] is used.

# Usage by default

The '-h' and '--help' flags are set up for every [Command], with input from the developer with the [Command.Usage] method.
Returning a [UsageError] from a [CommandFunc] prints the error along with usage information.

[pflag]: https://github.com/spf13/pflag
*/
package cli
