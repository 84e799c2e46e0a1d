package cli

import (
	"flag"
	"fmt"
	"os"
)

// Exit codes returned by Execute. Validation failures and lifecycle failures
// are distinct classes so scripts can tell a misconfigured plugin from a
// broken one.
const (
	ExitOK         = 0
	ExitUsage      = 1
	ExitValidation = 2
	ExitLifecycle  = 3
)

// ExitError carries the process exit code alongside the underlying error.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// Command represents a CLI command
type Command struct {
	Name        string
	Description string
	Run         func(args []string) error
	Subcommands map[string]*Command
	Flags       *flag.FlagSet
}

// NewRootCommand creates the root command
func NewRootCommand() *Command {
	root := &Command{
		Name:        "hub",
		Description: "Hub - plugin lifecycle CLI",
		Subcommands: make(map[string]*Command),
		Flags:       flag.NewFlagSet("hub", flag.ExitOnError),
	}

	// Add subcommands
	root.Subcommands["load"] = newLoadCommand()
	root.Subcommands["unload"] = newUnloadCommand()
	root.Subcommands["reload"] = newReloadCommand()
	root.Subcommands["list"] = newListCommand()
	root.Subcommands["discover"] = newDiscoverCommand()

	return root
}

// Execute runs the command
func (c *Command) Execute() error {
	args := os.Args[1:]
	if len(args) == 0 {
		return c.usage()
	}

	// Check for help flag
	if args[0] == "-h" || args[0] == "--help" {
		return c.usage()
	}

	// Check for subcommand
	if subcmd, ok := c.Subcommands[args[0]]; ok {
		return subcmd.Run(args[1:])
	}

	return &ExitError{Code: ExitUsage, Err: fmt.Errorf("unknown command: %s", args[0])}
}

// ExitCode maps an Execute error to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	if xe, ok := err.(*ExitError); ok {
		return xe.Code
	}
	return ExitUsage
}

// usage prints the command usage
func (c *Command) usage() error {
	fmt.Printf("Usage: %s <command> [args]\n\n", c.Name)
	fmt.Printf("Commands:\n")
	for name, cmd := range c.Subcommands {
		fmt.Printf("  %-15s %s\n", name, cmd.Description)
	}
	return nil
}
