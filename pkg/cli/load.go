package cli

import (
	"flag"
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/platinummonkey/hub/pkg/lifecycle"
)

func newLoadCommand() *Command {
	cmd := &Command{
		Name:        "load",
		Description: "Discover, validate, and load a plugin from a directory",
		Flags:       flag.NewFlagSet("load", flag.ExitOnError),
		Run:         runLoad,
	}

	cmd.Flags.String("path", "", "Plugin directory")
	cmd.Flags.String("server", defaultServerURL, "Hub daemon URL")

	return cmd
}

func runLoad(args []string) error {
	cmd := newLoadCommand()
	if err := cmd.Flags.Parse(args); err != nil {
		return err
	}

	path := cmd.Flags.Lookup("path").Value.String()
	server := cmd.Flags.Lookup("server").Value.String()

	if path == "" {
		return &ExitError{Code: ExitUsage, Err: fmt.Errorf("path is required")}
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return &ExitError{Code: ExitUsage, Err: fmt.Errorf("resolve path %s: %w", path, err)}
	}

	var result lifecycle.Result
	if _, err := newClient(server).do(http.MethodPost, "/plugins", map[string]string{"path": abs}, &result); err != nil {
		return &ExitError{Code: ExitLifecycle, Err: err}
	}
	if err := printJSON(result); err != nil {
		return err
	}
	return resultError(&result)
}
