package cli

import (
	"flag"
	"fmt"
	"net/http"

	"github.com/platinummonkey/hub/pkg/lifecycle"
)

func newUnloadCommand() *Command {
	cmd := &Command{
		Name:        "unload",
		Description: "Unload a plugin and verify its boundary was reclaimed",
		Flags:       flag.NewFlagSet("unload", flag.ExitOnError),
		Run:         runUnload,
	}

	cmd.Flags.String("id", "", "Plugin id")
	cmd.Flags.String("server", defaultServerURL, "Hub daemon URL")

	return cmd
}

func runUnload(args []string) error {
	cmd := newUnloadCommand()
	if err := cmd.Flags.Parse(args); err != nil {
		return err
	}

	id := cmd.Flags.Lookup("id").Value.String()
	server := cmd.Flags.Lookup("server").Value.String()

	if id == "" {
		return &ExitError{Code: ExitUsage, Err: fmt.Errorf("id is required")}
	}

	var result lifecycle.Result
	if _, err := newClient(server).do(http.MethodDelete, "/plugins/"+id, nil, &result); err != nil {
		return &ExitError{Code: ExitLifecycle, Err: err}
	}
	if err := printJSON(result); err != nil {
		return err
	}
	return resultError(&result)
}
