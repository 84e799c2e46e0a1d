package cli

import (
	"flag"
	"fmt"
	"net/http"

	"github.com/platinummonkey/hub/pkg/lifecycle"
)

func newReloadCommand() *Command {
	cmd := &Command{
		Name:        "reload",
		Description: "Unload then load a plugin, rereading it from disk",
		Flags:       flag.NewFlagSet("reload", flag.ExitOnError),
		Run:         runReload,
	}

	cmd.Flags.String("id", "", "Plugin id")
	cmd.Flags.String("server", defaultServerURL, "Hub daemon URL")

	return cmd
}

func runReload(args []string) error {
	cmd := newReloadCommand()
	if err := cmd.Flags.Parse(args); err != nil {
		return err
	}

	id := cmd.Flags.Lookup("id").Value.String()
	server := cmd.Flags.Lookup("server").Value.String()

	if id == "" {
		return &ExitError{Code: ExitUsage, Err: fmt.Errorf("id is required")}
	}

	var result lifecycle.Result
	if _, err := newClient(server).do(http.MethodPost, "/plugins/"+id+"/reload", nil, &result); err != nil {
		return &ExitError{Code: ExitLifecycle, Err: err}
	}
	if err := printJSON(result); err != nil {
		return err
	}
	return resultError(&result)
}
