package cli

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"text/tabwriter"

	"github.com/platinummonkey/hub/pkg/lifecycle"
)

func newListCommand() *Command {
	cmd := &Command{
		Name:        "list",
		Description: "List loaded plugins",
		Flags:       flag.NewFlagSet("list", flag.ExitOnError),
		Run:         runList,
	}

	cmd.Flags.String("server", defaultServerURL, "Hub daemon URL")
	cmd.Flags.Bool("json", false, "Emit JSON instead of a table")

	return cmd
}

func runList(args []string) error {
	cmd := newListCommand()
	if err := cmd.Flags.Parse(args); err != nil {
		return err
	}

	server := cmd.Flags.Lookup("server").Value.String()
	asJSON := cmd.Flags.Lookup("json").Value.String() == "true"

	var infos []lifecycle.PluginInfo
	if _, err := newClient(server).do(http.MethodGet, "/plugins", nil, &infos); err != nil {
		return &ExitError{Code: ExitLifecycle, Err: err}
	}

	if asJSON {
		return printJSON(infos)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tVERSION\tSTATUS\tSERVICES")
	for _, info := range infos {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\n", info.ID, info.Name, info.Version, info.Status, len(info.Services))
	}
	return w.Flush()
}
