package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/hub/pkg/plugins"
)

func newDiscoverCommand() *Command {
	cmd := &Command{
		Name:        "discover",
		Description: "Scan directories for plugin candidates without loading them",
		Flags:       flag.NewFlagSet("discover", flag.ExitOnError),
		Run:         runDiscover,
	}

	cmd.Flags.String("dir", ".", "Comma-separated directories to scan")
	cmd.Flags.Bool("json", false, "Emit JSON instead of a table")

	return cmd
}

// runDiscover scans locally: discovery is metadata-only and never executes
// plugin code, so it needs no daemon.
func runDiscover(args []string) error {
	cmd := newDiscoverCommand()
	if err := cmd.Flags.Parse(args); err != nil {
		return err
	}

	dirs := strings.Split(cmd.Flags.Lookup("dir").Value.String(), ",")
	asJSON := cmd.Flags.Lookup("json").Value.String() == "true"

	roots := make([]string, 0, len(dirs))
	for _, d := range dirs {
		if d = strings.TrimSpace(d); d != "" {
			roots = append(roots, d)
		}
	}
	if len(roots) == 0 {
		return &ExitError{Code: ExitUsage, Err: fmt.Errorf("at least one directory is required")}
	}

	log := logrus.New()
	log.SetLevel(logrus.WarnLevel)
	discovery := plugins.NewDiscovery(roots, log)

	metas, err := discovery.Scan(context.Background())
	if err != nil {
		return &ExitError{Code: ExitLifecycle, Err: err}
	}

	if asJSON {
		return printJSON(metas)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tVERSION\tSERVICES\tMODULE")
	for _, meta := range metas {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", meta.ID, meta.Version, strings.Join(meta.Services, ","), meta.ModulePath)
	}
	return w.Flush()
}
