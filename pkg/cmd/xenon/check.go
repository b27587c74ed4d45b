package xenon

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v2"

	"github.com/xenoncommunity/xenon/pkg/config"
)

func checkCommand() *cli.Command {
	return &cli.Command{
		Name:  "check",
		Usage: "Validate the configuration and list the backend servers",
		Action: func(c *cli.Context) error {
			v, err := newViper(c.String("config"))
			if err != nil {
				return err
			}
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}
			return check(c.App.Writer, cfg)
		},
	}
}

// check writes the validation result and the server table of cfg to w.
func check(w io.Writer, cfg *config.Config) error {
	warns, errList := cfg.Validate()
	for _, warn := range warns {
		_, _ = fmt.Fprintf(w, "WARN  %s\n", warn)
	}
	for _, e := range errList {
		_, _ = fmt.Fprintf(w, "ERROR %s\n", e)
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Server", "Address", "Try", "Forced hosts"})
	table.SetAutoWrapText(false)
	for _, row := range serverRows(cfg) {
		table.Append(row)
	}
	table.Render()

	if len(errList) != 0 {
		return fmt.Errorf("config is invalid: %w", errors.Join(errList...))
	}
	_, _ = fmt.Fprintf(w, "Config is valid, %d server(s) configured.\n", len(cfg.Servers))
	return nil
}

// serverRows returns one row per server sorted by name.
func serverRows(cfg *config.Config) [][]string {
	names := make([]string, 0, len(cfg.Servers))
	for name := range cfg.Servers {
		names = append(names, name)
	}
	sort.Strings(names)

	rows := make([][]string, 0, len(names))
	for _, name := range names {
		try := "-"
		for i, t := range cfg.Try {
			if strings.EqualFold(t, name) {
				try = strconv.Itoa(i + 1)
				break
			}
		}
		var hosts []string
		for host, servers := range cfg.ForcedHosts {
			for _, s := range servers {
				if strings.EqualFold(s, name) {
					hosts = append(hosts, host)
					break
				}
			}
		}
		sort.Strings(hosts)
		rows = append(rows, []string{name, cfg.Servers[name], try, strings.Join(hosts, ", ")})
	}
	return rows
}
