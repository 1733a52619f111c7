package commands

import (
	"fmt"

	"github.com/mosaicnetworks/ghs/src/store"
	"github.com/spf13/cobra"
)

var (
	traceNode   int
	showResults bool
)

//NewTraceCmd returns the command that prints the trace of a stored run
func NewTraceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "trace",
		Short:   "Print the trace of a run recorded with --store",
		PreRunE: loadConfig,
		RunE:    printTrace,
	}
	AddTraceFlags(cmd)
	return cmd
}

//AddTraceFlags adds flags to the trace command
func AddTraceFlags(cmd *cobra.Command) {
	cmd.Flags().String("datadir", _config.GHS.DataDir, "Top-level directory for configuration and data")
	cmd.Flags().String("log", _config.GHS.LogLevel, "debug, info, warn, error, fatal, panic")
	cmd.Flags().String("db", _config.GHS.DatabaseDir, "Dabatabase directory")
	cmd.Flags().IntVar(&traceNode, "node", -1, "Only print the events of this node")
	cmd.Flags().BoolVar(&showResults, "results", false, "Print the node results instead of the trace")
}

func printTrace(cmd *cobra.Command, args []string) error {
	db, err := store.NewBadgerStore(_config.GHS.DatabaseDir, _config.GHS.Logger())
	if err != nil {
		return err
	}
	defer db.Close()

	out := cmd.OutOrStdout()

	if showResults {
		results, err := db.Results()
		if err != nil {
			return err
		}
		for _, r := range results {
			data, err := r.Marshal()
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(data))
		}
		return nil
	}

	events, err := db.Trace()
	if err != nil {
		return err
	}

	for _, ev := range events {
		if traceNode >= 0 && ev.Node != traceNode {
			continue
		}
		fmt.Fprintln(out, ev.String())
	}

	return nil
}
