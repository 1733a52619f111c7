package commands

import (
	"fmt"
	"os"

	"github.com/mosaicnetworks/ghs/src/graph"
	"github.com/spf13/cobra"
)

var exportFile string

//NewMSTCmd returns the command that computes the reference spanning tree of a
//topology
func NewMSTCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "mst",
		Short:   "Compute the minimum spanning tree with Kruskal's algorithm",
		PreRunE: loadConfig,
		RunE:    mst,
	}
	AddMSTFlags(cmd)
	return cmd
}

//AddMSTFlags adds flags to the mst command
func AddMSTFlags(cmd *cobra.Command) {
	cmd.Flags().String("datadir", _config.GHS.DataDir, "Top-level directory for configuration and data")
	cmd.Flags().String("log", _config.GHS.LogLevel, "debug, info, warn, error, fatal, panic")
	cmd.Flags().StringP("topology", "g", _config.GHS.Topology, "Topology file (default: 10-node sample)")
	cmd.Flags().StringP("format", "f", _config.GHS.Format, "Topology format: matrix, edges or json")
	cmd.Flags().StringVar(&exportFile, "export", "", "Also write the topology to this file as JSON")
}

func mst(cmd *cobra.Command, args []string) error {
	t := graph.TenNodes()

	if _config.GHS.Topology != "" {
		format, err := graph.ParseFormat(_config.GHS.Format)
		if err != nil {
			return err
		}
		t, err = graph.LoadFile(_config.GHS.Topology, format)
		if err != nil {
			return err
		}
	}

	if err := t.Validate(); err != nil {
		return err
	}

	tree, weight, err := graph.Kruskal(t)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Nodes: %d\n", t.N())
	fmt.Fprintf(out, "Tree weight: %d\n", weight)
	fmt.Fprintf(out, "Tree edges:\n")
	for _, e := range tree {
		fmt.Fprintf(out, "  %s\n", e)
	}

	if exportFile != "" {
		f, err := os.Create(exportFile)
		if err != nil {
			return err
		}
		defer f.Close()

		if err := graph.WriteJSON(f, t); err != nil {
			return err
		}
		fmt.Fprintf(out, "Topology written to: %s\n", exportFile)
	}

	return nil
}
