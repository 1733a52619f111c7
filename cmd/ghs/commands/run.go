package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mosaicnetworks/ghs/src/ghs"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

//NewRunCmd returns the command that runs a simulation
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "run",
		Short:   "Run a simulation",
		PreRunE: loadConfig,
		RunE:    runGHS,
	}
	AddRunFlags(cmd)
	return cmd
}

/*******************************************************************************
* RUN
*******************************************************************************/

func runGHS(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sim := ghs.NewSimulation(&_config.GHS)

	if err := sim.Init(); err != nil {
		_config.GHS.Logger().Error("Cannot initialize simulation: ", err)
		return err
	}
	defer sim.Close()

	res, err := sim.Run(ctx)
	if err != nil {
		_config.GHS.Logger().Error("Simulation failed: ", err)
		return err
	}

	if _config.Verify {
		if err := res.Verify(sim.Topology); err != nil {
			_config.GHS.Logger().Error("Verification failed: ", err)
			return err
		}
	}

	printResult(cmd, res)

	if sim.Service != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "Serving results on %s\n", _config.GHS.ServiceAddr)
		<-ctx.Done()
	}

	return nil
}

func printResult(cmd *cobra.Command, res *ghs.Result) {
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "Leader: %d\n", res.Leader)
	fmt.Fprintf(out, "Tree weight: %d\n", res.Weight)
	fmt.Fprintf(out, "Tree edges:\n")
	for _, e := range res.Tree {
		fmt.Fprintf(out, "  %s\n", e)
	}
	fmt.Fprintf(out, "Messages: %d\n", res.Messages)
	fmt.Fprintf(out, "Duration: %s\n", res.Duration)
}

/*******************************************************************************
* CONFIG
*******************************************************************************/

//AddRunFlags adds flags to the Run command
func AddRunFlags(cmd *cobra.Command) {

	cmd.Flags().String("datadir", _config.GHS.DataDir, "Top-level directory for configuration and data")
	cmd.Flags().String("log", _config.GHS.LogLevel, "debug, info, warn, error, fatal, panic")

	// Topology
	cmd.Flags().StringP("topology", "g", _config.GHS.Topology, "Topology file (default: 10-node sample)")
	cmd.Flags().StringP("format", "f", _config.GHS.Format, "Topology format: matrix, edges or json")

	// Scheduling
	cmd.Flags().Int64("seed", _config.GHS.Seed, "Seed of the node random generators")
	cmd.Flags().Int("budget-min", _config.GHS.BudgetMin, "Minimum idle work before self-wakeup, in flops")
	cmd.Flags().Int("budget-max", _config.GHS.BudgetMax, "Maximum idle work before self-wakeup, in flops")
	cmd.Flags().Int("tick-min", _config.GHS.TickMin, "Minimum flops per idle tick")
	cmd.Flags().Int("tick-max", _config.GHS.TickMax, "Maximum flops per idle tick")
	cmd.Flags().Duration("idle-unit", _config.GHS.IdleUnit, "Duration of one flop")

	// Network
	cmd.Flags().Duration("max-latency", _config.GHS.MaxLatency, "Maximum random delay of each message")
	cmd.Flags().Duration("flush-timeout", _config.GHS.FlushTimeout, "Maximum wait for each outstanding message at exit")
	cmd.Flags().Duration("run-timeout", _config.GHS.RunTimeout, "Abort the simulation after this long")

	// Store
	cmd.Flags().Bool("store", _config.GHS.Store, "Use badgerDB instead of in-mem DB")
	cmd.Flags().String("db", _config.GHS.DatabaseDir, "Dabatabase directory")
	cmd.Flags().String("trace-file", _config.GHS.TraceFile, "Write the trace to this file, relative to datadir")

	// Service
	cmd.Flags().Bool("no-service", _config.GHS.NoService, "Disable HTTP service")
	cmd.Flags().StringP("service-listen", "s", _config.GHS.ServiceAddr, "Listen IP:Port for HTTP service")

	cmd.Flags().Bool("verify", _config.Verify, "Check the tree against Kruskal's algorithm")
}

func loadConfig(cmd *cobra.Command, args []string) error {

	err := bindFlagsLoadViper(cmd)
	if err != nil {
		return err
	}

	// If --datadir was explicitely set, but not --db, this will update the
	// default database dir to be inside the new datadir
	_config.GHS.SetDataDir(_config.GHS.DataDir)

	logFields := logrus.Fields{
		"ghs.DataDir":      _config.GHS.DataDir,
		"ghs.LogLevel":     _config.GHS.LogLevel,
		"ghs.Topology":     _config.GHS.Topology,
		"ghs.Format":       _config.GHS.Format,
		"ghs.Seed":         _config.GHS.Seed,
		"ghs.BudgetMin":    _config.GHS.BudgetMin,
		"ghs.BudgetMax":    _config.GHS.BudgetMax,
		"ghs.TickMin":      _config.GHS.TickMin,
		"ghs.TickMax":      _config.GHS.TickMax,
		"ghs.IdleUnit":     _config.GHS.IdleUnit,
		"ghs.MaxLatency":   _config.GHS.MaxLatency,
		"ghs.FlushTimeout": _config.GHS.FlushTimeout,
		"ghs.RunTimeout":   _config.GHS.RunTimeout,
		"ghs.Store":        _config.GHS.Store,
		"ghs.TraceFile":    _config.GHS.TraceFile,
		"ghs.NoService":    _config.GHS.NoService,
		"Verify":           _config.Verify,
	}

	if _config.GHS.Store {
		logFields["ghs.DatabaseDir"] = _config.GHS.DatabaseDir
	}

	if !_config.GHS.NoService {
		logFields["ghs.ServiceAddr"] = _config.GHS.ServiceAddr
	}

	_config.GHS.Logger().WithFields(logFields).Debug("RUN")

	return nil
}

// Bind all flags and read the config into viper
func bindFlagsLoadViper(cmd *cobra.Command) error {
	// Register flags with viper. Include flags from this command and all other
	// persistent flags from the parent
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// first unmarshal to read from CLI flags
	if err := viper.Unmarshal(_config); err != nil {
		return err
	}

	// look for config file in [datadir]/ghs.toml (.json, .yaml also work)
	viper.SetConfigName("ghs")               // name of config file (without extension)
	viper.AddConfigPath(_config.GHS.DataDir) // search root directory

	// If a config file is found, read it in. The logger is only created once
	// the log level is final.
	var found string
	if err := viper.ReadInConfig(); err == nil {
		found = viper.ConfigFileUsed()
	} else if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
		return err
	}

	// second unmarshal to read from config file
	if err := viper.Unmarshal(_config); err != nil {
		return err
	}

	if found != "" {
		_config.GHS.Logger().Debugf("Using config file: %s", found)
	} else {
		_config.GHS.Logger().Debugf("No config file found in: %s", _config.GHS.DataDir)
	}

	return nil
}
