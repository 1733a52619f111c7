// Package config defines the configuration of a simulation run.
//
// Regardless of how the simulator is started, directly from Go code or from
// the command line, it uses the Config object defined in this package. The data
// directory, Config.DataDir, may contain a ghs.toml (or .json, .yaml) file
// read by the CLI, and is the default location of the Badger database and of
// the trace file:
//
//  ghs.toml   // (optional) configuration file
//  badger_db/ // results and trace, when Store is set
//  trace.log  // trace lines, when TraceFile is set to a relative name
package config
