// Package ghs assembles a complete simulation of the Gallager-Humblet-Spira
// algorithm.
//
// A Simulation takes a config.Config, loads the topology, and creates one
// node.Node per vertex, each with its own InmemTransport and a random
// generator derived from Config.Seed. Trace events go to the console logger,
// to the store through a trace.Hook, and optionally to a trace file.
//
//  sim := ghs.NewSimulation(conf)
//  if err := sim.Init(); err != nil {
//      return err
//  }
//  defer sim.Close()
//
//  res, err := sim.Run(ctx)
//  if err != nil {
//      return err
//  }
//  return res.Verify(sim.Topology)
package ghs
