// Package service exposes the outcome of a simulation over HTTP.
//
// Endpoints:
//
//  /results     the NodeResult of every node
//  /nodes/<id>  the NodeResult of one node
//  /mst         the spanning tree found, next to the reference one
//  /trace       the trace events, or the trace lines with ?format=text
//
// Results are written when the simulation ends, while trace events are
// available as soon as their batch reaches the store.
package service
