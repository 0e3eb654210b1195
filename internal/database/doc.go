// Package database provides connection pool management for the rate history database.
//
// History is optional: the service only connects when history.enabled is set,
// and the engine never depends on the database being reachable.
package database
