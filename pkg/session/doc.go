// Package session orchestrates access to workflow sessions: loading and
// saving state through a ports.StateStore while serializing concurrent
// operations on the same session, locally and (optionally) across
// replicas via a distributed locker.
package session
