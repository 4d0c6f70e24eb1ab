// Package blob is the entry point to the run-report archive. It re-exports the
// storage contract and selects a backend from the environment; callers never
// import the infra backends directly.
package blob

import "flowclone/internal/blob/core"

type (
	// Driver identifies an archive backend.
	Driver = core.Driver
	// PutOptions describes an object being written.
	PutOptions = core.PutOptions
	// Info describes a stored object.
	Info = core.Info
	// Store is the create-only archive contract.
	Store = core.Store
)

const (
	DriverFilesystem = core.DriverFilesystem
	DriverS3         = core.DriverS3
	DriverMemory     = core.DriverMemory
)

var (
	ErrExists   = core.ErrExists
	ErrNotFound = core.ErrNotFound
)
