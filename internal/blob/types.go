// Package blob re-exports core blob abstractions and wires the infra
// backends. Callers outside this package depend on blob.Store only.
package blob

import (
	"digitalroom/internal/blob/core"
)

type (
	// Driver identifies a blob backend driver.
	Driver = core.Driver
	// UploadOptions configures an upload.
	UploadOptions = core.UploadOptions
	// Object describes stored object metadata.
	Object = core.Object
	// Store is the interface for blob storage backends.
	Store = core.Store
)

const (
	// DriverFilesystem is the local filesystem driver.
	DriverFilesystem = core.DriverFilesystem
	// DriverS3 is the S3-compatible driver.
	DriverS3 = core.DriverS3
	// DriverMemory is the in-memory test driver.
	DriverMemory = core.DriverMemory
)

var (
	// ErrExists indicates an upload to an occupied path.
	ErrExists = core.ErrExists
	// ErrUnsupported indicates an operation isn't supported by a driver.
	ErrUnsupported = core.ErrUnsupported
)
