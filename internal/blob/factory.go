package blob

import (
	"context"
	"fmt"
	"os"

	"flowclone/internal/infra/blob/fs"
	"flowclone/internal/infra/blob/memory"
	"flowclone/internal/infra/blob/s3"
)

// Environment variables selecting the archive.
//
//	FLOWCLONE_REPORT_DRIVER: fs|s3|memory (unset disables archiving)
//	FLOWCLONE_REPORT_FS_ROOT: directory when driver=fs (default ./reports)
//	S3 settings are documented in internal/infra/blob/s3.
const (
	DriverEnv = "FLOWCLONE_REPORT_DRIVER"
	FSRootEnv = "FLOWCLONE_REPORT_FS_ROOT"
)

// Open returns the configured archive, or nil when archiving is disabled.
// getenv defaults to os.Getenv.
func Open(ctx context.Context, getenv func(string) string) (Store, error) {
	if getenv == nil {
		getenv = os.Getenv
	}
	driver := getenv(DriverEnv)
	switch Driver(driver) {
	case "":
		return nil, nil
	case DriverFilesystem:
		return fs.New(getenv(FSRootEnv))
	case DriverS3:
		cfg, err := s3.ConfigFromEnv(getenv)
		if err != nil {
			return nil, err
		}
		return s3.New(ctx, cfg)
	case DriverMemory:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown report driver %s", driver)
	}
}

// NewMemory returns an in-memory archive.
func NewMemory() Store { return memory.New() }

// NewS3Fake returns an S3 archive backed by an in-memory transport, for tests
// outside the infra tree.
func NewS3Fake() Store { return s3.NewFake() }
