package dataset

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/google/uuid"

	strataerrors "github.com/stratadb/strata/internal/errors"
	"github.com/stratadb/strata/internal/lockfile"
	"github.com/stratadb/strata/internal/storage"
)

// Snapshot copies the dataset container to object storage and returns the
// object path. The copy runs under a shared lock, so it captures a
// committed state while readers proceed and writers wait. The container
// itself is never mutated.
func (p *Persistence) Snapshot(ctx context.Context, store storage.ObjectStorage) (string, error) {
	path := p.FilePath()
	if _, err := os.Stat(path); err != nil {
		return "", strataerrors.NewStorageError(strataerrors.CodeReadFailed,
			fmt.Sprintf("dataset %s has no container to snapshot", p.schema.DatasetID), err)
	}

	lock, err := lockfile.AcquireShared(lockfile.SidecarPath(path), p.readLock)
	if err != nil {
		return "", err
	}
	defer lock.Release()

	objectPath := fmt.Sprintf("snapshots/%s%s/%s%s",
		FilePrefix, p.schema.DatasetID, uuid.New().String(), FileExt)
	if err := store.Upload(ctx, path, objectPath); err != nil {
		return "", strataerrors.NewStorageError(strataerrors.CodeWriteFailed,
			"upload container snapshot", err)
	}

	log.Printf("dataset: snapshot of dataset_id=%s written to %s", p.schema.DatasetID, objectPath)
	return objectPath, nil
}
