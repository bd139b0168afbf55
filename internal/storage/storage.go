package storage

import (
	"context"
	"path"
	"strings"
	"time"
)

const archivePrefix = "archive"

// ObjectInfo is a listed workbook in the bucket.
type ObjectInfo struct {
	Key  string
	Size int64
}

// ObjectStorage is the bucket used to pick up incoming workbooks and to
// archive the ones that were ingested.
type ObjectStorage interface {
	ListObjects(ctx context.Context, prefix string) ([]ObjectInfo, error)
	DownloadObject(ctx context.Context, key string, destPath string) error
	UploadObject(ctx context.Context, key string, data []byte) error
}

// ArchiveKey places an ingested workbook under archive/YYYY/MM/DD, prefixed
// with its upload id so re-uploads of the same file do not collide.
func ArchiveKey(now time.Time, uploadID, filename string) string {
	base := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	return path.Join(archivePrefix, now.Format("2006/01/02"), uploadID+"_"+base)
}
