package drive

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

// Source is the part of the Drive API the downloader needs.
type Source interface {
	ListFiles(ctx context.Context, folderID string) ([]*File, error)
	DownloadFile(ctx context.Context, fileID string, w io.Writer) error
	ExportWorkbook(ctx context.Context, fileID string, w io.Writer) error
}

// DownloadOptions controls how files are pulled from Google Drive.
type DownloadOptions struct {
	FolderID    string
	DownloadDir string
}

// Downloader pulls the workbooks of a folder to local disk.
type Downloader struct {
	source Source
}

func NewDownloader(s Source) *Downloader {
	return &Downloader{source: s}
}

var workbookExts = map[string]bool{
	".xlsx": true,
	".xlsm": true,
	".xls":  true,
	".csv":  true,
}

// DownloadFolder downloads every workbook of the folder into DownloadDir and
// returns the local paths.
//
//   - .xlsx, .xlsm, .xls and .csv files are downloaded as they are.
//   - Google Sheets are exported as .xlsx.
//   - Anything else is skipped.
func (d *Downloader) DownloadFolder(ctx context.Context, opts DownloadOptions) ([]string, error) {
	if opts.DownloadDir == "" {
		return nil, fmt.Errorf("download dir is required")
	}
	if err := os.MkdirAll(opts.DownloadDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create download dir: %w", err)
	}

	files, err := d.source.ListFiles(ctx, opts.FolderID)
	if err != nil {
		return nil, err
	}

	var localPaths []string
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		name, fetch := d.plan(f)
		if fetch == nil {
			log.Debug().Str("file", f.Name).Str("mime", f.MimeType).Msg("Skipping non-workbook Drive file")
			continue
		}

		localPath := filepath.Join(opts.DownloadDir, filepath.Base(name))
		if err := writeFile(localPath, func(w io.Writer) error { return fetch(ctx, f.ID, w) }); err != nil {
			return nil, fmt.Errorf("failed to download %s: %w", f.Name, err)
		}
		localPaths = append(localPaths, localPath)
	}

	log.Info().Str("folder", opts.FolderID).Int("files", len(localPaths)).Msg("Downloaded Drive workbooks")
	return localPaths, nil
}

func (d *Downloader) plan(f *File) (string, func(context.Context, string, io.Writer) error) {
	if f.IsSpreadsheet() {
		return strings.TrimSuffix(f.Name, filepath.Ext(f.Name)) + ".xlsx", d.source.ExportWorkbook
	}
	if workbookExts[strings.ToLower(filepath.Ext(f.Name))] {
		return f.Name, d.source.DownloadFile
	}
	return "", nil
}

func writeFile(path string, fill func(io.Writer) error) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create local file %s: %w", path, err)
	}
	if err := fill(out); err != nil {
		out.Close()
		_ = os.Remove(path)
		return err
	}
	return out.Close()
}
