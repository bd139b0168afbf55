package drive

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
)

type fakeSource struct {
	files    []*File
	exported []string
	failID   string
}

func (f *fakeSource) ListFiles(_ context.Context, _ string) ([]*File, error) {
	return f.files, nil
}

func (f *fakeSource) DownloadFile(_ context.Context, id string, w io.Writer) error {
	if id == f.failID {
		return errors.New("boom")
	}
	_, err := io.WriteString(w, "raw:"+id)
	return err
}

func (f *fakeSource) ExportWorkbook(_ context.Context, id string, w io.Writer) error {
	f.exported = append(f.exported, id)
	_, err := io.WriteString(w, "xlsx:"+id)
	return err
}

func TestDownloadFolder(t *testing.T) {
	src := &fakeSource{files: []*File{
		{ID: "1", Name: "Maestro.xlsx"},
		{ID: "2", Name: "MB52.XLS"},
		{ID: "3", Name: "notas.pdf"},
		{ID: "4", Name: "Plan produccion", MimeType: spreadsheetMimeType},
		{ID: "5", Name: "ventas.csv"},
	}}
	dir := t.TempDir()

	paths, err := NewDownloader(src).DownloadFolder(context.Background(), DownloadOptions{DownloadDir: dir})
	if err != nil {
		t.Fatalf("DownloadFolder: %v", err)
	}

	var names []string
	for _, p := range paths {
		names = append(names, filepath.Base(p))
	}
	sort.Strings(names)
	want := []string{"MB52.XLS", "Maestro.xlsx", "Plan produccion.xlsx", "ventas.csv"}
	if strings.Join(names, "|") != strings.Join(want, "|") {
		t.Fatalf("downloaded %v, want %v", names, want)
	}
	if len(src.exported) != 1 || src.exported[0] != "4" {
		t.Fatalf("exported = %v, want the spreadsheet only", src.exported)
	}

	data, err := os.ReadFile(filepath.Join(dir, "Plan produccion.xlsx"))
	if err != nil || string(data) != "xlsx:4" {
		t.Fatalf("exported content = %q, %v", data, err)
	}
}

func TestDownloadFolderFailure(t *testing.T) {
	src := &fakeSource{files: []*File{{ID: "1", Name: "a.xlsx"}}, failID: "1"}
	dir := t.TempDir()

	if _, err := NewDownloader(src).DownloadFolder(context.Background(), DownloadOptions{DownloadDir: dir}); err == nil {
		t.Fatal("expected download error")
	}
	if _, err := os.Stat(filepath.Join(dir, "a.xlsx")); !os.IsNotExist(err) {
		t.Fatalf("partial file should be removed, stat err = %v", err)
	}

	if _, err := NewDownloader(src).DownloadFolder(context.Background(), DownloadOptions{}); err == nil {
		t.Fatal("expected missing dir error")
	}
}

func TestEscapeQuery(t *testing.T) {
	if got := escapeQuery(`Plan's`); got != `Plan\'s` {
		t.Fatalf("escapeQuery = %q", got)
	}
}
