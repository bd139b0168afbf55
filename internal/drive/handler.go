package drive

import (
	"context"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/jeanpool1937/Sistema-Integrado-de-PCP/backend-go/internal/pipeline"
)

// Folder is a browsable Drive source.
type Folder interface {
	Source
	FindFolderByPath(ctx context.Context, path string) (string, error)
}

// Runner ingests a set of local files as one run.
type Runner interface {
	Run(ctx context.Context, files []string) (*pipeline.Run, error)
}

type Handler struct {
	folder        Folder
	downloader    *Downloader
	runner        Runner
	tempDir       string
	defaultFolder string
}

func NewHandler(folder Folder, runner Runner, tempDir, defaultFolder string) *Handler {
	return &Handler{
		folder:        folder,
		downloader:    NewDownloader(folder),
		runner:        runner,
		tempDir:       tempDir,
		defaultFolder: defaultFolder,
	}
}

func (h *Handler) RegisterRoutes(group *gin.RouterGroup) {
	group.GET("/drive/files", h.ListFiles)
	group.POST("/drive/ingest", h.IngestFolder)
}

func (h *Handler) resolveFolder(c *gin.Context) (string, error) {
	if path := strings.TrimSpace(c.Query("path")); path != "" {
		return h.folder.FindFolderByPath(c.Request.Context(), path)
	}
	if id := strings.TrimSpace(c.Query("folderId")); id != "" {
		return id, nil
	}
	return h.defaultFolder, nil
}

func (h *Handler) ListFiles(c *gin.Context) {
	folderID, err := h.resolveFolder(c)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "folder not found", "details": err.Error()})
		return
	}

	files, err := h.folder.ListFiles(c.Request.Context(), folderID)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to list drive files", "details": err.Error()})
		return
	}
	if files == nil {
		files = []*File{}
	}
	c.JSON(http.StatusOK, files)
}

// IngestFolder downloads the workbooks of a folder and ingests them, masters
// first.
func (h *Handler) IngestFolder(c *gin.Context) {
	folderID, err := h.resolveFolder(c)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "folder not found", "details": err.Error()})
		return
	}

	if h.tempDir != "" {
		if err := os.MkdirAll(h.tempDir, 0o755); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to prepare download dir", "details": err.Error()})
			return
		}
	}
	dir, err := os.MkdirTemp(h.tempDir, "drive-*")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to prepare download dir", "details": err.Error()})
		return
	}
	defer os.RemoveAll(dir)

	paths, err := h.downloader.DownloadFolder(c.Request.Context(), DownloadOptions{FolderID: folderID, DownloadDir: dir})
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to download drive files", "details": err.Error()})
		return
	}
	if len(paths) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no workbooks found in folder"})
		return
	}

	run, err := h.runner.Run(c.Request.Context(), paths)
	if err != nil {
		log.Error().Err(err).Str("folder", folderID).Msg("Drive ingestion failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "ingestion failed", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, run)
}
