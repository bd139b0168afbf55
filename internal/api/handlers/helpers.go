package handlers

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/jeanpool1937/Sistema-Integrado-de-PCP/backend-go/internal/dedup"
	"github.com/jeanpool1937/Sistema-Integrado-de-PCP/backend-go/internal/domain"
	"github.com/jeanpool1937/Sistema-Integrado-de-PCP/backend-go/internal/ingest"
	"github.com/jeanpool1937/Sistema-Integrado-de-PCP/backend-go/internal/projection"
	"github.com/jeanpool1937/Sistema-Integrado-de-PCP/backend-go/internal/service"
)

func errorResponse(c *gin.Context, statusCode int, message string, err error) {
	body := gin.H{"error": message}
	if err != nil {
		body["details"] = err.Error()
		if statusCode >= http.StatusInternalServerError {
			log.Error().Err(err).Str("path", c.Request.URL.Path).Msg(message)
		}
	}
	c.JSON(statusCode, body)
}

// statusFor maps domain failures to HTTP statuses. Anything the client can
// fix by sending another file is a 400.
func statusFor(err error) int {
	var structural *ingest.StructuralError
	switch {
	case errors.As(err, &structural),
		errors.Is(err, service.ErrMasterRequired),
		errors.Is(err, service.ErrNotSyncable),
		errors.Is(err, ingest.ErrUnknownRecordType),
		errors.Is(err, ingest.ErrEmptySheet),
		errors.Is(err, ingest.ErrSheetNotFound),
		errors.Is(err, ingest.ErrUnsupportedFormat),
		errors.Is(err, projection.ErrInvalidHorizon):
		return http.StatusBadRequest
	case errors.Is(err, dedup.ErrRemoteFetch), errors.Is(err, dedup.ErrRemoteUpload):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// recordTypeParam reads the :type path parameter. "auto" asks for detection.
func recordTypeParam(c *gin.Context) (domain.RecordType, error) {
	raw := strings.TrimSpace(c.Param("type"))
	if raw == "" || strings.EqualFold(raw, "auto") {
		return domain.RecordUnknown, nil
	}
	return domain.ParseRecordType(raw)
}

// saveUpload stores the multipart file field under a fresh directory of
// tempDir. The caller removes the returned directory.
func saveUpload(c *gin.Context, tempDir, field string) (path, filename, dir string, err error) {
	file, err := c.FormFile(field)
	if err != nil {
		return "", "", "", err
	}
	dir, err = tempWorkDir(tempDir, "upload-*")
	if err != nil {
		return "", "", "", err
	}
	filename = filepath.Base(file.Filename)
	path = filepath.Join(dir, filename)
	if err := c.SaveUploadedFile(file, path); err != nil {
		os.RemoveAll(dir)
		return "", "", "", err
	}
	return path, filename, dir, nil
}

func parsePositiveIntWithDefault(value string, fallback int) int {
	if v, err := strconv.Atoi(strings.TrimSpace(value)); err == nil && v > 0 {
		return v
	}
	return fallback
}

func parseNonNegativeInt(value string) int {
	if v, err := strconv.Atoi(strings.TrimSpace(value)); err == nil && v >= 0 {
		return v
	}
	return 0
}

func parseDateParam(c *gin.Context, name string) (*time.Time, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(domain.DateLayout, raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func pageParams(c *gin.Context) domain.Page {
	return domain.Page{
		Offset: parseNonNegativeInt(c.Query("skip")),
		Limit:  parsePositiveIntWithDefault(c.Query("limit"), 100),
	}
}

// tempWorkDir creates a private directory for one request's files.
func tempWorkDir(base, pattern string) (string, error) {
	if base != "" {
		if err := os.MkdirAll(base, 0o755); err != nil {
			return "", err
		}
	}
	return os.MkdirTemp(base, pattern)
}
