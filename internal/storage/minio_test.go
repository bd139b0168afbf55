package storage

import (
	"testing"
	"time"

	"github.com/jeanpool1937/Sistema-Integrado-de-PCP/backend-go/internal/config"
)

func TestNewMinioClientValidation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.StorageConfig
		wantErr bool
	}{
		{"missing endpoint", config.StorageConfig{AccessKey: "a", SecretKey: "s", Bucket: "b"}, true},
		{"missing credentials", config.StorageConfig{Endpoint: "localhost:9000", Bucket: "b"}, true},
		{"missing bucket", config.StorageConfig{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "s"}, true},
		{"scheme in endpoint", config.StorageConfig{Endpoint: "http://localhost:9000", AccessKey: "a", SecretKey: "s", Bucket: "b"}, false},
		{"bare endpoint", config.StorageConfig{Endpoint: "s3.example.com", AccessKey: "a", SecretKey: "s", Bucket: "b", UseSSL: true}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewMinioClient(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestContentType(t *testing.T) {
	if got := contentType("archive/2024/maestro.XLSX"); got != xlsxContentType {
		t.Fatalf("contentType = %q", got)
	}
	if got := contentType("report.json"); got != "application/json" {
		t.Fatalf("contentType = %q", got)
	}
}

func TestArchiveKey(t *testing.T) {
	now := time.Date(2024, 3, 9, 15, 0, 0, 0, time.UTC)
	tests := []struct {
		name, filename, want string
	}{
		{"plain", "maestro.xlsx", "archive/2024/03/09/ab12cd34_maestro.xlsx"},
		{"unix path", "/tmp/up/stock.xlsx", "archive/2024/03/09/ab12cd34_stock.xlsx"},
		{"windows path", `C:\Users\pcp\demanda.xlsx`, "archive/2024/03/09/ab12cd34_demanda.xlsx"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ArchiveKey(now, "ab12cd34", tt.filename); got != tt.want {
				t.Fatalf("ArchiveKey = %q, want %q", got, tt.want)
			}
		})
	}
}
