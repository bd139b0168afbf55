package config

import (
	"log"
	"os"
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	App        AppConfig
	Cache      CacheConfig
	Ingest     IngestConfig
	Projection ProjectionConfig
	Remote     RemoteConfig
	Storage    StorageConfig
	Drive      DriveConfig
}

type ServerConfig struct {
	Port           string
	Mode           string
	LogLevel       string
	LogFormat      string
	ReadTimeout    int
	WriteTimeout   int
	AllowedOrigins []string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // seconds
	ConnectRetries  int
	// WriteSlots bounds concurrent write transactions.
	WriteSlots int64
}

type AppConfig struct {
	UploadDir string
	DataDir   string
	TempDir   string
}

type CacheConfig struct {
	Enabled              bool
	RedisURL             string
	RedisHost            string
	RedisPort            string
	RedisPassword        string
	RedisDB              int
	AlertsTTLSeconds     int
	ProjectionTTLSeconds int
}

// IngestConfig drives the spreadsheet parsing pipeline.
type IngestConfig struct {
	HeaderScanRows int
	PreviewRows    int
	CopyBeforeRead bool
	CentroSheet    string
	ProcesoSheet   string
}

// ProjectionConfig holds the planning constants used by the projection engine.
type ProjectionConfig struct {
	HorizonDays     int
	MassDivisor     float64
	DelayDays       int
	DefaultLeadTime float64
	UsageWindowDays int
}

// RemoteConfig points at the hosted database that receives incremental syncs.
type RemoteConfig struct {
	DSN             string
	PageSize        int
	BatchSize       int
	MovementTable   string
	ProductionTable string
}

type StorageConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
	Prefix    string
}

type DriveConfig struct {
	CredentialsJSON string
	FolderID        string
}

var (
	once     sync.Once
	instance *Config
)

func Load() *Config {
	once.Do(func() {
		// Load .env file if it exists
		_ = godotenv.Load()

		setDefaults()

		// Read from environment variables
		viper.AutomaticEnv()

		ensureDir(viper.GetString("APP_UPLOAD_DIR"))
		ensureDir(viper.GetString("APP_DATA_DIR"))

		instance = fromViper()
	})

	return instance
}

func setDefaults() {
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_MODE", "debug")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_FORMAT", "console")
	viper.SetDefault("SERVER_READ_TIMEOUT", 60)
	viper.SetDefault("SERVER_WRITE_TIMEOUT", 120)
	viper.SetDefault("SERVER_ALLOWED_ORIGINS", []string{"*"})

	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_USER", "postgres")
	viper.SetDefault("DB_PASSWORD", "postgres")
	viper.SetDefault("DB_NAME", "pcp")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("DB_MAX_OPEN_CONNS", 25)
	viper.SetDefault("DB_MAX_IDLE_CONNS", 5)
	viper.SetDefault("DB_CONN_MAX_LIFETIME", 300)
	viper.SetDefault("DB_CONNECT_RETRIES", 3)
	viper.SetDefault("DB_WRITE_SLOTS", 4)

	viper.SetDefault("APP_UPLOAD_DIR", "./data/uploads")
	viper.SetDefault("APP_DATA_DIR", "./data/output")
	viper.SetDefault("APP_TEMP_DIR", os.TempDir())

	viper.SetDefault("CACHE_ENABLED", false)
	viper.SetDefault("REDIS_URL", "")
	viper.SetDefault("REDIS_HOST", "127.0.0.1")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("CACHE_ALERTS_TTL_SECONDS", 300)
	viper.SetDefault("CACHE_PROJECTION_TTL_SECONDS", 120)

	viper.SetDefault("INGEST_HEADER_SCAN_ROWS", 30)
	viper.SetDefault("INGEST_PREVIEW_ROWS", 20)
	viper.SetDefault("INGEST_COPY_BEFORE_READ", true)
	viper.SetDefault("INGEST_CENTRO_SHEET", "Centro")
	viper.SetDefault("INGEST_PROCESO_SHEET", "Procesos")

	viper.SetDefault("PROJECTION_HORIZON_DAYS", 30)
	viper.SetDefault("PROJECTION_MASS_DIVISOR", 1000.0)
	viper.SetDefault("PROJECTION_DELAY_DAYS", 3)
	viper.SetDefault("PROJECTION_DEFAULT_LEAD_TIME", 25.0)
	viper.SetDefault("PROJECTION_USAGE_WINDOW_DAYS", 90)

	viper.SetDefault("REMOTE_DSN", "")
	viper.SetDefault("REMOTE_PAGE_SIZE", 1000)
	viper.SetDefault("REMOTE_BATCH_SIZE", 1000)
	viper.SetDefault("REMOTE_MOVEMENT_TABLE", "sap_consumo_movimientos")
	viper.SetDefault("REMOTE_PRODUCTION_TABLE", "sap_produccion")

	viper.SetDefault("STORAGE_ENDPOINT", "")
	viper.SetDefault("STORAGE_REGION", "us-east-1")
	viper.SetDefault("STORAGE_USE_SSL", true)
	viper.SetDefault("STORAGE_PREFIX", "incoming/")

	viper.SetDefault("GOOGLE_DRIVE_CREDENTIALS_JSON", "")
	viper.SetDefault("GOOGLE_DRIVE_FOLDER_ID", "")
}

func fromViper() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           viper.GetString("SERVER_PORT"),
			Mode:           viper.GetString("SERVER_MODE"),
			LogLevel:       viper.GetString("LOG_LEVEL"),
			LogFormat:      viper.GetString("LOG_FORMAT"),
			ReadTimeout:    viper.GetInt("SERVER_READ_TIMEOUT"),
			WriteTimeout:   viper.GetInt("SERVER_WRITE_TIMEOUT"),
			AllowedOrigins: viper.GetStringSlice("SERVER_ALLOWED_ORIGINS"),
		},
		Database: DatabaseConfig{
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASSWORD"),
			DBName:   viper.GetString("DB_NAME"),
			SSLMode:  viper.GetString("DB_SSLMODE"),

			MaxOpenConns:    viper.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    viper.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: viper.GetInt("DB_CONN_MAX_LIFETIME"),
			ConnectRetries:  viper.GetInt("DB_CONNECT_RETRIES"),
			WriteSlots:      viper.GetInt64("DB_WRITE_SLOTS"),
		},
		App: AppConfig{
			UploadDir: viper.GetString("APP_UPLOAD_DIR"),
			DataDir:   viper.GetString("APP_DATA_DIR"),
			TempDir:   viper.GetString("APP_TEMP_DIR"),
		},
		Cache: CacheConfig{
			Enabled:              viper.GetBool("CACHE_ENABLED"),
			RedisURL:             viper.GetString("REDIS_URL"),
			RedisHost:            viper.GetString("REDIS_HOST"),
			RedisPort:            viper.GetString("REDIS_PORT"),
			RedisPassword:        viper.GetString("REDIS_PASSWORD"),
			RedisDB:              viper.GetInt("REDIS_DB"),
			AlertsTTLSeconds:     viper.GetInt("CACHE_ALERTS_TTL_SECONDS"),
			ProjectionTTLSeconds: viper.GetInt("CACHE_PROJECTION_TTL_SECONDS"),
		},
		Ingest: IngestConfig{
			HeaderScanRows: viper.GetInt("INGEST_HEADER_SCAN_ROWS"),
			PreviewRows:    viper.GetInt("INGEST_PREVIEW_ROWS"),
			CopyBeforeRead: viper.GetBool("INGEST_COPY_BEFORE_READ"),
			CentroSheet:    viper.GetString("INGEST_CENTRO_SHEET"),
			ProcesoSheet:   viper.GetString("INGEST_PROCESO_SHEET"),
		},
		Projection: ProjectionConfig{
			HorizonDays:     viper.GetInt("PROJECTION_HORIZON_DAYS"),
			MassDivisor:     viper.GetFloat64("PROJECTION_MASS_DIVISOR"),
			DelayDays:       viper.GetInt("PROJECTION_DELAY_DAYS"),
			DefaultLeadTime: viper.GetFloat64("PROJECTION_DEFAULT_LEAD_TIME"),
			UsageWindowDays: viper.GetInt("PROJECTION_USAGE_WINDOW_DAYS"),
		},
		Remote: RemoteConfig{
			DSN:             viper.GetString("REMOTE_DSN"),
			PageSize:        viper.GetInt("REMOTE_PAGE_SIZE"),
			BatchSize:       viper.GetInt("REMOTE_BATCH_SIZE"),
			MovementTable:   viper.GetString("REMOTE_MOVEMENT_TABLE"),
			ProductionTable: viper.GetString("REMOTE_PRODUCTION_TABLE"),
		},
		Storage: StorageConfig{
			Endpoint:  viper.GetString("STORAGE_ENDPOINT"),
			AccessKey: viper.GetString("STORAGE_ACCESS_KEY"),
			SecretKey: viper.GetString("STORAGE_SECRET_KEY"),
			Bucket:    viper.GetString("STORAGE_BUCKET"),
			Region:    viper.GetString("STORAGE_REGION"),
			UseSSL:    viper.GetBool("STORAGE_USE_SSL"),
			Prefix:    viper.GetString("STORAGE_PREFIX"),
		},
		Drive: DriveConfig{
			CredentialsJSON: viper.GetString("GOOGLE_DRIVE_CREDENTIALS_JSON"),
			FolderID:        viper.GetString("GOOGLE_DRIVE_FOLDER_ID"),
		},
	}
}

func ensureDir(dir string) {
	if dir == "" {
		return
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatalf("Failed to create directory %s: %v", dir, err)
		}
	}
}
