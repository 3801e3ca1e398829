package database

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	embeddedpostgres "github.com/fergusstrange/embedded-postgres"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/xelth-com/ecklinen/internal/config"
)

const (
	embeddedDataPath = "./db_data"
	embeddedPort     = 5433
)

// DB wraps gorm.DB and includes a reference to an embedded process if active
type DB struct {
	*gorm.DB
	embedded *embeddedpostgres.EmbeddedPostgres
}

// cleanupStaleEmbeddedPostgres cleans up leftover processes from a previous crash
func cleanupStaleEmbeddedPostgres(log *zap.SugaredLogger) {
	pidFile := filepath.Join(embeddedDataPath, "postmaster.pid")

	data, err := os.ReadFile(pidFile)
	if err != nil {
		// No pid file = clean state
		return
	}

	// PID is the first line of postmaster.pid
	scanner := bufio.NewScanner(strings.NewReader(string(data)))
	if !scanner.Scan() {
		return
	}
	pid, err := strconv.Atoi(strings.TrimSpace(scanner.Text()))
	if err != nil {
		log.Warnw("could not parse postmaster.pid", "error", err)
		return
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		log.Infow("removing stale postmaster.pid", "pid", pid)
		os.Remove(pidFile)
		return
	}

	// On Unix, FindProcess always succeeds, so signal 0 checks liveness
	if err := process.Signal(syscall.Signal(0)); err != nil {
		log.Infow("removing stale postmaster.pid", "pid", pid)
		os.Remove(pidFile)
		return
	}

	log.Warnw("stopping orphaned embedded postgres", "pid", pid)
	if err := process.Signal(syscall.SIGTERM); err != nil {
		log.Warnw("could not send SIGTERM", "pid", pid, "error", err)
	}

	for i := 0; i < 10; i++ {
		time.Sleep(500 * time.Millisecond)
		if err := process.Signal(syscall.Signal(0)); err != nil {
			os.Remove(pidFile)
			return
		}
	}

	log.Warnw("orphaned embedded postgres did not stop, killing", "pid", pid)
	process.Kill()
	time.Sleep(500 * time.Millisecond)
	os.Remove(pidFile)
}

// isPortInUse checks if a port is already in use
func isPortInUse(port int) bool {
	conn, err := net.DialTimeout("tcp", fmt.Sprintf("127.0.0.1:%d", port), time.Second)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

func gormLogLevel(level string) logger.LogLevel {
	switch level {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}

func gormConfig(level string) *gorm.Config {
	return &gorm.Config{
		Logger:         logger.Default.LogMode(gormLogLevel(level)),
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Connect opens the configured database. For postgres on localhost with no
// password an embedded PostgreSQL process is started (zero-config mode).
func Connect(cfg config.DatabaseConfig, log *zap.SugaredLogger) (*DB, error) {
	if cfg.Driver == "sqlite" {
		log.Infow("using sqlite database", "path", cfg.SQLitePath)
		return OpenSQLite(cfg.SQLitePath, cfg.LogLevel)
	}

	var embedded *embeddedpostgres.EmbeddedPostgres
	password := cfg.Password

	if cfg.Host == "localhost" && cfg.Password == "" {
		log.Infow("starting embedded postgres", "dataPath", embeddedDataPath, "port", embeddedPort)
		cleanupStaleEmbeddedPostgres(log)

		if isPortInUse(embeddedPort) {
			for i := 0; i < 6 && isPortInUse(embeddedPort); i++ {
				time.Sleep(500 * time.Millisecond)
			}
			if isPortInUse(embeddedPort) {
				return nil, fmt.Errorf("port %d is still in use by another process", embeddedPort)
			}
		}

		embeddedCfg := embeddedpostgres.DefaultConfig().
			DataPath(embeddedDataPath).
			Port(uint32(embeddedPort)).
			Database(cfg.Database).
			Username(cfg.Username).
			Password("postgres")

		embedded = embeddedpostgres.NewDatabase(embeddedCfg)
		if err := embedded.Start(); err != nil {
			return nil, fmt.Errorf("failed to start embedded database: %w", err)
		}

		cfg.Port = strconv.Itoa(embeddedPort)
		password = "postgres"
	} else {
		log.Infow("connecting to postgres", "host", cfg.Host, "port", cfg.Port, "database", cfg.Database)
	}

	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		cfg.Host,
		cfg.Port,
		cfg.Username,
		password,
		cfg.Database,
	)

	db, err := gorm.Open(postgres.Open(dsn), gormConfig(cfg.LogLevel))
	if err != nil {
		if embedded != nil {
			_ = embedded.Stop()
		}
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err == nil {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	return &DB{
		DB:       db,
		embedded: embedded,
	}, nil
}

// OpenSQLite opens a sqlite database. A single connection is used so that
// in-memory databases are shared by every caller.
func OpenSQLite(path string, logLevel string) (*DB, error) {
	db, err := gorm.Open(sqlite.Open(path), gormConfig(logLevel))
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	return &DB{DB: db}, nil
}

// Close ensures the database connection and embedded process are shut down
func (db *DB) Close() error {
	sqlDB, err := db.DB.DB()
	if err == nil {
		err = sqlDB.Close()
	}
	if db.embedded != nil {
		_ = db.embedded.Stop()
	}
	return err
}
