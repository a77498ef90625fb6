// Package testing provides test utilities and database setup for testing sequence allocation
package testing

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/amirphl/demo-sequences/models"
	"github.com/google/uuid"
	_ "github.com/lib/pq" // PostgreSQL driver for database/sql
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Dialects a TestDB can run on
const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

// ErrPostgresUnavailable is returned when TEST_DB_HOST is unset
var ErrPostgresUnavailable = errors.New("postgres test server not configured (set TEST_DB_HOST)")

// ErrRedisUnavailable is returned when TEST_REDIS_URL is unset
var ErrRedisUnavailable = errors.New("redis test server not configured (set TEST_REDIS_URL)")

// TestDBConfig holds configuration for test database connections
type TestDBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	SSLMode  string
}

// GetTestDBConfig loads test database configuration from environment variables
func GetTestDBConfig() *TestDBConfig {
	config := &TestDBConfig{
		Host:     getEnv("TEST_DB_HOST", ""),
		Port:     getEnvAsInt("TEST_DB_PORT", 5432),
		User:     getEnv("TEST_DB_USER", "postgres"),
		Password: getEnv("TEST_DB_PASSWORD", "postgres"),
		SSLMode:  getEnv("TEST_DB_SSL_MODE", "disable"),
	}
	return config
}

func (c *TestDBConfig) dsn(dbName string) string {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s sslmode=%s connect_timeout=5",
		c.Host, c.Port, c.User, c.Password, c.SSLMode)
	if dbName != "" {
		dsn += " dbname=" + dbName
	}
	return dsn
}

// TestDB represents a test database instance
type TestDB struct {
	DB      *gorm.DB
	Name    string
	Dialect string
	config  *TestDBConfig
}

// TestModels lists the tables every test database is migrated with
func TestModels() []any {
	return []any{
		&models.SequenceCounter{},
		&Widget{},
		&DummyUser{},
	}
}

func openPostgres(dsn string) (*gorm.DB, error) {
	return gorm.Open(postgres.New(postgres.Config{DriverName: "postgres", DSN: dsn}), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
}

// SetupTestDB creates a new PostgreSQL test database with a unique name and migrates it
func SetupTestDB() (*TestDB, error) {
	config := GetTestDBConfig()
	if config.Host == "" {
		return nil, ErrPostgresUnavailable
	}

	dbName := "demo_seq_test_" + strings.ReplaceAll(uuid.NewString(), "-", "")

	adminDB, err := openPostgres(config.dsn(""))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	err = adminDB.Exec(fmt.Sprintf("CREATE DATABASE %s", dbName)).Error

	sqlDB, _ := adminDB.DB()
	sqlDB.Close()

	if err != nil {
		return nil, fmt.Errorf("failed to create test database %s: %w", dbName, err)
	}

	testDB, err := openPostgres(config.dsn(dbName))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to test database %s: %w", dbName, err)
	}

	tdb := &TestDB{
		DB:      testDB,
		Name:    dbName,
		Dialect: DialectPostgres,
		config:  config,
	}
	if err := testDB.AutoMigrate(TestModels()...); err != nil {
		_ = tdb.TeardownTestDB()
		return nil, fmt.Errorf("failed to run migrations on test database %s: %w", dbName, err)
	}

	return tdb, nil
}

// SetupSQLiteDB creates a private in-memory SQLite database and migrates it. It needs
// no external server, so storage-backed tests always run against it.
func SetupSQLiteDB() (*TestDB, error) {
	name := uuid.NewString()
	db, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	// a single connection keeps the in-memory database alive and serializes writers
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(TestModels()...); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to migrate sqlite database: %w", err)
	}

	return &TestDB{DB: db, Name: name, Dialect: DialectSQLite}, nil
}

// TeardownTestDB drops the test database and closes connections
func (tdb *TestDB) TeardownTestDB() error {
	if tdb.DB == nil {
		return nil
	}

	sqlDB, err := tdb.DB.DB()
	if err == nil {
		sqlDB.Close()
	}

	if tdb.Dialect != DialectPostgres {
		return nil
	}

	adminDB, err := openPostgres(tdb.config.dsn(""))
	if err != nil {
		log.Printf("Warning: failed to connect to PostgreSQL for cleanup: %v", err)
		return err
	}
	defer func() {
		sqlDB, _ := adminDB.DB()
		sqlDB.Close()
	}()

	// Force disconnect all connections to the test database
	err = adminDB.Exec(
		"SELECT pg_terminate_backend(pid) FROM pg_stat_activity WHERE datname = ? AND pid <> pg_backend_pid()",
		tdb.Name).Error
	if err != nil {
		log.Printf("Warning: failed to terminate connections to test database %s: %v", tdb.Name, err)
	}

	err = adminDB.Exec(fmt.Sprintf("DROP DATABASE IF EXISTS %s", tdb.Name)).Error
	if err != nil {
		log.Printf("Warning: failed to drop test database %s: %v", tdb.Name, err)
		return err
	}

	return nil
}

// ClearAllTables removes all data from tables while preserving structure
func (tdb *TestDB) ClearAllTables() error {
	for _, model := range TestModels() {
		if err := tdb.DB.Session(&gorm.Session{AllowGlobalUpdate: true}).Unscoped().Delete(model).Error; err != nil {
			return fmt.Errorf("failed to clear table for %T: %w", model, err)
		}
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// TestWithDB sets up a PostgreSQL test database, runs the test function, and cleans up.
// It returns ErrPostgresUnavailable when no server is configured.
func TestWithDB(testFunc func(*TestDB) error) error {
	testDB, err := SetupTestDB()
	if err != nil {
		if errors.Is(err, ErrPostgresUnavailable) {
			return err
		}
		return fmt.Errorf("failed to setup test database: %w", err)
	}
	defer func() {
		if cleanupErr := testDB.TeardownTestDB(); cleanupErr != nil {
			log.Printf("Warning: failed to cleanup test database: %v", cleanupErr)
		}
	}()

	return testFunc(testDB)
}

// TestWithSQLite is TestWithDB on a private in-memory SQLite database
func TestWithSQLite(testFunc func(*TestDB) error) error {
	testDB, err := SetupSQLiteDB()
	if err != nil {
		return fmt.Errorf("failed to setup test database: %w", err)
	}
	defer testDB.TeardownTestDB()

	return testFunc(testDB)
}

// NewTestRedisClient connects to TEST_REDIS_URL and verifies the server answers
func NewTestRedisClient() (redis.UniversalClient, error) {
	url := getEnv("TEST_REDIS_URL", "")
	if url == "" {
		return nil, ErrRedisUnavailable
	}

	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

// CreateTestContext creates a context for testing
func CreateTestContext() context.Context {
	return context.Background()
}
