package media

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	// pure-Go driver, registered as "sqlite"
	_ "modernc.org/sqlite"
)

// OpenOptions configures the sqlite connection.
type OpenOptions struct {
	DSN          string
	MaxOpenConns int
	LogLevel     string // silent, error, warn, info
}

// Open connects to sqlite through gorm and migrates the corpus schema.
// gorm logs go through zap.
func Open(opts OpenOptions, logger *zap.Logger) (*gorm.DB, error) {
	gdb, err := gorm.Open(
		sqlite.New(sqlite.Config{DriverName: "sqlite", DSN: opts.DSN}),
		&gorm.Config{Logger: newGormLogger(logger, opts.LogLevel)},
	)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", opts.DSN, err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}
	if opts.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	}
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := gdb.AutoMigrate(&mediaItemModel{}, &tagModel{}, &embeddingModel{}); err != nil {
		return nil, fmt.Errorf("migrate corpus schema: %w", err)
	}
	if err := foldLegacyKeys(gdb); err != nil {
		return nil, fmt.Errorf("fold title keys: %w", err)
	}
	return gdb, nil
}

// foldLegacyKeys fills title_key/description_key of rows written before the columns existed.
func foldLegacyKeys(gdb *gorm.DB) error {
	var rows []mediaItemModel
	if err := gdb.Select("id", "title", "description").
		Where("title_key = ''").Find(&rows).Error; err != nil {
		return err
	}
	for i := range rows {
		err := gdb.Model(&mediaItemModel{}).Where("id = ?", rows[i].ID).UpdateColumns(map[string]any{
			"title_key":       foldKey(rows[i].Title),
			"description_key": foldKey(rows[i].Description),
		}).Error
		if err != nil {
			return err
		}
	}
	return nil
}

// Close releases the underlying connection pool.
func Close(gdb *gorm.DB) error {
	sqlDB, err := gdb.DB()
	if err != nil {
		return fmt.Errorf("get sql.DB: %w", err)
	}
	return sqlDB.Close()
}

func newGormLogger(logger *zap.Logger, level string) gormlogger.Interface {
	return gormlogger.New(
		zap.NewStdLog(logger.Named("gorm")),
		gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  parseGormLevel(level),
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
}

func parseGormLevel(level string) gormlogger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "info":
		return gormlogger.Info
	default:
		return gormlogger.Warn
	}
}
