package postgres

import (
	"context"
	stdLog "log"
	"os"
	"time"

	errors "github.com/Laisky/errors/v2"
	gormPG "gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

// DialInfo postgres dial info
type DialInfo struct {
	Addr,
	DBName,
	User,
	Pwd string
}

// BuildDSN builds a PostgreSQL DSN for shared database clients.
func BuildDSN(dialInfo DialInfo) string {
	return "host=" + dialInfo.Addr + " user=" + dialInfo.User + " password=" + dialInfo.Pwd + " dbname=" + dialInfo.DBName + " port=5432 sslmode=disable TimeZone=UTC"
}

// NewGormDB opens a gorm handle over pgx for the vector store. SQL
// parameter logging is truncated so embedding payloads stay out of
// the logs.
func NewGormDB(ctx context.Context, dsn string) (*gorm.DB, error) {
	base := gormLogger.New(stdLog.New(os.Stdout, "\r\n", stdLog.LstdFlags), gormLogger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  gormLogger.Warn,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})

	db, err := gorm.Open(gormPG.Open(dsn), &gorm.Config{
		Logger: newTruncatingParamsLogger(base),
	})
	if err != nil {
		return nil, errors.Wrap(err, "open postgres via gorm")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if err = sqlDB.PingContext(ctx); err != nil {
		return nil, errors.Wrap(err, "ping postgres")
	}

	sqlDB.SetMaxIdleConns(6)
	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return db, nil
}
