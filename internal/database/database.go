package database

import (
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"home-services-leads/internal/config"
	"home-services-leads/internal/models"
)

// GormDB wraps the gorm connection and knows which engine backs it,
// because territory exclusivity is enforced differently per engine.
type GormDB struct {
	db     *gorm.DB
	driver string
}

// Connect opens a connection for the configured engine
func Connect(cfg config.DatabaseConfig) (*GormDB, error) {
	gormCfg := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}

	var (
		db  *gorm.DB
		err error
	)
	switch cfg.Type {
	case "mysql":
		m := cfg.MySQL
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
			m.User, m.Password, m.Host, m.Port, m.Database)
		db, err = gorm.Open(mysql.Open(dsn), gormCfg)
	case "postgres":
		p := cfg.Postgres
		dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode)
		db, err = gorm.Open(postgres.Open(dsn), gormCfg)
	case "sqlite":
		db, err = gorm.Open(sqlite.Open(cfg.SQLite.Path), gormCfg)
	default:
		return nil, fmt.Errorf("unsupported database type %q", cfg.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", cfg.Type, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, err
	}

	return &GormDB{db: db, driver: cfg.Type}, nil
}

// NewGormDBFromDB wraps an existing gorm.DB instance (used by tests)
func NewGormDBFromDB(db *gorm.DB, driver string) *GormDB {
	return &GormDB{db: db, driver: driver}
}

// DB returns the underlying gorm.DB instance
func (gdb *GormDB) DB() *gorm.DB {
	return gdb.db
}

// Driver returns the configured engine name
func (gdb *GormDB) Driver() string {
	return gdb.driver
}

func (gdb *GormDB) Close() error {
	sqlDB, err := gdb.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// InitSchema creates tables with AutoMigrate, then the indexes gorm tags
// cannot express
func (gdb *GormDB) InitSchema() error {
	if err := gdb.db.AutoMigrate(
		&models.Property{},
		&models.Signal{},
		&models.LeadScore{},
		&models.Lead{},
		&models.Contractor{},
		&models.Territory{},
		&models.ZipStats{},
		&models.ScoreRefreshQueue{},
	); err != nil {
		return err
	}
	return gdb.initPartialIndexes()
}

// initPartialIndexes backs the one-active-holder-per-(zip, trade) and
// one-open-lead-per-(property, trade) invariants at the storage level.
// Postgres and sqlite support partial unique indexes; mysql relies on
// the in-transaction pre-checks in the ledger and the lead generator.
func (gdb *GormDB) initPartialIndexes() error {
	switch gdb.driver {
	case "postgres", "sqlite":
		if err := gdb.db.Exec(
			`CREATE UNIQUE INDEX IF NOT EXISTS idx_territory_active
			 ON territories (zip_code, trade) WHERE status = 'active'`,
		).Error; err != nil {
			return err
		}
		return gdb.db.Exec(
			`CREATE UNIQUE INDEX IF NOT EXISTS idx_lead_open
			 ON leads (property_id, trade)
			 WHERE status IN ('generated', 'assigned', 'delivered')`,
		).Error
	default:
		return nil
	}
}

// SupportsPartialIndex reports whether the engine enforces territory
// exclusivity with the partial unique index
func (gdb *GormDB) SupportsPartialIndex() bool {
	return gdb.driver == "postgres" || gdb.driver == "sqlite"
}
