package database

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"
)

// Options 数据库实例配置选项
type Options struct {
	Name         string
	Dialector    gorm.Dialector
	GormConfig   *gorm.Config
	MaxIdleConns int
	MaxOpenConns int
	MaxLifetime  time.Duration
	AutoMigrate  []any // 需要自动迁移的模型
}

// NewDefaultOptions 创建默认配置
func NewDefaultOptions(name string, dialector gorm.Dialector) *Options {
	return &Options{
		Name:         name,
		Dialector:    dialector,
		GormConfig:   &gorm.Config{},
		MaxIdleConns: 10,
		MaxOpenConns: 100,
		MaxLifetime:  time.Hour,
		AutoMigrate:  make([]any, 0),
	}
}

// Validate 验证配置
func (o *Options) Validate() error {
	if o.Name == "" {
		return fmt.Errorf("database name is required")
	}
	if o.Dialector == nil {
		return fmt.Errorf("database dialector is required")
	}
	return nil
}

// Databases 按名称管理多个 GORM 实例。
type Databases struct {
	dbs map[string]*gorm.DB
	mu  sync.RWMutex
}

func newDatabases() *Databases {
	return &Databases{
		dbs: make(map[string]*gorm.DB),
	}
}

// register 打开连接、配置连接池并执行自动迁移。
func (d *Databases) register(opts Options) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.dbs[opts.Name]; exists {
		return fmt.Errorf("database '%s' already registered", opts.Name)
	}

	db, err := gorm.Open(opts.Dialector, opts.GormConfig)
	if err != nil {
		return fmt.Errorf("open database '%s': %w", opts.Name, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get sql.DB for '%s': %w", opts.Name, err)
	}
	sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
	sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(opts.MaxLifetime)

	if len(opts.AutoMigrate) > 0 {
		if err := db.AutoMigrate(opts.AutoMigrate...); err != nil {
			return fmt.Errorf("auto migrate '%s': %w", opts.Name, err)
		}
	}

	d.dbs[opts.Name] = db
	return nil
}

// Get 获取指定名称的数据库实例
func (d *Databases) Get(name string) (*gorm.DB, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	db, exists := d.dbs[name]
	if !exists {
		return nil, fmt.Errorf("database '%s' not found", name)
	}
	return db, nil
}

// Each 遍历所有数据库实例
func (d *Databases) Each(fn func(name string, db *gorm.DB)) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	for name, db := range d.dbs {
		fn(name, db)
	}
}

// Close 关闭所有数据库连接
func (d *Databases) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var errs []error
	for name, db := range d.dbs {
		sqlDB, err := db.DB()
		if err != nil {
			errs = append(errs, fmt.Errorf("get sql.DB for '%s': %w", name, err))
			continue
		}
		if err := sqlDB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close database '%s': %w", name, err))
		}
	}
	d.dbs = make(map[string]*gorm.DB)

	return errors.Join(errs...)
}
