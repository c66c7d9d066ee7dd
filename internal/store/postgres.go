package store

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// PostgresOption defines connection options for the order archive.
type PostgresOption struct {
	Host       string
	Port       int
	User       string
	Password   string
	Database   string
	SSLMode    string
	ConnString string
}

// orderRecord is the archive row, keyed by the engine client id.
type orderRecord struct {
	ClientID  string `gorm:"primaryKey;size:64"`
	Payload   []byte
	UpdatedAt time.Time
}

func (orderRecord) TableName() string {
	return "order_cache"
}

// Postgres archives tracked orders in a postgres table.
type Postgres struct {
	db *gorm.DB
}

// NewPostgres opens the connection and migrates the archive table.
func NewPostgres(opt PostgresOption) (*Postgres, error) {
	db, err := gorm.Open(postgres.Open(opt.dsn()), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&orderRecord{}); err != nil {
		return nil, err
	}
	return &Postgres{db: db}, nil
}

func (p *Postgres) Put(ctx context.Context, key string, value []byte) error {
	record := orderRecord{ClientID: key, Payload: value, UpdatedAt: time.Now()}
	return p.db.WithContext(ctx).Save(&record).Error
}

func (p *Postgres) Get(ctx context.Context, key string) ([]byte, error) {
	var record orderRecord
	err := p.db.WithContext(ctx).First(&record, "client_id = ?", key).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return record.Payload, nil
}

func (p *Postgres) Delete(ctx context.Context, key string) error {
	return p.db.WithContext(ctx).Delete(&orderRecord{}, "client_id = ?", key).Error
}

func (p *Postgres) List(ctx context.Context) (map[string][]byte, error) {
	var records []orderRecord
	if err := p.db.WithContext(ctx).Find(&records).Error; err != nil {
		return nil, err
	}
	out := make(map[string][]byte, len(records))
	for _, r := range records {
		out[r.ClientID] = r.Payload
	}
	return out, nil
}

func (p *Postgres) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (opt PostgresOption) dsn() string {
	if opt.ConnString != "" {
		return opt.ConnString
	}

	host := opt.Host
	if host == "" {
		host = "localhost"
	}
	port := opt.Port
	if port == 0 {
		port = 5432
	}
	sslMode := opt.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	u := &url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%d", host, port),
	}
	if opt.User != "" {
		if opt.Password != "" {
			u.User = url.UserPassword(opt.User, opt.Password)
		} else {
			u.User = url.User(opt.User)
		}
	}
	if opt.Database != "" {
		u.Path = "/" + opt.Database
	}
	u.RawQuery = url.Values{"sslmode": []string{sslMode}}.Encode()
	return u.String()
}
