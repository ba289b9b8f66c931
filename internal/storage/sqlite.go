package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/sojinoh/Audio-Fingerprinting/internal/index"
	"github.com/sojinoh/Audio-Fingerprinting/internal/model"
	"github.com/sojinoh/Audio-Fingerprinting/pkg/utils"
)

const DefaultDBFile = "fingerprints.sqlite3"
const errDBClientNil = "db client is nil"

type DBClient struct {
	DB *gorm.DB
	db *sql.DB
}

type SnapshotMeta struct {
	ID          string `gorm:"primaryKey;type:varchar(36)"`
	Version     int
	Songs       int
	Occurrences int
	CreatedAt   time.Time
}

type Song struct {
	ID     uint   `gorm:"primaryKey;autoIncrement"`
	SongID uint32 `gorm:"uniqueIndex:idx_song_id"`
	Name   string
}

type Occurrence struct {
	ID     uint   `gorm:"primaryKey;autoIncrement"`
	Hash   int64  `gorm:"index:idx_hash"`
	SongID uint32 `gorm:"index:idx_occ_song"`
	Time   int32
}

func NewDBClient() (*DBClient, error) {
	dbPath := os.Getenv("FP_DB_PATH")
	if dbPath == "" {
		dbPath = DefaultDBFile
	}
	return NewDBClientWithPath(dbPath)
}

func NewDBClientWithPath(dbPath string) (*DBClient, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := utils.MakeDir(dir); err != nil {
			return nil, fmt.Errorf("creating db dir: %w", err)
		}
	}

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}

	db, err := gorm.Open(sqlite.Open(dbPath+"?_pragma=busy_timeout(5000)"), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql.DB from gorm: %w", err)
	}

	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&SnapshotMeta{}, &Song{}, &Occurrence{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("auto migrate: %w", err)
	}

	return &DBClient{DB: db, db: sqlDB}, nil
}

func (c *DBClient) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// Save replaces the stored snapshot with the contents of idx in one transaction.
func (c *DBClient) Save(ctx context.Context, idx *index.Index) (Meta, error) {
	if c == nil || c.DB == nil {
		return Meta{}, errors.New(errDBClientNil)
	}

	songs, entries := idx.Snapshot()
	meta := Meta{
		ID:          utils.NewSnapshotID(),
		Version:     FormatVersion,
		Songs:       len(songs),
		Occurrences: len(entries),
		CreatedAt:   time.Now().UTC(),
	}

	err := c.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, table := range []any{&Occurrence{}, &Song{}, &SnapshotMeta{}} {
			if err := tx.Where("1 = 1").Delete(table).Error; err != nil {
				return fmt.Errorf("clearing previous snapshot: %w", err)
			}
		}

		if len(songs) > 0 {
			rows := make([]Song, len(songs))
			for i, s := range songs {
				rows[i] = Song{SongID: s.ID, Name: s.Name}
			}
			if err := tx.CreateInBatches(rows, 500).Error; err != nil {
				return fmt.Errorf("batch insert songs: %w", err)
			}
		}

		batch := make([]Occurrence, 0, 1000)
		for _, e := range entries {
			batch = append(batch, Occurrence{Hash: int64(e.Hash), SongID: e.SongID, Time: e.Time})
			if len(batch) >= 1000 {
				if err := tx.CreateInBatches(batch, 500).Error; err != nil {
					return fmt.Errorf("batch insert occurrences: %w", err)
				}
				batch = batch[:0]
			}
		}
		if len(batch) > 0 {
			if err := tx.CreateInBatches(batch, 500).Error; err != nil {
				return fmt.Errorf("batch insert last occurrences: %w", err)
			}
		}

		return tx.Create(&SnapshotMeta{
			ID:          meta.ID,
			Version:     meta.Version,
			Songs:       meta.Songs,
			Occurrences: meta.Occurrences,
			CreatedAt:   meta.CreatedAt,
		}).Error
	})
	if err != nil {
		return Meta{}, err
	}
	return meta, nil
}

// Load rebuilds idx from the stored snapshot.
func (c *DBClient) Load(ctx context.Context, idx *index.Index) (Meta, error) {
	if c == nil || c.DB == nil {
		return Meta{}, errors.New(errDBClientNil)
	}
	db := c.DB.WithContext(ctx)

	var row SnapshotMeta
	if err := db.Order("created_at desc").First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Meta{}, ErrNoSnapshot
		}
		return Meta{}, fmt.Errorf("querying snapshot meta: %w", err)
	}
	if err := checkVersion(row.Version); err != nil {
		return Meta{}, err
	}

	var songRows []Song
	if err := db.Order("song_id").Find(&songRows).Error; err != nil {
		return Meta{}, fmt.Errorf("querying songs: %w", err)
	}
	songs := make([]model.Song, len(songRows))
	for i, s := range songRows {
		songs[i] = model.Song{ID: s.SongID, Name: s.Name}
	}

	entries := make([]index.Entry, 0, row.Occurrences)
	var batch []Occurrence
	res := db.FindInBatches(&batch, 5000, func(tx *gorm.DB, _ int) error {
		for _, o := range batch {
			entries = append(entries, index.Entry{
				Hash:       uint64(o.Hash),
				Occurrence: model.Occurrence{SongID: o.SongID, Time: o.Time},
			})
		}
		return nil
	})
	if res.Error != nil {
		return Meta{}, fmt.Errorf("querying occurrences: %w", res.Error)
	}

	if err := idx.Restore(songs, entries); err != nil {
		return Meta{}, fmt.Errorf("restoring snapshot %s: %w", row.ID, err)
	}
	return Meta{
		ID:          row.ID,
		Version:     row.Version,
		Songs:       len(songs),
		Occurrences: len(entries),
		CreatedAt:   row.CreatedAt,
	}, nil
}
