package storage

import (
	"errors"
	"fmt"
	"strings"

	"crowdfund/internal/logger"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SqliteStorage struct {
	db *gorm.DB
}

func NewSqliteStorage(path string) (*SqliteStorage, error) {
	logger.Debug("initializing ledger database...", zap.String("path", path))

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open ledger database: %w", err)
	}

	if err := db.AutoMigrate(&LedgerEntry{}); err != nil {
		return nil, fmt.Errorf("migrate ledger database: %w", err)
	}

	return &SqliteStorage{db: db}, nil
}

func (s *SqliteStorage) RecordEntry(entry *LedgerEntry) error {
	logger.Debug("recording ledger entry...",
		zap.String("kind", entry.Kind),
		zap.Uint64("campaign", entry.CampaignID),
		zap.String("tx", entry.TxHash),
	)

	record := *entry
	record.ID = 0
	record.Account = strings.ToLower(record.Account)

	if record.Kind == DonationKind {
		// Donations append; the identity index makes a replayed receipt a no-op.
		err := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&record).Error
		if err != nil {
			return err
		}

		logger.Debug("recording ledger entry... done")
		return nil
	}

	// Withdrawals and refunds keep a single latest entry per campaign.
	err := s.db.Transaction(func(tx *gorm.DB) error {
		err := tx.
			Where("account = ? and campaign_id = ? and kind = ? and tx_hash <> ?",
				record.Account, record.CampaignID, record.Kind, record.TxHash).
			Delete(&LedgerEntry{}).Error
		if err != nil {
			return err
		}

		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&record).Error
	})
	if err != nil {
		return err
	}

	logger.Debug("recording ledger entry... done")
	return nil
}

func (s *SqliteStorage) GetEntries(account string) (map[uint64][]*LedgerEntry, error) {
	var entries []*LedgerEntry
	err := s.db.
		Where("account = ?", strings.ToLower(account)).
		Order("timestamp asc").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}

	grouped := make(map[uint64][]*LedgerEntry)
	for _, entry := range entries {
		grouped[entry.CampaignID] = append(grouped[entry.CampaignID], entry)
	}

	return grouped, nil
}

func (s *SqliteStorage) GetEntriesByKind(account string, kind EntryKind) ([]*LedgerEntry, error) {
	var entries []*LedgerEntry
	err := s.db.
		Where("account = ? and kind = ?", strings.ToLower(account), kind).
		Order("timestamp asc").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}

	return entries, nil
}

func (s *SqliteStorage) GetEntry(account string, campaignID uint64, kind EntryKind) (*LedgerEntry, error) {
	var entry LedgerEntry
	err := s.db.
		Where("account = ? and campaign_id = ? and kind = ?", strings.ToLower(account), campaignID, kind).
		Order("timestamp desc").
		First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &entry, nil
}

func (s *SqliteStorage) ClearAccount(account string) error {
	logger.Debug("clearing ledger entries...", zap.String("account", account))
	return s.db.
		Where("account = ?", strings.ToLower(account)).
		Delete(&LedgerEntry{}).Error
}
