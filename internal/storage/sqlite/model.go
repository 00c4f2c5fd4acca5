package sqlite

import "time"

// CorpusFile is one uploaded corpus blob.
type CorpusFile struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"size:255;uniqueIndex:idx_corpus_files_name;not null"`
	Content   []byte `gorm:"type:blob;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName defines the table name for CorpusFile.
func (CorpusFile) TableName() string {
	return "corpus_files"
}

// SettingsRecord holds an encoded settings document under a fixed key.
type SettingsRecord struct {
	Key       string `gorm:"primaryKey;size:64"`
	Value     string `gorm:"type:text;not null"`
	UpdatedAt time.Time
}

// TableName defines the table name for SettingsRecord.
func (SettingsRecord) TableName() string {
	return "settings"
}
