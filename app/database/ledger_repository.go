package database

import (
	"fmt"
)

var _ LedgerRepositoryInterface = (*LedgerRepository)(nil)

// LedgerRepository handles the processed-folder and processed-file ledgers
type LedgerRepository struct {
	db *DB
}

// NewLedgerRepository creates a new ledger repository
func NewLedgerRepository(db *DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// IsFolderProcessed checks whether a folder name is already in the ledger
func (r *LedgerRepository) IsFolderProcessed(folderName string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(`
		SELECT EXISTS (SELECT 1 FROM processed_folders WHERE folder_name = $1)
	`, folderName).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check processed folder: %w", err)
	}
	return exists, nil
}

// MarkFolderProcessed records a folder in the ledger, tolerating repeats
func (r *LedgerRepository) MarkFolderProcessed(folderName string) error {
	_, err := r.db.Exec(`
		INSERT INTO processed_folders (folder_name)
		VALUES ($1)
		ON CONFLICT (folder_name) DO NOTHING
	`, folderName)
	if err != nil {
		return fmt.Errorf("failed to mark folder processed: %w", err)
	}
	return nil
}

// IsFileProcessed checks whether a file path is already in the ledger
func (r *LedgerRepository) IsFileProcessed(filePath string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(`
		SELECT EXISTS (SELECT 1 FROM processed_files WHERE file_path = $1)
	`, filePath).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check processed file: %w", err)
	}
	return exists, nil
}

// MarkFileProcessed records a file in the ledger, tolerating repeats
func (r *LedgerRepository) MarkFileProcessed(filePath string) error {
	_, err := r.db.Exec(`
		INSERT INTO processed_files (file_path)
		VALUES ($1)
		ON CONFLICT (file_path) DO NOTHING
	`, filePath)
	if err != nil {
		return fmt.Errorf("failed to mark file processed: %w", err)
	}
	return nil
}

// FolderCount returns the number of ledgered folders
func (r *LedgerRepository) FolderCount() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM processed_folders`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count processed folders: %w", err)
	}
	return count, nil
}

// FileCount returns the number of ledgered files
func (r *LedgerRepository) FileCount() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM processed_files`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count processed files: %w", err)
	}
	return count, nil
}
