package fs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/trebuchet-org/wallet-deployer/internal/domain"
	"github.com/trebuchet-org/wallet-deployer/internal/domain/config"
	"github.com/trebuchet-org/wallet-deployer/internal/domain/models"
	"github.com/trebuchet-org/wallet-deployer/internal/usecase"
)

// RecordStoreAdapter keeps one append-only JSONL log per network under
// <data dir>/records and mirrors unit addresses into the address book.
type RecordStoreAdapter struct {
	mu          sync.Mutex
	dir         string
	addressBook string
}

// NewRecordStoreAdapter creates a record store rooted at the runtime data dir
func NewRecordStoreAdapter(cfg *config.RuntimeConfig) *RecordStoreAdapter {
	return &RecordStoreAdapter{
		dir:         filepath.Join(cfg.DataDir, "records"),
		addressBook: cfg.AddressBook,
	}
}

// LogPath returns the log file of a network
func (s *RecordStoreAdapter) LogPath(network string) string {
	return filepath.Join(s.dir, logFileName(network))
}

func logFileName(network string) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, network)
	return name + ".jsonl"
}

// Load replays the network's log. A torn final line, left by a write that
// never completed, is ignored.
func (s *RecordStoreAdapter) Load(ctx context.Context, network string, chainID uint64) (*models.DeploymentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record := models.NewDeploymentRecord(network, chainID)

	data, err := os.ReadFile(s.LogPath(network))
	if os.IsNotExist(err) {
		return record, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read deployment record: %w", err)
	}

	lines := bytes.Split(data, []byte("\n"))
	for i, line := range lines {
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		var entry models.RecordEntry
		if err := json.Unmarshal(line, &entry); err != nil {
			if i == len(lines)-1 {
				break
			}
			return nil, fmt.Errorf("deployment record %s line %d: %w", network, i+1, err)
		}
		if chainID != 0 && entry.ChainID != 0 && entry.ChainID != chainID {
			return nil, fmt.Errorf("%w: record for %s was written on chain %d, connected to %d", domain.ErrNetworkMismatch, network, entry.ChainID, chainID)
		}
		if err := record.Apply(entry); err != nil {
			return nil, err
		}
	}
	return record, nil
}

// Append writes entry to the log, syncs it, and then folds it into record.
func (s *RecordStoreAdapter) Append(ctx context.Context, record *models.DeploymentRecord, entry models.RecordEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := record.Clone().Apply(entry); err != nil {
		return err
	}

	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal record entry: %w", err)
	}
	line = append(line, '\n')

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("failed to create records directory: %w", err)
	}
	f, err := os.OpenFile(s.LogPath(record.Network), os.O_APPEND|os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return fmt.Errorf("failed to open deployment record: %w", err)
	}
	if err := dropTornTail(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to repair deployment record: %w", err)
	}
	if _, err := f.Write(line); err != nil {
		f.Close()
		return fmt.Errorf("failed to write deployment record: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("failed to sync deployment record: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close deployment record: %w", err)
	}

	if err := record.Apply(entry); err != nil {
		return err
	}

	if entry.Kind == models.EntryUnit && s.addressBook != "" {
		if err := writeAddressBook(s.addressBook, record); err != nil {
			return fmt.Errorf("failed to update address book: %w", err)
		}
	}
	return nil
}

// dropTornTail truncates an unterminated final line so the next entry
// starts on a fresh line.
func dropTornTail(f *os.File) error {
	info, err := f.Stat()
	if err != nil || info.Size() == 0 {
		return err
	}
	last := make([]byte, 1)
	if _, err := f.ReadAt(last, info.Size()-1); err != nil {
		return err
	}
	if last[0] == '\n' {
		return nil
	}
	data := make([]byte, info.Size())
	if _, err := f.ReadAt(data, 0); err != nil {
		return err
	}
	return f.Truncate(int64(bytes.LastIndexByte(data, '\n') + 1))
}

// writeAddressBook replaces the record's network section of the address
// book, leaving other networks untouched.
func writeAddressBook(path string, record *models.DeploymentRecord) error {
	book := make(map[string]map[string]string)
	if data, err := os.ReadFile(path); err == nil {
		if err := json.Unmarshal(data, &book); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return err
	}

	section := make(map[string]string, len(record.Units))
	for name, addr := range record.AddressBook() {
		section[name] = addr.Hex()
	}
	book[record.Network] = section

	data, err := json.MarshalIndent(book, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Ensure the adapter implements the interface
var _ usecase.RecordStore = (*RecordStoreAdapter)(nil)
