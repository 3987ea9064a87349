package fs

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trebuchet-org/wallet-deployer/internal/domain"
	"github.com/trebuchet-org/wallet-deployer/internal/domain/config"
	"github.com/trebuchet-org/wallet-deployer/internal/domain/models"
)

func newTestRecordStore(t *testing.T) (*RecordStoreAdapter, *config.RuntimeConfig) {
	t.Helper()
	tmpDir := t.TempDir()
	cfg := &config.RuntimeConfig{
		DataDir:     filepath.Join(tmpDir, ".wdeploy"),
		AddressBook: filepath.Join(tmpDir, "deployments", "address.json"),
	}
	return NewRecordStoreAdapter(cfg), cfg
}

func unitEntry(name string, addr common.Address) models.RecordEntry {
	return models.RecordEntry{
		Kind: models.EntryUnit,
		Unit: &models.UnitRecord{Name: name, Kind: models.KindContract, Address: addr, Status: models.UnitDeployed},
	}
}

func TestRecordStore_LoadEmpty(t *testing.T) {
	store, _ := newTestRecordStore(t)

	record, err := store.Load(context.Background(), "anvil", 31337)
	require.NoError(t, err)
	assert.Equal(t, "anvil", record.Network)
	assert.Equal(t, uint64(31337), record.ChainID)
	assert.Zero(t, record.Version)
	assert.Empty(t, record.Units)
}

func TestRecordStore_AppendAndReplay(t *testing.T) {
	store, _ := newTestRecordStore(t)
	ctx := context.Background()

	record, err := store.Load(ctx, "anvil", 31337)
	require.NoError(t, err)

	require.NoError(t, store.Append(ctx, record, record.Next(unitEntry("Registry", common.HexToAddress("0x01")))))
	require.NoError(t, store.Append(ctx, record, record.Next(unitEntry("DeviceWalletFactory", common.HexToAddress("0x02")))))
	require.NoError(t, store.Append(ctx, record, record.Next(models.RecordEntry{
		Kind:   models.EntryWiring,
		Wiring: &models.WiringRecord{Index: 0, Target: "Registry", Function: "setVault(address)", Role: models.RoleAdmin, Status: models.WiringApplied},
	})))
	assert.Equal(t, uint64(3), record.Version)

	replayed, err := store.Load(ctx, "anvil", 31337)
	require.NoError(t, err)
	assert.Equal(t, record.Version, replayed.Version)
	assert.Equal(t, []string{"Registry", "DeviceWalletFactory"}, replayed.Order)
	assert.Equal(t, common.HexToAddress("0x02"), replayed.Units["DeviceWalletFactory"].Address)
	require.Len(t, replayed.Wiring, 1)
	assert.Equal(t, models.WiringApplied, replayed.Wiring[0].Status)

	data, err := os.ReadFile(store.LogPath("anvil"))
	require.NoError(t, err)
	lines := 0
	for _, b := range data {
		if b == '\n' {
			lines++
		}
	}
	assert.Equal(t, 3, lines)
}

func TestRecordStore_RejectsOutOfSequence(t *testing.T) {
	store, _ := newTestRecordStore(t)
	ctx := context.Background()
	record, err := store.Load(ctx, "anvil", 31337)
	require.NoError(t, err)

	entry := record.Next(unitEntry("Registry", common.HexToAddress("0x01")))
	entry.Seq = 5
	assert.Error(t, store.Append(ctx, record, entry))
	assert.Zero(t, record.Version)

	_, err = os.Stat(store.LogPath("anvil"))
	assert.True(t, os.IsNotExist(err), "nothing is written for a rejected entry")
}

func TestRecordStore_ChainMismatch(t *testing.T) {
	store, _ := newTestRecordStore(t)
	ctx := context.Background()
	record, err := store.Load(ctx, "sepolia", 11155111)
	require.NoError(t, err)
	require.NoError(t, store.Append(ctx, record, record.Next(unitEntry("Registry", common.HexToAddress("0x01")))))

	_, err = store.Load(ctx, "sepolia", 1)
	assert.ErrorIs(t, err, domain.ErrNetworkMismatch)
}

func TestRecordStore_TornTail(t *testing.T) {
	store, _ := newTestRecordStore(t)
	ctx := context.Background()
	record, err := store.Load(ctx, "anvil", 31337)
	require.NoError(t, err)
	require.NoError(t, store.Append(ctx, record, record.Next(unitEntry("A", common.HexToAddress("0x01")))))

	f, err := os.OpenFile(store.LogPath("anvil"), os.O_APPEND|os.O_WRONLY, 0644)
	require.NoError(t, err)
	_, err = f.WriteString(`{"seq":2,"kind":"unit","unit":{"na`)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	record, err = store.Load(ctx, "anvil", 31337)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), record.Version)

	require.NoError(t, store.Append(ctx, record, record.Next(unitEntry("B", common.HexToAddress("0x02")))))
	record, err = store.Load(ctx, "anvil", 31337)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, record.Order)
}

func TestRecordStore_CorruptMiddleLine(t *testing.T) {
	store, _ := newTestRecordStore(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(store.LogPath("anvil")), 0755))
	require.NoError(t, os.WriteFile(store.LogPath("anvil"), []byte("not json\n{}\n"), 0644))

	_, err := store.Load(context.Background(), "anvil", 31337)
	assert.ErrorContains(t, err, "line 1")
}

func TestRecordStore_AddressBook(t *testing.T) {
	store, cfg := newTestRecordStore(t)
	ctx := context.Background()

	require.NoError(t, os.MkdirAll(filepath.Dir(cfg.AddressBook), 0755))
	require.NoError(t, os.WriteFile(cfg.AddressBook, []byte(`{"sepolia":{"Registry":"0x0000000000000000000000000000000000000009"}}`), 0644))

	record, err := store.Load(ctx, "anvil", 31337)
	require.NoError(t, err)
	require.NoError(t, store.Append(ctx, record, record.Next(unitEntry("Registry", common.HexToAddress("0x01")))))
	require.NoError(t, store.Append(ctx, record, record.Next(unitEntry("RegistryImplementation", common.HexToAddress("0x02")))))

	data, err := os.ReadFile(cfg.AddressBook)
	require.NoError(t, err)
	var book map[string]map[string]string
	require.NoError(t, json.Unmarshal(data, &book))

	assert.Equal(t, "0x0000000000000000000000000000000000000009", book["sepolia"]["Registry"])
	assert.Equal(t, common.HexToAddress("0x01").Hex(), book["anvil"]["Registry"])
	assert.Equal(t, common.HexToAddress("0x02").Hex(), book["anvil"]["RegistryImplementation"])

	_, err = os.Stat(cfg.AddressBook + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestRecordStore_ConcurrentAppends(t *testing.T) {
	store, _ := newTestRecordStore(t)
	ctx := context.Background()
	record, err := store.Load(ctx, "anvil", 31337)
	require.NoError(t, err)

	// Callers stamp and append under one lock, like the deploy ledger does.
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			mu.Lock()
			defer mu.Unlock()
			name := string(rune('A' + i))
			assert.NoError(t, store.Append(ctx, record, record.Next(unitEntry(name, common.BigToAddress(common.Big1)))))
		}(i)
	}
	wg.Wait()

	replayed, err := store.Load(ctx, "anvil", 31337)
	require.NoError(t, err)
	assert.Equal(t, uint64(16), replayed.Version)
	assert.Len(t, replayed.Units, 16)
}

func TestLogFileName(t *testing.T) {
	assert.Equal(t, "base-sepolia.jsonl", logFileName("base-sepolia"))
	assert.Equal(t, "a_b.jsonl", logFileName("a/b"))
}
