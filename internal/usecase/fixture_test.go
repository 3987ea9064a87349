package usecase_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/trebuchet-org/wallet-deployer/internal/adapters/simnet"
	"github.com/trebuchet-org/wallet-deployer/internal/domain"
	"github.com/trebuchet-org/wallet-deployer/internal/domain/config"
	"github.com/trebuchet-org/wallet-deployer/internal/domain/models"
	"github.com/trebuchet-org/wallet-deployer/internal/usecase"
)

var (
	_ usecase.Network           = (*simnet.Network)(nil)
	_ usecase.SignerSet         = (*simnet.Signers)(nil)
	_ usecase.RecordStore       = (*simnet.Records)(nil)
	_ usecase.ArtifactStore     = simnet.Artifacts(nil)
	_ usecase.BlockchainChecker = (*simnet.Checker)(nil)
)

// MockPlanLoader is a mock implementation of PlanLoader
type MockPlanLoader struct {
	mock.Mock
}

func (m *MockPlanLoader) LoadPlan(ctx context.Context, path string) (*domain.Plan, error) {
	args := m.Called(ctx, path)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Plan), args.Error(1)
}

// MockProgressSink records progress events
type MockProgressSink struct {
	mu     sync.Mutex
	events []usecase.ProgressEvent
}

func (m *MockProgressSink) OnProgress(_ context.Context, event usecase.ProgressEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
}

func (m *MockProgressSink) Info(string)  {}
func (m *MockProgressSink) Error(string) {}

func (m *MockProgressSink) stages() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.events))
	for i, e := range m.events {
		out[i] = e.Stage
	}
	return out
}

type fixture struct {
	net       *simnet.Network
	signers   *simnet.Signers
	records   *simnet.Records
	artifacts simnet.Artifacts
	checker   *simnet.Checker
	cfg       *config.RuntimeConfig
	progress  *MockProgressSink
	log       *slog.Logger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	signers := simnet.NewSigners()
	net := simnet.New(simnet.DefaultChainID, signers)
	return &fixture{
		net:     net,
		signers: signers,
		records: simnet.NewRecords(),
		artifacts: simnet.Artifacts{
			"A":                           {0x60, 0x80, 0x01},
			"B":                           {0x60, 0x80, 0x02},
			"C":                           {0x60, 0x80, 0x03},
			"D":                           {0x60, 0x80, 0x04},
			"Registry":                    {0x60, 0x80, 0x10},
			"LazyWalletRegistry":          {0x60, 0x80, 0x11},
			"DeviceWalletFactory":         {0x60, 0x80, 0x12},
			"DeviceWallet":                {0x60, 0x80, 0x13},
			"DeviceWalletV2":              {0x60, 0x80, 0x14},
			"ERC1967Proxy":                {0x60, 0x80, 0xe1},
			"TransparentUpgradeableProxy": {0x60, 0x80, 0xe2},
			"UpgradeableBeacon":           {0x60, 0x80, 0xe3},
			"BeaconProxy":                 {0x60, 0x80, 0xe4},
		},
		checker: &simnet.Checker{Net: net},
		cfg: &config.RuntimeConfig{
			Network:         &config.Network{Name: "anvil", ChainID: simnet.DefaultChainID, Devnet: true},
			Concurrency:     4,
			SaltStrategy:    "hashed",
			ProtocolVersion: models.ProtocolV2,
		},
		progress: &MockProgressSink{},
		log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func (f *fixture) deployer() *usecase.DeployPlan {
	return usecase.NewDeployPlan(f.cfg, f.net, f.signers, f.records, f.artifacts, f.checker, f.progress, f.log)
}

func (f *fixture) upgrader() *usecase.UpgradeBeacon {
	return usecase.NewUpgradeBeacon(f.cfg, f.net, f.signers, f.records, f.artifacts, f.checker, f.progress, f.log)
}

func (f *fixture) deriver() *usecase.DeriveAddress {
	return usecase.NewDeriveAddress(f.cfg, f.net, f.signers, f.records, f.artifacts, f.log)
}

// record appends a unit entry as if an earlier run had deployed it.
func (f *fixture) record(t *testing.T, u models.UnitRecord) {
	t.Helper()
	ctx := context.Background()
	record, err := f.records.Load(ctx, f.cfg.Network.Name, f.cfg.Network.ChainID)
	require.NoError(t, err)
	u.Status = models.UnitDeployed
	require.NoError(t, f.records.Append(ctx, record, record.Next(models.RecordEntry{Kind: models.EntryUnit, Unit: &u})))
}

func (f *fixture) creations(label string) int {
	n := 0
	for _, s := range f.net.Submissions() {
		if s.Kind == "create" && s.Label == label {
			n++
		}
	}
	return n
}

func mustAddUnit(t *testing.T, p *domain.Plan, u *models.Unit) {
	t.Helper()
	require.NoError(t, p.AddUnit(u))
}

func mustAddStep(t *testing.T, p *domain.Plan, s *models.WiringStep) {
	t.Helper()
	require.NoError(t, p.AddWiringStep(s))
}

func mustArg(t *testing.T, typ string, raw any) models.Arg {
	t.Helper()
	a, err := models.ParseArg(typ, raw)
	require.NoError(t, err)
	return a
}

func argPtr(a models.Arg) *models.Arg {
	return &a
}
