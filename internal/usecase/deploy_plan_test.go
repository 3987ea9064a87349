package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trebuchet-org/wallet-deployer/internal/adapters/simnet"
	"github.com/trebuchet-org/wallet-deployer/internal/domain"
	"github.com/trebuchet-org/wallet-deployer/internal/domain/models"
	"github.com/trebuchet-org/wallet-deployer/internal/usecase"
	"github.com/trebuchet-org/wallet-deployer/pkg/abicodec"
)

// chainPlan is A, B independent; C needs B; D needs C.
func chainPlan(t *testing.T) *domain.Plan {
	p := domain.NewPlan("chain", models.ProtocolV2)
	mustAddUnit(t, p, &models.Unit{Name: "A", Artifact: "A"})
	mustAddUnit(t, p, &models.Unit{Name: "B", Artifact: "B", Role: models.RoleAdmin})
	mustAddUnit(t, p, &models.Unit{Name: "C", Artifact: "C", Args: []models.Arg{models.UnitRef("B")}})
	mustAddUnit(t, p, &models.Unit{Name: "D", Artifact: "D", Args: []models.Arg{models.UnitRef("C"), models.Literal("uint256", "7")}})
	return p
}

func TestDeployPlan_DeploysInDependencyOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	result, err := f.deployer().Run(ctx, usecase.DeployParams{Plan: chainPlan(t)})
	require.NoError(t, err)

	assert.Equal(t, []string{"A", "B", "C", "D"}, result.Deployed)
	assert.Empty(t, result.Skipped)
	require.Len(t, result.Record.Units, 4)

	// D's constructor carries C's recorded address.
	cAddr, _ := result.Record.Address("C")
	dAddr, _ := result.Record.Address("D")
	d, ok := f.net.At(dAddr)
	require.True(t, ok)
	values, err := abicodec.DecodeTuple([]string{"address", "uint256"}, d.Args)
	require.NoError(t, err)
	assert.Equal(t, cAddr, values[0])

	// B was signed by admin, the rest by deployer.
	admin, _ := f.signers.Address(models.RoleAdmin)
	b, _ := result.Record.Unit("B")
	assert.Equal(t, admin, b.Deployer)

	assert.Contains(t, f.progress.stages(), "deploy_completed")
	// each creation is recorded pending when sent, then deployed
	assert.Len(t, f.records.Entries("anvil"), 8)
}

func TestDeployPlan_ConcurrencyAcrossRolesSerialWithinRole(t *testing.T) {
	f := newFixture(t)
	f.net.Latency = 30 * time.Millisecond

	p := domain.NewPlan("wide", models.ProtocolV2)
	mustAddUnit(t, p, &models.Unit{Name: "A", Artifact: "A"})
	mustAddUnit(t, p, &models.Unit{Name: "B", Artifact: "B"})
	mustAddUnit(t, p, &models.Unit{Name: "C", Artifact: "C", Role: models.RoleAdmin})
	mustAddUnit(t, p, &models.Unit{Name: "D", Artifact: "D", Role: models.RoleAdmin})
	require.Len(t, p.Levels(), 1)

	_, err := f.deployer().Run(context.Background(), usecase.DeployParams{Plan: p, Concurrency: 4})
	require.NoError(t, err)

	assert.Equal(t, 2, f.net.MaxInFlight(), "one submission per role at a time")
	assert.False(t, f.net.RoleOverlap())

	// Nonces stayed contiguous per signer.
	deployer, _ := f.signers.Address(models.RoleDeployer)
	admin, _ := f.signers.Address(models.RoleAdmin)
	assert.Equal(t, uint64(2), f.net.Nonce(deployer))
	assert.Equal(t, uint64(2), f.net.Nonce(admin))
}

func TestDeployPlan_ConcurrencyOneIsSequential(t *testing.T) {
	f := newFixture(t)
	f.net.Latency = 10 * time.Millisecond

	p := domain.NewPlan("wide", models.ProtocolV2)
	mustAddUnit(t, p, &models.Unit{Name: "A", Artifact: "A"})
	mustAddUnit(t, p, &models.Unit{Name: "C", Artifact: "C", Role: models.RoleAdmin})

	_, err := f.deployer().Run(context.Background(), usecase.DeployParams{Plan: p, Concurrency: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, f.net.MaxInFlight())
}

func TestDeployPlan_FailureThenResume(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	plan := chainPlan(t)

	f.net.FailWhen = func(label string, _ models.Role) error {
		if label == "C" {
			return errors.New("out of gas")
		}
		return nil
	}

	result, err := f.deployer().Run(ctx, usecase.DeployParams{Plan: plan})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrTransactionReverted)

	var txErr *domain.TransactionFailureError
	require.ErrorAs(t, err, &txErr)
	assert.Equal(t, domain.PhaseDeploy, txErr.Phase)
	assert.Equal(t, 2, txErr.Index)
	assert.Equal(t, "C", txErr.Name)
	require.NotNil(t, txErr.Record)
	assert.ElementsMatch(t, []string{"A", "B"}, txErr.Record.Names())
	assert.Equal(t, txErr.Record.Names(), result.Record.Names())

	// Second run picks up at C without redeploying A or B.
	f.net.FailWhen = nil
	result, err = f.deployer().Run(ctx, usecase.DeployParams{Plan: plan})
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, result.Skipped)
	assert.Equal(t, []string{"C", "D"}, result.Deployed)
	assert.Equal(t, 1, f.creations("A"))
	assert.Equal(t, 1, f.creations("B"))
	assert.Equal(t, 2, f.creations("C"), "one reverted, one confirmed")
}

func TestDeployPlan_ProxyKinds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p := domain.NewPlan("proxies", models.ProtocolV2)
	mustAddUnit(t, p, &models.Unit{
		Name:        "Registry",
		Kind:        models.KindUUPSProxy,
		Artifact:    "Registry",
		Initializer: "initialize(address)",
		InitArgs:    []models.Arg{models.RoleRef(models.RoleAdmin)},
	})
	mustAddUnit(t, p, &models.Unit{
		Name:     "WalletBeacon",
		Kind:     models.KindBeacon,
		Artifact: "DeviceWallet",
		Owner:    argPtr(models.RoleRef(models.RoleUpgradeManager)),
	})
	mustAddUnit(t, p, &models.Unit{
		Name:        "Wallet",
		Kind:        models.KindBeaconProxy,
		Beacon:      argPtr(models.UnitRef("WalletBeacon")),
		Initializer: "initialize(address)",
		InitArgs:    []models.Arg{models.UnitRef("Registry")},
	})
	mustAddUnit(t, p, &models.Unit{
		Name:     "Lazy",
		Kind:     models.KindTransparentProxy,
		Artifact: "LazyWalletRegistry",
		Args:     []models.Arg{mustArg(t, "address", "${Registry.implementation}")},
	})

	result, err := f.deployer().Run(ctx, usecase.DeployParams{Plan: p})
	require.NoError(t, err)

	rec := result.Record
	for _, name := range []string{"Registry", "RegistryImplementation", "WalletBeacon", "WalletBeaconImplementation", "Wallet", "Lazy", "LazyImplementation"} {
		_, ok := rec.Unit(name)
		assert.True(t, ok, "%s recorded", name)
	}
	impl, _ := rec.Unit("RegistryImplementation")
	assert.Equal(t, "Registry", impl.Parent)

	t.Run("uups proxy wraps implementation and init data", func(t *testing.T) {
		addr, _ := rec.Address("Registry")
		c, _ := f.net.At(addr)
		assert.Equal(t, []byte{0x60, 0x80, 0xe1}, c.Bytecode)
		values, err := abicodec.DecodeTuple([]string{"address", "bytes"}, c.Args)
		require.NoError(t, err)
		assert.Equal(t, impl.Address, values[0])

		admin, _ := f.signers.Address(models.RoleAdmin)
		want, err := abicodec.EncodeCall("initialize(address)", admin)
		require.NoError(t, err)
		assert.Equal(t, want, values[1])
	})

	t.Run("beacon owner is the referenced role", func(t *testing.T) {
		addr, _ := rec.Address("WalletBeacon")
		c, _ := f.net.At(addr)
		values, err := abicodec.DecodeTuple([]string{"address", "address"}, c.Args)
		require.NoError(t, err)
		manager, _ := f.signers.Address(models.RoleUpgradeManager)
		assert.Equal(t, manager, values[1])
	})

	t.Run("beacon proxy points at the beacon", func(t *testing.T) {
		addr, _ := rec.Address("Wallet")
		c, _ := f.net.At(addr)
		values, err := abicodec.DecodeTuple([]string{"address", "bytes"}, c.Args)
		require.NoError(t, err)
		beacon, _ := rec.Address("WalletBeacon")
		assert.Equal(t, beacon, values[0])
	})

	t.Run("transparent proxy admin defaults to the submitter", func(t *testing.T) {
		addr, _ := rec.Address("Lazy")
		c, _ := f.net.At(addr)
		values, err := abicodec.DecodeTuple([]string{"address", "address", "bytes"}, c.Args)
		require.NoError(t, err)
		deployer, _ := f.signers.Address(models.RoleDeployer)
		assert.Equal(t, deployer, values[1])
		assert.Equal(t, []byte{}, values[2])

		lazyImpl, _ := rec.Address("LazyImplementation")
		li, _ := f.net.At(lazyImpl)
		ctor, err := abicodec.DecodeTuple([]string{"address"}, li.Args)
		require.NoError(t, err)
		assert.Equal(t, impl.Address, ctor[0])
	})
}

func TestDeployPlan_ExternalUnit(t *testing.T) {
	f := newFixture(t)
	entryPoint := common.HexToAddress("0x0000000071727De22E5E9d8BAf0edAc6f37da032")

	p := domain.NewPlan("external", models.ProtocolV2)
	mustAddUnit(t, p, &models.Unit{Name: "EntryPoint", Kind: models.KindExternal, Address: entryPoint})
	mustAddUnit(t, p, &models.Unit{Name: "A", Artifact: "A", Args: []models.Arg{models.UnitRef("EntryPoint")}})

	result, err := f.deployer().Run(context.Background(), usecase.DeployParams{Plan: p})
	require.NoError(t, err)

	got, _ := result.Record.Address("EntryPoint")
	assert.Equal(t, entryPoint, got)
	assert.Zero(t, f.creations("EntryPoint"))
	assert.Equal(t, 1, f.creations("A"))
}

// walletPlan closes the registry/factory cycle with wiring steps.
func walletPlan(t *testing.T, reversed bool) *domain.Plan {
	p := domain.NewPlan("wallet", models.ProtocolV2)
	mustAddUnit(t, p, &models.Unit{Name: "Registry", Artifact: "Registry"})
	mustAddUnit(t, p, &models.Unit{Name: "LazyWalletRegistry", Artifact: "LazyWalletRegistry", Args: []models.Arg{models.UnitRef("Registry")}})
	mustAddUnit(t, p, &models.Unit{Name: "DeviceWalletFactory", Artifact: "DeviceWalletFactory"})

	lazy := &models.WiringStep{
		Target:   "Registry",
		Function: "addOrUpdateLazyWalletRegistryAddress(address)",
		Args:     []models.Arg{models.UnitRef("LazyWalletRegistry")},
		Role:     models.RoleAdmin,
	}
	factory := &models.WiringStep{
		Target:   "DeviceWalletFactory",
		Function: "addRegistryAddress(address)",
		Args:     []models.Arg{models.UnitRef("Registry")},
		Role:     models.RoleAdmin,
	}
	if reversed {
		lazy, factory = factory, lazy
	}
	mustAddStep(t, p, lazy)
	mustAddStep(t, p, factory)
	mustAddStep(t, p, &models.WiringStep{
		Target:     "Registry",
		Function:   "setVault(address)",
		Args:       []models.Arg{models.RoleRef(models.RoleVault)},
		Role:       models.RoleAdmin,
		SkipIfSame: []models.Role{models.RoleAdmin, models.RoleVault},
	})
	return p
}

func installWalletBehaviours(f *fixture) {
	f.net.Install("Registry", (&simnet.Registry{}).Install)
	f.net.Install("DeviceWalletFactory", (&simnet.WalletFactory{}).Install)
}

func TestDeployPlan_WiringOrder(t *testing.T) {
	t.Run("declared order satisfies the factory check", func(t *testing.T) {
		f := newFixture(t)
		installWalletBehaviours(f)

		result, err := f.deployer().Run(context.Background(), usecase.DeployParams{Plan: walletPlan(t, false)})
		require.NoError(t, err)
		assert.Equal(t, []int{0, 1, 2}, result.WiringApplied)

		registry, _ := result.Record.Address("Registry")
		factoryAddr, _ := result.Record.Address("DeviceWalletFactory")
		factory, _ := f.net.At(factoryAddr)
		assert.Equal(t, registry, factory.AddressOf(simnet.KeyRegistry))

		vault, _ := f.signers.Address(models.RoleVault)
		reg, _ := f.net.At(registry)
		assert.Equal(t, vault, reg.AddressOf(simnet.KeyVault))

		for _, w := range result.Record.Wiring {
			assert.Equal(t, models.WiringApplied, w.Status)
		}
	})

	t.Run("reversed order fails at the first step", func(t *testing.T) {
		f := newFixture(t)
		installWalletBehaviours(f)

		_, err := f.deployer().Run(context.Background(), usecase.DeployParams{Plan: walletPlan(t, true)})
		var txErr *domain.TransactionFailureError
		require.ErrorAs(t, err, &txErr)
		assert.Equal(t, domain.PhaseWiring, txErr.Phase)
		assert.Equal(t, 0, txErr.Index)
		assert.Empty(t, txErr.Record.Wiring, "nothing after the failing step ran")
		assert.Len(t, txErr.Record.Units, 3)
	})
}

func TestDeployPlan_WiringResume(t *testing.T) {
	f := newFixture(t)
	installWalletBehaviours(f)
	ctx := context.Background()
	plan := walletPlan(t, false)

	f.net.FailWhen = func(label string, _ models.Role) error {
		if label == "DeviceWalletFactory.addRegistryAddress(address)" {
			return errors.New("nonce too low")
		}
		return nil
	}
	_, err := f.deployer().Run(ctx, usecase.DeployParams{Plan: plan})
	var txErr *domain.TransactionFailureError
	require.ErrorAs(t, err, &txErr)
	assert.Equal(t, 1, txErr.Index)
	require.Len(t, txErr.Record.Wiring, 1)

	f.net.FailWhen = nil
	result, err := f.deployer().Run(ctx, usecase.DeployParams{Plan: plan})
	require.NoError(t, err)
	assert.Equal(t, []int{0}, result.WiringResumed)
	assert.Equal(t, []int{1, 2}, result.WiringApplied)
	assert.Len(t, result.Skipped, 3)
}

func TestDeployPlan_PlanDrift(t *testing.T) {
	f := newFixture(t)
	installWalletBehaviours(f)
	ctx := context.Background()

	_, err := f.deployer().Run(ctx, usecase.DeployParams{Plan: walletPlan(t, false)})
	require.NoError(t, err)

	// Same units, but step 0 now names a different call.
	drifted := domain.NewPlan("wallet", models.ProtocolV2)
	mustAddUnit(t, drifted, &models.Unit{Name: "Registry", Artifact: "Registry"})
	mustAddStep(t, drifted, &models.WiringStep{Target: "Registry", Function: "setVault(address)", Args: []models.Arg{models.RoleRef(models.RoleVault)}, Role: models.RoleAdmin})

	_, err = f.deployer().Run(ctx, usecase.DeployParams{Plan: drifted})
	assert.ErrorIs(t, err, domain.ErrPlanDrift)
}

func TestDeployPlan_SkipIfSame(t *testing.T) {
	f := newFixture(t)
	installWalletBehaviours(f)
	f.signers.Addresses[models.RoleVault] = f.signers.Addresses[models.RoleAdmin]

	result, err := f.deployer().Run(context.Background(), usecase.DeployParams{Plan: walletPlan(t, false)})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, result.WiringApplied)
	assert.Equal(t, []int{2}, result.WiringSkipped)

	step, ok := result.Record.WiringStep(2)
	require.True(t, ok)
	assert.Equal(t, models.WiringSkipped, step.Status)
	assert.Equal(t, common.Hash{}, step.TxHash)
}

func TestDeployPlan_Preflight(t *testing.T) {
	t.Run("missing signer before any network call", func(t *testing.T) {
		f := newFixture(t)
		delete(f.signers.Addresses, models.RoleAdmin)

		_, err := f.deployer().Run(context.Background(), usecase.DeployParams{Plan: chainPlan(t)})
		assert.ErrorIs(t, err, domain.ErrMissingSigner)
		var missing *domain.MissingSignersError
		require.ErrorAs(t, err, &missing)
		assert.Equal(t, []models.Role{models.RoleAdmin}, missing.Roles)
		assert.Empty(t, f.net.Submissions())
	})

	t.Run("watch-only role cannot submit", func(t *testing.T) {
		f := newFixture(t)
		f.signers.WatchOnly[models.RoleAdmin] = true
		_, err := f.deployer().Run(context.Background(), usecase.DeployParams{Plan: chainPlan(t)})
		assert.ErrorIs(t, err, domain.ErrMissingSigner)
	})

	t.Run("referenced role at zero address", func(t *testing.T) {
		f := newFixture(t)
		installWalletBehaviours(f)
		f.signers.Addresses[models.RoleVault] = common.Address{}
		_, err := f.deployer().Run(context.Background(), usecase.DeployParams{Plan: walletPlan(t, false)})
		assert.ErrorIs(t, err, domain.ErrRoleZeroAddress)
		assert.Empty(t, f.net.Submissions())
	})

	t.Run("chain id mismatch", func(t *testing.T) {
		f := newFixture(t)
		f.cfg.Network.ChainID = 1
		_, err := f.deployer().Run(context.Background(), usecase.DeployParams{Plan: chainPlan(t)})
		assert.ErrorIs(t, err, domain.ErrNetworkMismatch)
	})

	t.Run("no network", func(t *testing.T) {
		f := newFixture(t)
		f.cfg.Network = nil
		_, err := f.deployer().Run(context.Background(), usecase.DeployParams{Plan: chainPlan(t)})
		assert.ErrorIs(t, err, domain.ErrNoNetwork)
	})
}

func TestDeployPlan_Verify(t *testing.T) {
	f := newFixture(t)
	entryPoint := common.HexToAddress("0x5FF137D4b0FDCD49DcA30c7CF57E578a026d2789")

	p := domain.NewPlan("verify", models.ProtocolV2)
	mustAddUnit(t, p, &models.Unit{Name: "EntryPoint", Kind: models.KindExternal, Address: entryPoint})
	mustAddUnit(t, p, &models.Unit{Name: "A", Artifact: "A"})

	result, err := f.deployer().Run(context.Background(), usecase.DeployParams{Plan: p, Verify: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, result.Verified)
	assert.Contains(t, result.Unverified, "EntryPoint")

	a, _ := result.Record.Unit("A")
	assert.Equal(t, models.UnitVerified, a.Status)
}

func TestDeployPlan_SiblingFailureKeepsInFlightCreation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.net.Latency = 10 * time.Millisecond
	f.net.ConfirmDelay = func(label string) time.Duration {
		if label == "C" {
			return 50 * time.Millisecond
		}
		return 0
	}
	f.net.FailWhen = func(label string, _ models.Role) error {
		if label == "A" {
			return errors.New("out of gas")
		}
		return nil
	}

	p := domain.NewPlan("wide", models.ProtocolV2)
	mustAddUnit(t, p, &models.Unit{Name: "A", Artifact: "A"})
	mustAddUnit(t, p, &models.Unit{Name: "C", Artifact: "C", Role: models.RoleAdmin})
	require.Len(t, p.Levels(), 1)

	_, err := f.deployer().Run(ctx, usecase.DeployParams{Plan: p, Concurrency: 2})
	var txErr *domain.TransactionFailureError
	require.ErrorAs(t, err, &txErr)
	assert.Equal(t, "A", txErr.Name)
	assert.ErrorIs(t, err, domain.ErrTransactionReverted)

	// C was mid-confirmation when A failed and still made it into the record.
	record, err := f.records.Load(ctx, "anvil", simnet.DefaultChainID)
	require.NoError(t, err)
	c, ok := record.Unit("C")
	require.True(t, ok)
	assert.Equal(t, models.UnitDeployed, c.Status)
	_, ok = record.Unit("A")
	assert.False(t, ok, "reverted creation is dropped")

	f.net.FailWhen = nil
	result, err := f.deployer().Run(ctx, usecase.DeployParams{Plan: p, Concurrency: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"C"}, result.Skipped)
	assert.Equal(t, []string{"A"}, result.Deployed)
	assert.Equal(t, 1, f.creations("C"))
	assert.Equal(t, 2, f.creations("A"))
}

func TestDeployPlan_InterruptedConfirmationIsSettled(t *testing.T) {
	f := newFixture(t)
	plan := chainPlan(t)
	f.net.ConfirmDelay = func(label string) time.Duration {
		if label == "B" {
			return time.Hour
		}
		return 0
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := f.deployer().Run(ctx, usecase.DeployParams{Plan: plan})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	var txErr *domain.TransactionFailureError
	require.ErrorAs(t, err, &txErr)
	assert.Equal(t, "B", txErr.Name)
	require.NotEqual(t, common.Hash{}, txErr.TxHash)

	record, err := f.records.Load(context.Background(), "anvil", simnet.DefaultChainID)
	require.NoError(t, err)
	b, ok := record.Unit("B")
	require.True(t, ok)
	assert.Equal(t, models.UnitPending, b.Status)
	assert.Equal(t, txErr.TxHash, b.TxHash)
	_, ok = record.Address("B")
	assert.False(t, ok, "pending units do not resolve")

	f.net.ConfirmDelay = nil
	result, err := f.deployer().Run(context.Background(), usecase.DeployParams{Plan: plan})
	require.NoError(t, err)
	assert.Equal(t, []string{"B"}, result.Settled)
	assert.ElementsMatch(t, []string{"A", "B"}, result.Skipped)
	assert.Equal(t, []string{"C", "D"}, result.Deployed)
	assert.Equal(t, 1, f.creations("B"))

	settled, _ := result.Record.Unit("B")
	assert.Equal(t, models.UnitDeployed, settled.Status)
	assert.NotZero(t, settled.BlockNumber)
}

func TestDeployPlan_PendingRevertIsRedeployed(t *testing.T) {
	f := newFixture(t)
	p := domain.NewPlan("single", models.ProtocolV2)
	mustAddUnit(t, p, &models.Unit{Name: "A", Artifact: "A"})

	f.net.FailWhen = func(string, models.Role) error { return errors.New("out of gas") }
	f.net.ConfirmDelay = func(string) time.Duration { return time.Hour }
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := f.deployer().Run(ctx, usecase.DeployParams{Plan: p})
	require.ErrorIs(t, err, context.DeadlineExceeded)

	f.net.FailWhen = nil
	f.net.ConfirmDelay = nil
	result, err := f.deployer().Run(context.Background(), usecase.DeployParams{Plan: p})
	require.NoError(t, err)
	assert.Empty(t, result.Settled)
	assert.Equal(t, []string{"A"}, result.Deployed)
	assert.Equal(t, 2, f.creations("A"))
}

func TestDeployPlan_UnknownPendingTransaction(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := domain.NewPlan("single", models.ProtocolV2)
	mustAddUnit(t, p, &models.Unit{Name: "A", Artifact: "A"})

	// a creation sent by an earlier run that never reached the chain
	record, err := f.records.Load(ctx, "anvil", simnet.DefaultChainID)
	require.NoError(t, err)
	lost := common.HexToHash("0xdead")
	require.NoError(t, f.records.Append(ctx, record, record.Next(models.RecordEntry{Kind: models.EntryUnit, Unit: &models.UnitRecord{
		Name:     "A",
		Kind:     models.KindContract,
		Artifact: "A",
		Address:  common.HexToAddress("0x0a"),
		TxHash:   lost,
		Status:   models.UnitPending,
	}})))

	_, err = f.deployer().Run(ctx, usecase.DeployParams{Plan: p})
	assert.ErrorIs(t, err, domain.ErrTransactionPending)
	assert.Contains(t, err.Error(), lost.Hex())
	assert.Empty(t, f.net.Submissions())

	result, err := f.deployer().Run(ctx, usecase.DeployParams{Plan: p, AbandonPending: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, result.Deployed)
	a, _ := result.Record.Unit("A")
	assert.Equal(t, models.UnitDeployed, a.Status)
	assert.NotEqual(t, lost, a.TxHash)
}

func TestDeployPlan_InterruptedWiringIsSettled(t *testing.T) {
	f := newFixture(t)
	installWalletBehaviours(f)
	plan := walletPlan(t, false)
	const vault = "Registry.setVault(address)"
	f.net.ConfirmDelay = func(label string) time.Duration {
		if label == vault {
			return time.Hour
		}
		return 0
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err := f.deployer().Run(ctx, usecase.DeployParams{Plan: plan})
	require.ErrorIs(t, err, context.DeadlineExceeded)

	record, err := f.records.Load(context.Background(), "anvil", simnet.DefaultChainID)
	require.NoError(t, err)
	step, ok := record.PendingWiring()
	require.True(t, ok)
	assert.Equal(t, 2, step.Index)

	f.net.ConfirmDelay = nil
	calls := len(f.net.Submissions())
	result, err := f.deployer().Run(context.Background(), usecase.DeployParams{Plan: plan})
	require.NoError(t, err)
	assert.Equal(t, []string{vault}, result.Settled)
	assert.Equal(t, []int{0, 1, 2}, result.WiringResumed)
	assert.Empty(t, result.WiringApplied)
	assert.Len(t, f.net.Submissions(), calls, "nothing resent")

	applied, _ := result.Record.WiringStep(2)
	assert.Equal(t, models.WiringApplied, applied.Status)
}
