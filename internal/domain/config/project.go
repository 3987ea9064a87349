package config

// ProjectFile is the wdeploy.toml project configuration.
//
//	[networks.sepolia]
//	rpc_url = "${SEPOLIA_RPC_URL}"
//	chain_id = 11155111
//
//	[roles]
//	deployer = "${PRIVATE_KEY}"
//	upgrade_manager = "${PRIVATE_KEY_1}"
type ProjectFile struct {
	Networks  map[string]NetworkFile `toml:"networks"`
	Roles     map[string]string      `toml:"roles"`
	Artifacts ArtifactsFile          `toml:"artifacts"`
	Gas       GasFile                `toml:"gas"`
	Deploy    DeployFile             `toml:"deploy"`
}

// NetworkFile is one [networks.<name>] table.
type NetworkFile struct {
	RPCURL  string `toml:"rpc_url"`
	ChainID uint64 `toml:"chain_id"`
	Devnet  bool   `toml:"devnet"`
}

// ArtifactsFile is the [artifacts] table.
type ArtifactsFile struct {
	Dirs        []string `toml:"dirs"`
	BeaconProxy string   `toml:"beacon_proxy"`
}

// GasFile is the [gas] table; values are decimal wei strings.
type GasFile struct {
	FeeCap string `toml:"fee_cap"`
	TipCap string `toml:"tip_cap"`
}

// DeployFile is the [deploy] table.
type DeployFile struct {
	Concurrency     int    `toml:"concurrency"`
	ConfirmTimeout  string `toml:"confirm_timeout"`
	PollInterval    string `toml:"poll_interval"`
	SaltStrategy    string `toml:"salt_strategy"`
	ProtocolVersion string `toml:"protocol_version"`
	AddressBook     string `toml:"address_book"`
}
