package domain

import "net"

// DevnetInstance is a local anvil node backing a devnet network.
type DevnetInstance struct {
	Name    string `json:"name"`
	Port    string `json:"port"`
	ChainID uint64 `json:"chainId,omitempty"`
	ForkURL string `json:"forkUrl,omitempty"`
	PidFile string `json:"pidFile"`
	LogFile string `json:"logFile"`
}

// RPCURL is the local endpoint the node listens on.
func (i *DevnetInstance) RPCURL() string {
	return "http://" + net.JoinHostPort("127.0.0.1", i.Port)
}

// DevnetStatus represents the status of a devnet node
type DevnetStatus struct {
	Running    bool   `json:"running"`
	PID        int    `json:"pid,omitempty"`
	RPCURL     string `json:"rpcUrl,omitempty"`
	LogFile    string `json:"logFile"`
	RPCHealthy bool   `json:"rpcHealthy"`
	ChainID    uint64 `json:"chainId,omitempty"`
	Error      string `json:"error,omitempty"`
}
