package fs

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/trebuchet-org/wallet-deployer/internal/domain"
	"github.com/trebuchet-org/wallet-deployer/internal/domain/config"
	"github.com/trebuchet-org/wallet-deployer/internal/domain/models"
	"github.com/trebuchet-org/wallet-deployer/internal/usecase"
)

// artifactFile covers both Hardhat ("bytecode": "0x..") and Foundry
// ("bytecode": {"object": "0x.."}) output.
type artifactFile struct {
	ContractName string          `json:"contractName"`
	ABI          json.RawMessage `json:"abi"`
	Bytecode     json.RawMessage `json:"bytecode"`
}

func (a *artifactFile) creationCode() ([]byte, error) {
	if len(a.Bytecode) == 0 {
		return nil, nil
	}
	var hex string
	if err := json.Unmarshal(a.Bytecode, &hex); err != nil {
		var obj struct {
			Object string `json:"object"`
		}
		if err := json.Unmarshal(a.Bytecode, &obj); err != nil {
			return nil, fmt.Errorf("unrecognised bytecode field")
		}
		hex = obj.Object
	}
	if hex == "" || hex == "0x" {
		return nil, nil
	}
	if !strings.HasPrefix(hex, "0x") {
		hex = "0x" + hex
	}
	if strings.Contains(hex, "__") {
		return nil, fmt.Errorf("bytecode has unlinked library placeholders")
	}
	return hexutil.Decode(hex)
}

// ArtifactStoreAdapter indexes compiled artifacts under the configured
// directories. Names are looked up as "Name" or "path/Name.sol:Name".
type ArtifactStoreAdapter struct {
	dirs []string

	once  sync.Once
	err   error
	index map[string][]string
}

// NewArtifactStoreAdapter creates a new artifact store
func NewArtifactStoreAdapter(cfg *config.RuntimeConfig) *ArtifactStoreAdapter {
	return &ArtifactStoreAdapter{dirs: cfg.Artifacts.Dirs}
}

func (s *ArtifactStoreAdapter) build() {
	s.index = make(map[string][]string)
	for _, dir := range s.dirs {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			continue
		}
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				// Hardhat build info and Foundry caches are not artifacts.
				switch d.Name() {
				case "build-info", "cache":
					return filepath.SkipDir
				}
				return nil
			}
			name := d.Name()
			if !strings.HasSuffix(name, ".json") || strings.HasSuffix(name, ".dbg.json") {
				return nil
			}
			contract := strings.TrimSuffix(name, ".json")
			s.index[contract] = append(s.index[contract], path)

			// path/Name.sol/Name.json is addressable as Name.sol:Name.
			if parent := filepath.Base(filepath.Dir(path)); strings.HasSuffix(parent, ".sol") {
				rel, _ := filepath.Rel(dir, filepath.Dir(path))
				s.index[filepath.ToSlash(rel)+":"+contract] = []string{path}
			}
			return nil
		})
		if err != nil {
			s.err = fmt.Errorf("failed to index artifacts in %s: %w", dir, err)
			return
		}
	}
}

// Load resolves an artifact by name.
func (s *ArtifactStoreAdapter) Load(ctx context.Context, name string) (*models.Artifact, error) {
	s.once.Do(s.build)
	if s.err != nil {
		return nil, s.err
	}

	paths := s.index[name]
	switch len(paths) {
	case 0:
		return nil, fmt.Errorf("%w: %s (searched %s)", domain.ErrArtifactNotFound, name, strings.Join(s.dirs, ", "))
	case 1:
	default:
		sorted := append([]string(nil), paths...)
		sort.Strings(sorted)
		return nil, fmt.Errorf("artifact %s is ambiguous, use Path.sol:%s (found %s)", name, name, strings.Join(sorted, ", "))
	}

	data, err := os.ReadFile(paths[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact: %w", err)
	}
	var file artifactFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse artifact %s: %w", paths[0], err)
	}
	code, err := file.creationCode()
	if err != nil {
		return nil, fmt.Errorf("artifact %s: %w", paths[0], err)
	}

	displayName := file.ContractName
	if displayName == "" {
		displayName = name
		if i := strings.LastIndex(name, ":"); i >= 0 {
			displayName = name[i+1:]
		}
	}
	return &models.Artifact{
		Name:     displayName,
		Path:     paths[0],
		Bytecode: code,
		ABI:      file.ABI,
	}, nil
}

// Ensure the adapter implements the interface
var _ usecase.ArtifactStore = (*ArtifactStoreAdapter)(nil)
