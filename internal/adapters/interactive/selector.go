package interactive

import (
	"context"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/manifoldco/promptui"
	"github.com/sahilm/fuzzy"

	"github.com/trebuchet-org/wallet-deployer/internal/config"
	"github.com/trebuchet-org/wallet-deployer/internal/domain/models"
	"github.com/trebuchet-org/wallet-deployer/internal/usecase"
)

// SelectorAdapter handles interactive selection
type SelectorAdapter struct {
	config *config.RuntimeConfig
}

// NewSelectorAdapter creates a new selector adapter
func NewSelectorAdapter(cfg *config.RuntimeConfig) *SelectorAdapter {
	return &SelectorAdapter{config: cfg}
}

// SelectUnit selects a recorded unit from a list
func (s *SelectorAdapter) SelectUnit(ctx context.Context, units []*models.UnitRecord, prompt string) (*models.UnitRecord, error) {
	if len(units) == 0 {
		return nil, fmt.Errorf("no units provided for selection")
	}

	// In non-interactive mode, we can't select
	if s.config.NonInteractive {
		names := make([]string, len(units))
		for i, u := range units {
			names[i] = u.Name
		}
		return nil, fmt.Errorf("interactive selection not available in non-interactive mode (candidates: %s)", strings.Join(names, ", "))
	}

	if len(units) == 1 {
		return units[0], nil
	}

	options := formatUnitOptions(units)

	templates := &promptui.SelectTemplates{
		Label:    "{{ . }}",
		Active:   "▸ {{ . | cyan }}",
		Inactive: "  {{ . | faint }}",
		Selected: "✓ {{ . | green }}",
		Help:     color.New(color.FgYellow).Sprint("Use arrow keys to navigate, Enter to select"),
	}

	promptSelect := promptui.Select{
		Label:             prompt,
		Items:             options,
		Templates:         templates,
		Size:              10,
		StartInSearchMode: true,
		Searcher:          createFuzzySearchFunc(options),
	}

	index, _, err := promptSelect.Run()
	if err != nil {
		return nil, fmt.Errorf("selection cancelled: %w", err)
	}

	return units[index], nil
}

// formatUnitOptions creates display strings like "Registry [uups-proxy] (0x…)"
func formatUnitOptions(units []*models.UnitRecord) []string {
	options := make([]string, len(units))
	for i, u := range units {
		name := color.New(color.FgWhite, color.Bold).Sprint(u.Name)
		kind := color.New(color.FgYellow).Sprintf("[%s]", u.Kind)
		addr := color.New(color.FgBlue).Sprint(u.Address.Hex())
		options[i] = fmt.Sprintf("%s %s (%s)", name, kind, addr)
	}
	return options
}

// createFuzzySearchFunc creates a fuzzy search function for promptui
func createFuzzySearchFunc(items []string) func(input string, index int) bool {
	return func(input string, index int) bool {
		// Empty search shows all items
		if input == "" {
			return true
		}

		input = strings.ToLower(input)
		item := strings.ToLower(items[index])

		if strings.Contains(item, input) {
			return true
		}

		pattern := fuzzy.Find(input, []string{item})
		return len(pattern) > 0
	}
}

// Ensure the adapter implements the interface
var _ usecase.UnitSelector = (*SelectorAdapter)(nil)
