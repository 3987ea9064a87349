package render

import (
	"io"
	"math/big"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/params"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	sectionHeaderStyle = color.New(color.Bold, color.FgHiWhite)
	nameStyle          = color.New(color.FgWhite, color.Bold)
	addressStyle       = color.New(color.FgWhite)
	faintStyle         = color.New(color.Faint)
	kindStyle          = color.New(color.FgMagenta)
	roleStyle          = color.New(color.FgCyan)
	okStyle            = color.New(color.FgGreen)
	pendingStyle       = color.New(color.FgYellow)
	failStyle          = color.New(color.FgRed)
)

var titleCaser = cases.Title(language.English)

// title turns identifiers like "upgrade-manager" into "Upgrade Manager".
func title(s string) string {
	return titleCaser.String(strings.NewReplacer("-", " ", "_", " ").Replace(strings.ToLower(s)))
}

// FormatWarning formats a warning message with the warning icon
func FormatWarning(message string) string {
	return color.New(color.FgYellow).Sprintf("⚠️  %s", message)
}

// FormatError formats an error message with the error icon
func FormatError(message string) string {
	if len(message) > 0 {
		message = strings.ToUpper(message[:1]) + message[1:]
	}
	return color.New(color.FgRed).Sprintf("❌ %s", message)
}

// FormatSuccess formats a success message with the success icon
func FormatSuccess(message string) string {
	return color.New(color.FgGreen).Sprintf("✅ %s", message)
}

// formatEther renders wei as ether with up to 6 decimals.
func formatEther(wei *big.Int) string {
	if wei == nil {
		return "-"
	}
	f := new(big.Float).Quo(new(big.Float).SetInt(wei), new(big.Float).SetInt64(params.Ether))
	s := strings.TrimRight(strings.TrimRight(f.Text('f', 6), "0"), ".")
	return s + " ETH"
}

func formatAddress(addr common.Address) string {
	if addr == (common.Address{}) {
		return faintStyle.Sprint("-")
	}
	return addressStyle.Sprint(addr.Hex())
}

func formatHash(h common.Hash) string {
	if h == (common.Hash{}) {
		return faintStyle.Sprint("-")
	}
	return faintStyle.Sprint(h.Hex())
}

// getRelativePath returns the relative path from current directory
func getRelativePath(path string) string {
	cwd, err := os.Getwd()
	if err != nil {
		return path
	}

	relPath, err := filepath.Rel(cwd, path)
	if err != nil {
		return path
	}

	return relPath
}

// newTable returns a borderless table writer in the house style.
func newTable(out io.Writer, header table.Row) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleLight)
	t.Style().Options.DrawBorder = false
	t.Style().Options.SeparateColumns = false
	t.Style().Options.SeparateRows = false
	t.Style().Box = table.BoxStyle{
		PaddingLeft:      "  ",
		PaddingRight:     " ",
		MiddleHorizontal: "─",
	}
	if header != nil {
		t.AppendHeader(header)
	}
	return t
}
