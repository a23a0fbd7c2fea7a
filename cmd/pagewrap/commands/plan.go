package commands

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/pagewrap/internal/config"
)

// PlanCmd implements the 'plan' command.
type PlanCmd struct {
	Changed string `name:"changed" help:"Plan the rebuild caused by a change to this path" type:"path"`
}

func (c *PlanCmd) Run(_ *Global, root *CLI) error {
	cfg, logger, err := loadConfig(root)
	if err != nil {
		return err
	}
	return RunPlan(cfg, c.Changed, logger, os.Stdout)
}

// RunPlan prints the decided scope and the source to destination mapping of
// every file it covers. Nothing is read or written below the content root.
func RunPlan(cfg *config.Config, changed string, logger *slog.Logger, out io.Writer) error {
	p := NewProject(cfg, logger, false)
	s := p.DecideChanged(changed)
	files, err := p.Assembler.Plan(s)
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintf(out, "Scope: %s (%s)\n", s, s.Reason)

	table := newTable(out, "Source", "Destination")
	for _, f := range files {
		table.Append([]string{f.RelPath, rel(cfg.BaseDir(), p.Assembler.DestPath(f))})
	}
	table.SetFooter([]string{fmt.Sprintf("Total Files %d", len(files)), ""})
	table.Render()
	return nil
}

// rel shortens path for display when it lies below base.
func rel(base, path string) string {
	if base == "" {
		return path
	}
	r, err := filepath.Rel(base, path)
	if err != nil || r == ".." || strings.HasPrefix(r, ".."+string(filepath.Separator)) {
		return path
	}
	return r
}
