package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"

	"git.home.luguber.info/inful/pagewrap/internal/config"
	ferrors "git.home.luguber.info/inful/pagewrap/internal/foundation/errors"
	"git.home.luguber.info/inful/pagewrap/internal/journal"
)

// HistoryCmd implements the 'history' command.
type HistoryCmd struct {
	Limit int    `short:"n" help:"Number of passes to show" default:"20"`
	Pass  string `help:"Show the files written by this pass instead"`
	Keep  int    `help:"Delete all but the newest N passes before listing"`
}

func (h *HistoryCmd) Run(_ *Global, root *CLI) error {
	cfg, _, err := loadConfig(root)
	if err != nil {
		return err
	}
	return RunHistory(context.Background(), cfg, h, os.Stdout)
}

// RunHistory prints journal contents as a table.
func RunHistory(ctx context.Context, cfg *config.Config, h *HistoryCmd, out io.Writer) error {
	if cfg.Journal.Path == "" {
		return ferrors.ConfigError("journal is not configured (set journal.path)").UserAction().Build()
	}
	j, err := journal.Open(cfg.Journal.Path)
	if err != nil {
		return err
	}
	defer func() { _ = j.Close() }()

	if h.Keep > 0 {
		n, err := j.Prune(ctx, h.Keep)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(out, "Pruned %d pass(es)\n", n)
	}

	if h.Pass != "" {
		outputs, err := j.Outputs(ctx, h.Pass)
		if err != nil {
			return err
		}
		table := newTable(out, "Source", "Destination", "Fingerprint")
		for _, o := range outputs {
			table.Append([]string{rel(cfg.BaseDir(), o.Source), rel(cfg.BaseDir(), o.Dest), o.Fingerprint})
		}
		table.Render()
		return nil
	}

	passes, err := j.Recent(ctx, h.Limit)
	if err != nil {
		return err
	}
	table := newTable(out, "Pass", "Started", "Scope", "Status", "Files", "Missing", "Duration", "Error")
	for _, p := range passes {
		table.Append([]string{
			p.ID,
			p.Started.Local().Format(time.DateTime),
			p.Scope,
			p.Status,
			strconv.Itoa(p.Files),
			strconv.Itoa(p.MissingIncludes),
			p.Finished.Sub(p.Started).Round(time.Millisecond).String(),
			p.Error,
		})
	}
	table.Render()
	return nil
}

func newTable(out io.Writer, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(out)
	table.SetHeader(header)
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetAutoWrapText(false)
	return table
}
