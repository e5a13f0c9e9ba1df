package cli

import (
	"fmt"

	"github.com/alecthomas/kong"

	"github.com/beanbot-go/beanbot/ast"
	"github.com/beanbot-go/beanbot/dedup"
	"github.com/beanbot-go/beanbot/ledger"
	"github.com/beanbot-go/beanbot/loader"
	"github.com/beanbot-go/beanbot/session"
)

type ImportCmd struct {
	Ledger string `help:"Main ledger filename." arg:"" type:"existingfile"`
	File   string `help:"Import filename with candidate entries." arg:"" type:"existingfile"`
	Yes    bool   `help:"Commit without asking for confirmation."`
}

func (cmd *ImportCmd) Run(ctx *kong.Context, globals *Globals) error {
	runCtx, report := telemetryContext(globals, ctx)
	defer report()

	l := ledger.New(cmd.Ledger)
	if err := l.Load(runCtx); err != nil {
		return err
	}

	imported, err := loader.New().Load(runCtx, cmd.File)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(globals, l)
	if err != nil {
		return err
	}

	dd, err := dedup.NewChained(cfg)
	if err != nil {
		return err
	}

	matches, unique := dd.Partition(runCtx, l.Existing(), imported.Directives)
	for _, m := range matches {
		printInfof(ctx.Stdout, "skipping %s %s",
			summarize(m.Imported),
			mutedStyle.Render(fmt.Sprintf("(duplicate, %s)", m.Rule)),
		)
	}

	if len(unique) == 0 {
		printInfof(ctx.Stdout, "nothing to import")
		return nil
	}

	s := session.New(l)
	for _, d := range unique {
		d = ast.Clone(d)
		// The entries were parsed from the import file; drop that source
		// location so they are appended to the ledger instead.
		delete(d.Meta(), ast.MetaFilename)
		delete(d.Meta(), ast.MetaLineno)

		id, err := s.Add(d)
		if err != nil {
			s.Rollback()
			return fmt.Errorf("failed to stage %s: %w", summarize(d), err)
		}
		printSuccess(ctx.Stdout, fmt.Sprintf("%s %s", summarize(d), mutedStyle.Render(id)))
	}

	if !cmd.Yes {
		ok, err := promptYesNo(fmt.Sprintf("Commit %d new entr(y|ies) to %s?", len(unique), cmd.Ledger))
		if err != nil {
			s.Rollback()
			return err
		}
		if !ok {
			s.Rollback()
			printInfof(ctx.Stdout, "import aborted, no changes written")
			return nil
		}
	}

	if err := s.Commit(runCtx); err != nil {
		return err
	}

	printSuccess(ctx.Stdout, fmt.Sprintf("Imported %d entr(y|ies) into %s", len(unique), cmd.Ledger))
	return nil
}
