package cli

import (
	"fmt"

	"github.com/alecthomas/kong"

	"github.com/beanbot-go/beanbot/ast"
	"github.com/beanbot-go/beanbot/config"
	"github.com/beanbot-go/beanbot/dedup"
	"github.com/beanbot-go/beanbot/ledger"
	"github.com/beanbot-go/beanbot/loader"
)

type DedupCmd struct {
	Ledger string `help:"Main ledger filename." arg:"" type:"existingfile"`
	File   string `help:"Import filename with candidate entries." arg:"" type:"existingfile"`
}

func (cmd *DedupCmd) Run(ctx *kong.Context, globals *Globals) error {
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
		_, _ = fmt.Fprintf(ctx.Stdout, "%s %s %s\n",
			errorStyle.Render(errorSymbol),
			summarize(m.Imported),
			mutedStyle.Render(fmt.Sprintf("(duplicate, %s)", m.Rule)),
		)
	}
	for _, d := range unique {
		printSuccess(ctx.Stdout, summarize(d))
	}

	printInfof(ctx.Stdout, "%d duplicate(s), %d new entr(y|ies)", len(matches), len(unique))
	return nil
}

// summarize renders a one-line description of an entry for verdict output.
func summarize(d ast.Directive) string {
	if txn, ok := d.(*ast.Transaction); ok {
		desc := txn.Narration
		if txn.Payee != "" {
			desc = fmt.Sprintf("%s | %s", txn.Payee, txn.Narration)
		}
		return fmt.Sprintf("%s %q", ast.DateOf(d), desc)
	}
	return fmt.Sprintf("%s %s", ast.DateOf(d), d.Kind())
}

// loadConfig reads the configuration from the --config YAML file when
// given, otherwise from custom directives in the loaded ledger.
func loadConfig(globals *Globals, l *ledger.Ledger) (config.Config, error) {
	if globals.Config != "" {
		return config.LoadYAML(globals.Config)
	}
	if l != nil {
		return config.FromDirectives(l.Existing())
	}
	return config.Default(), nil
}
