package cli

// Globals defines global flags available to all commands.
type Globals struct {
	Config    string `help:"Path to a YAML configuration file." type:"existingfile" optional:""`
	Telemetry bool   `help:"Show timing telemetry for operations."`
}

type Commands struct {
	Globals

	Check  CheckCmd  `cmd:"" help:"Load a ledger file and report parse errors and unidentified entries."`
	Dedup  DedupCmd  `cmd:"" help:"Partition an import file into duplicates and new entries."`
	Import ImportCmd `cmd:"" help:"Deduplicate an import file and commit the new entries to the ledger."`
}
