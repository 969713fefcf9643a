package cli

import "github.com/robinvdvleuten/saldo/ledger"

// Globals defines global flags available to all commands.
type Globals struct {
	Data            string      `help:"Dataset file to load." short:"f" type:"path" default:"saldo.toml" env:"SALDO_DATA"`
	Today           ledger.Date `help:"Date reports and limits are relative to (YYYY-MM-DD, default today)." env:"SALDO_TODAY"`
	Telemetry       bool        `help:"Show timing telemetry for operations."`
	MetricsTextfile string      `help:"Write Prometheus metrics of the run to this file." type:"path" placeholder:"FILE"`
	Verbose         bool        `help:"Log operational details to stderr." short:"v"`
}

type Commands struct {
	Globals

	Report ReportCmd `cmd:"" help:"Generate reports defined in the dataset."`
	Tree   TreeCmd   `cmd:"" help:"Show and edit the category tree."`
	Rate   RateCmd   `cmd:"" help:"Resolve the exchange rate between two currencies."`
	Check  CheckCmd  `cmd:"" help:"Load and validate a dataset."`
	Limit  LimitCmd  `cmd:"" help:"List the recent transactions window."`
	Doctor DoctorCmd `cmd:"" help:"Doctor utilities for debugging datasets."`
}
