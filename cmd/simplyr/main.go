package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/simplyr/simplyr"
	"github.com/urfave/cli"
)

const version = "0.1.0"

func fatal(err error) {
	_, _ = fmt.Fprintf(os.Stderr, "[simplyr] %v\n", err)
	os.Exit(1)
}

func main() {
	app := newApp(os.Stdout, os.Stderr)

	err := app.Run(os.Args)
	if err != nil {
		fatal(err)
	}
}

// newApp creates the command line application. Matches are written to
// stdout, log output goes to logOut.
func newApp(stdout, logOut io.Writer) *cli.App {
	app := cli.NewApp()

	app.Version = version
	app.Name = "simplyr"
	app.Usage = "clear a local energy market with the pay-as-bid rule"
	app.ArgsUsage = "<orders.json>"
	app.Writer = stdout
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "configfile",
			Value: simplyr.DefaultConfigFilename,
			Usage: "path to an ini style configuration file",
		},
		cli.StringFlag{
			Name: "debuglevel, d",
			Usage: "logging level for all subsystems, or " +
				"<subsystem>=<level>,... -- use show to list " +
				"available subsystems",
		},
		cli.Float64Flag{
			Name:  "energyeps",
			Usage: "the smallest energy amount in kWh that is matched",
		},
		cli.Float64Flag{
			Name:  "minenergy",
			Usage: "ignore orders with less energy in kWh than this",
		},
		cli.StringFlag{
			Name:  "timeslot",
			Usage: "only clear orders of the given time slot",
		},
		cli.BoolFlag{
			Name:  "byslot",
			Usage: "clear every time slot as a separate batch",
		},
		cli.BoolFlag{
			Name:  "noselftrade",
			Usage: "never match a bid and an ask of the same actor",
		},
		cli.StringFlag{
			Name:  "out",
			Usage: "write the matches to this file instead of stdout",
		},
		cli.StringFlag{
			Name:  "report",
			Usage: "write the settlement report to this file",
		},
		cli.StringFlag{
			Name:  "gridfees",
			Usage: "path to a JSON grid fee matrix",
		},
		cli.StringFlag{
			Name: "metricsfile",
			Usage: "write prometheus metrics to this file in the " +
				"text exposition format",
		},
	}
	app.Action = func(ctx *cli.Context) error {
		return clearMarket(ctx, logOut)
	}

	return app
}

func clearMarket(ctx *cli.Context, logOut io.Writer) error {
	if ctx.NArg() != 1 {
		return cli.ShowAppHelp(ctx)
	}

	cfg := simplyr.DefaultConfig()
	err := simplyr.LoadConfig(ctx.String("configfile"), cfg)
	if err != nil {
		return err
	}
	applyFlags(ctx, cfg)

	logRegistry := simplyr.SetupLoggers(logOut)
	if cfg.DebugLevel == "show" {
		_, err := fmt.Fprintf(ctx.App.Writer, "Supported subsystems: "+
			"%v\n", strings.Join(logRegistry.SupportedSubsystems(), " "))
		return err
	}

	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := logRegistry.SetLogLevels(cfg.DebugLevel); err != nil {
		return err
	}

	market, err := simplyr.NewMarket(cfg)
	if err != nil {
		return err
	}

	return market.Run(
		context.Background(), ctx.Args().First(), ctx.App.Writer,
	)
}

// applyFlags overwrites the config with all flags set on the command line.
func applyFlags(ctx *cli.Context, cfg *simplyr.Config) {
	if ctx.IsSet("configfile") {
		cfg.ConfigFile = ctx.String("configfile")
	}
	if ctx.IsSet("debuglevel") {
		cfg.DebugLevel = ctx.String("debuglevel")
	}
	if ctx.IsSet("energyeps") {
		cfg.EnergyEpsilon = ctx.Float64("energyeps")
	}
	if ctx.IsSet("minenergy") {
		cfg.MinEnergy = ctx.Float64("minenergy")
	}
	if ctx.IsSet("timeslot") {
		cfg.TimeSlot = ctx.String("timeslot")
	}
	if ctx.IsSet("byslot") {
		cfg.BySlot = ctx.Bool("byslot")
	}
	if ctx.IsSet("noselftrade") {
		cfg.NoSelfTrade = ctx.Bool("noselftrade")
	}
	if ctx.IsSet("out") {
		cfg.OutputFile = ctx.String("out")
	}
	if ctx.IsSet("report") {
		cfg.ReportFile = ctx.String("report")
	}
	if ctx.IsSet("gridfees") {
		cfg.GridFeesFile = ctx.String("gridfees")
	}
	if ctx.IsSet("metricsfile") {
		cfg.Prometheus.Active = true
		cfg.Prometheus.TextfilePath = ctx.String("metricsfile")
	}
}
