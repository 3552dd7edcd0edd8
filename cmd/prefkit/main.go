// Package main is the prefkit command line host. It loads the host
// configuration, wires the settings engine over the store files, and
// runs one subcommand against it.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/dshills/prefkit/internal/app"
	"github.com/dshills/prefkit/internal/codec"
	"github.com/dshills/prefkit/internal/exchange"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		configPath  string
		logLevel    string
		showVersion bool
		showHelp    bool
	)

	flag.StringVar(&configPath, "config", "", "Path to host configuration file")
	flag.StringVar(&configPath, "c", "", "Path to host configuration file (shorthand)")
	flag.StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.BoolVar(&showVersion, "v", false, "Show version information (shorthand)")
	flag.BoolVar(&showHelp, "help", false, "Show help message")
	flag.BoolVar(&showHelp, "h", false, "Show help message (shorthand)")

	flag.Usage = usage
	flag.Parse()

	if showHelp {
		flag.Usage()
		return 0
	}
	if showVersion {
		fmt.Printf("prefkit %s\n", version)
		fmt.Printf("Commit: %s\n", commit)
		fmt.Printf("Built: %s\n", date)
		return 0
	}

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		return 2
	}

	if configPath == "" {
		configPath = app.DefaultConfigPath()
	}
	cfg, err := app.LoadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	// One command per process; nothing can usefully edit the store
	// files while it runs.
	cfg.WatchStores = false

	a, err := app.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to initialize: %v\n", err)
		return 1
	}
	defer a.Close()

	if err := dispatch(a, args[0], args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func dispatch(a *app.App, cmd string, args []string) error {
	switch cmd {
	case "get":
		return cmdGet(a, args)
	case "set":
		return cmdSet(a, args)
	case "switch":
		return cmdSwitch(a, args)
	case "export":
		return cmdExport(a)
	case "import":
		return cmdImport(a, args)
	case "show":
		return cmdShow(a)
	default:
		return fmt.Errorf("unknown command %q (try -help)", cmd)
	}
}

func cmdGet(a *app.App, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: prefkit get <panel> <control>")
	}
	fmt.Println(formatValue(a.Engine().Resolve(args[0], args[1])))
	return nil
}

func cmdSet(a *app.App, args []string) error {
	if len(args) != 3 {
		return fmt.Errorf("usage: prefkit set <panel> <control> <value>")
	}
	value, err := parseValue(args[2])
	if err != nil {
		return err
	}

	if err := a.Engine().Registry().Validate(args[0], args[1], value); err != nil {
		return err
	}
	a.Engine().Set(args[0], args[1], value)
	if err := a.SaveStores(); err != nil {
		return err
	}

	fmt.Printf("%s/%s = %s\n", args[0], args[1], formatValue(a.Engine().Resolve(args[0], args[1])))
	return nil
}

func cmdSwitch(a *app.App, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: prefkit switch <on|off>")
	}

	var useAlternate bool
	switch args[0] {
	case "on", "true":
		useAlternate = true
	case "off", "false":
		useAlternate = false
	default:
		return fmt.Errorf("switch takes on or off, got %q", args[0])
	}

	a.Engine().SwitchProfile(useAlternate)
	if err := a.SaveStores(); err != nil {
		return err
	}

	fmt.Printf("active profile: %s\n", a.Engine().ActiveName())
	return nil
}

func cmdExport(a *app.App) error {
	blob, err := a.Pipeline().Export()
	if err != nil {
		return err
	}
	fmt.Println(blob)
	return nil
}

func cmdImport(a *app.App, args []string) error {
	var blob string
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("reading blob from stdin: %w", err)
		}
		blob = strings.TrimSpace(string(data))
	} else {
		blob = args[0]
	}

	if err := a.Pipeline().Import(blob); err != nil {
		return fmt.Errorf("import rejected (%s): %w", exchange.FailureKind(err), err)
	}
	if err := a.SaveStores(); err != nil {
		return err
	}

	fmt.Println("settings imported")
	return nil
}

func cmdShow(a *app.App) error {
	cfg := a.Config()
	eng := a.Engine()

	fmt.Printf("owner:  %s %s\n", cfg.Owner, cfg.OwnerVersion)
	fmt.Printf("active: %s\n", eng.ActiveName())
	fmt.Println("controls:")

	reg := eng.Registry()
	for _, panelKey := range reg.Panels() {
		for _, d := range reg.Panel(panelKey) {
			key := d.PanelKey + "/" + d.ControlKey
			fmt.Printf("  %-28s %-8s %s\n", key, d.Type, formatValue(eng.Resolve(d.PanelKey, d.ControlKey)))
		}
	}
	return nil
}

// parseValue interprets a command line argument as a control value:
// nil, booleans, numbers, a table literal in the exchange grammar, or a
// plain string.
func parseValue(s string) (any, error) {
	switch s {
	case "nil":
		return nil, nil
	case "true":
		return true, nil
	case "false":
		return false, nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f, nil
	}
	if strings.HasPrefix(s, "{") {
		v, err := codec.Deserialize(s)
		if err != nil {
			return nil, fmt.Errorf("parsing value literal: %w", err)
		}
		return v, nil
	}
	return s, nil
}

func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "nil"
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return codec.FormatNumber(val)
	default:
		if text, err := codec.Serialize(v); err == nil {
			return text
		}
		return fmt.Sprintf("%v", v)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "prefkit - portable settings store and exchange\n\n")
	fmt.Fprintf(os.Stderr, "Usage: prefkit [options] <command> [args]\n\n")
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "  get <panel> <control>          Print a control's effective value\n")
	fmt.Fprintf(os.Stderr, "  set <panel> <control> <value>  Write a value and save the stores\n")
	fmt.Fprintf(os.Stderr, "  switch <on|off>                Select the per-entity (on) or global (off) profile\n")
	fmt.Fprintf(os.Stderr, "  export                         Print a settings blob for sharing\n")
	fmt.Fprintf(os.Stderr, "  import <blob | ->              Apply a settings blob ('-' reads stdin)\n")
	fmt.Fprintf(os.Stderr, "  show                           List controls with their effective values\n\n")
	fmt.Fprintf(os.Stderr, "Options:\n")
	flag.PrintDefaults()
	fmt.Fprintf(os.Stderr, "\nExamples:\n")
	fmt.Fprintf(os.Stderr, "  prefkit set sound volume 70\n")
	fmt.Fprintf(os.Stderr, "  prefkit get sound volume\n")
	fmt.Fprintf(os.Stderr, "  prefkit export > settings.blob\n")
	fmt.Fprintf(os.Stderr, "  prefkit import - < settings.blob\n")
}
