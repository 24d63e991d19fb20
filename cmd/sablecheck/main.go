package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/davecgh/go-spew/spew"
	"github.com/mattn/go-isatty"
	"github.com/peterh/liner"
	"github.com/sablelang/sable/internal/config"
	"github.com/sablelang/sable/internal/diagnostics"
	"github.com/sablelang/sable/internal/dispatch"
	"github.com/sablelang/sable/internal/loader"
	"github.com/sablelang/sable/internal/prettyprinter"
	"github.com/sablelang/sable/internal/typesystem"
)

const usage = `sablecheck - call checker for Sable world files

Usage:
  sablecheck [options] <world.yaml> [world.yaml ...]
  sablecheck -i [world.yaml]
  cat world.yaml | sablecheck

A world file declares classes, signatures, and the calls to check. Each
world is checked against its own symbol table; diagnostics print in
location order and the exit status is 1 when any error was reported.

Options:
  -c, --config <file>   load checker options (strict keyword args,
                        suggestion limits, default strictness)
  -i, --interactive     open a query console over the loaded world
  -no-color, --no-color disable colored output
  -debug, --debug       dump resolved dispatch internals per call
  -help, --help         show this help
`

type cliOptions struct {
	configPath  string
	noColor     bool
	interactive bool
	debug       bool
	worlds      []string
}

func handleHelp() bool {
	if len(os.Args) < 2 {
		return false
	}
	if os.Args[1] != "-help" && os.Args[1] != "--help" && os.Args[1] != "help" {
		return false
	}
	fmt.Print(usage)
	return true
}

func parseArgs() (*cliOptions, error) {
	opts := &cliOptions{}
	args := os.Args[1:]
	for i := 0; i < len(args); i++ {
		switch arg := args[i]; arg {
		case "-c", "--config":
			if i+1 >= len(args) {
				return nil, fmt.Errorf("%s requires a file argument", arg)
			}
			i++
			opts.configPath = args[i]
		case "-i", "--interactive":
			opts.interactive = true
		case "-no-color", "--no-color":
			opts.noColor = true
		case "-debug", "--debug":
			opts.debug = true
		default:
			if strings.HasPrefix(arg, "-") {
				return nil, fmt.Errorf("unknown option %s (see --help)", arg)
			}
			opts.worlds = append(opts.worlds, arg)
		}
	}
	return opts, nil
}

// readWorlds loads the named world files, or a single world from stdin
// when no files were given and input is piped in.
func readWorlds(paths []string) ([]*loader.World, error) {
	if len(paths) == 0 {
		stat, _ := os.Stdin.Stat()
		if (stat.Mode() & os.ModeCharDevice) != 0 {
			return nil, nil
		}
		input, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}
		w, err := loader.Parse(input, "<stdin>")
		if err != nil {
			return nil, err
		}
		return []*loader.World{w}, nil
	}
	worlds := make([]*loader.World, 0, len(paths))
	for _, path := range paths {
		w, err := loader.Load(path)
		if err != nil {
			return nil, err
		}
		worlds = append(worlds, w)
	}
	return worlds, nil
}

func buildWorld(w *loader.World, cfg *config.Config) *loader.Result {
	if w.Strictness == "" {
		w.Strictness = cfg.DefaultStrictness
	}
	res, err := loader.Build(w)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
	return res
}

// checkWorld runs every query of one world and prints its diagnostics.
func checkWorld(w *loader.World, cfg *config.Config, color, debug bool) (queries, errors, warnings int) {
	res := buildWorld(w, cfg)
	d := dispatch.New(res.Table, res.Source, cfg.DispatchOptions())
	printer := prettyprinter.New(res.Source, color)

	var diags []diagnostics.Diagnostic
	for _, q := range res.Queries {
		out := d.Call(q.Args)
		if debug {
			fmt.Printf("%s => %s\n", q.Rendered, typesystem.Show(res.Table, out.ReturnType))
			spew.Fdump(os.Stderr, out.Main)
		}
		diags = append(diags, out.AllDiags()...)
	}
	for _, dg := range diags {
		switch dg.Severity {
		case diagnostics.SeverityError:
			errors++
		case diagnostics.SeverityWarning:
			warnings++
		}
	}
	printer.Print(os.Stdout, diags)
	return len(res.Queries), errors, warnings
}

const consolePrompt = "sable> "

func runConsole(worlds []*loader.World, cfg *config.Config, color, debug bool) {
	var w *loader.World
	switch len(worlds) {
	case 0:
		w = &loader.World{}
	case 1:
		w = worlds[0]
	default:
		fmt.Fprintln(os.Stderr, "Error: interactive mode takes at most one world file")
		os.Exit(1)
	}
	res := buildWorld(w, cfg)
	d := dispatch.New(res.Table, res.Source, cfg.DispatchOptions())
	printer := prettyprinter.New(res.Source, color)

	// Batch queries run first so the console starts from a checked state.
	for _, q := range res.Queries {
		out := d.Call(q.Args)
		printer.Print(os.Stdout, out.AllDiags())
	}

	l := liner.NewLiner()
	defer l.Close()
	l.SetCtrlCAborts(true)

	fmt.Println("Sable query console. Calls look like User.find(Integer); :help lists commands.")
	for {
		line, err := l.Prompt(consolePrompt)
		if err == liner.ErrPromptAborted {
			fmt.Println()
			continue
		}
		if err == io.EOF {
			fmt.Println()
			return
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading line: %s\n", err)
			return
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		l.AppendHistory(line)
		switch {
		case line == ":quit" || line == ":exit" || line == "exit" || line == "quit":
			return
		case line == ":help":
			fmt.Println("  recv.method(args)      check a call and print its type")
			fmt.Println("  :type <expr>           evaluate a type expression")
			fmt.Println("  :quit                  leave the console")
		case strings.HasPrefix(line, ":type "):
			expr := strings.TrimSpace(strings.TrimPrefix(line, ":type "))
			t, err := loader.ParseType(res.Table, expr)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %s\n", err)
				continue
			}
			fmt.Printf("=> %s\n", typesystem.Show(res.Table, t))
		case strings.HasPrefix(line, ":"):
			fmt.Fprintf(os.Stderr, "Unknown command %s (:help lists commands)\n", line)
		default:
			consoleQuery(res, d, printer, line, debug)
		}
	}
}

func consoleQuery(res *loader.Result, d *dispatch.Dispatcher, printer *prettyprinter.Printer, line string, debug bool) {
	decl, err := loader.ParseQueryLine(line)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		return
	}
	decl.File = "console.sable"
	q, err := res.AddQuery(decl)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		return
	}
	out := d.Call(q.Args)
	printer.Print(os.Stdout, out.AllDiags())
	fmt.Printf("=> %s\n", typesystem.Show(res.Table, out.ReturnType))
	if debug {
		spew.Fdump(os.Stderr, out.Main)
	}
}

func main() {
	// Catch panics and show user-friendly error
	defer func() {
		if r := recover(); r != nil {
			// Print stack trace for debugging
			if os.Getenv("DEBUG") == "1" {
				panic(r) // Re-panic to get stack trace
			}
			fmt.Fprintf(os.Stderr, "Internal error: %v\n", r)
			fmt.Fprintln(os.Stderr, "This is a bug. Please report it.")
			os.Exit(1)
		}
	}()

	if handleHelp() {
		return
	}

	opts, err := parseArgs()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}

	cfg := config.Default()
	if opts.configPath != "" {
		cfg, err = config.Load(opts.configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
			os.Exit(1)
		}
	}

	color := !opts.noColor &&
		(isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()))

	worlds, err := readWorlds(opts.worlds)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}

	if opts.interactive {
		runConsole(worlds, cfg, color, opts.debug)
		return
	}

	if len(worlds) == 0 {
		fmt.Fprintf(os.Stderr, "Usage: %s <world.yaml> or pipe from stdin\n", os.Args[0])
		os.Exit(1)
	}

	queries, errors, warnings := 0, 0, 0
	for _, w := range worlds {
		q, e, wn := checkWorld(w, cfg, color, opts.debug)
		queries += q
		errors += e
		warnings += wn
	}
	fmt.Printf("checked %d queries: %d errors, %d warnings\n", queries, errors, warnings)
	if errors > 0 {
		os.Exit(1)
	}
}
