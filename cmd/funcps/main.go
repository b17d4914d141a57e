// Command funcps is a plain os.Args-driven multi-subcommand CLI over the
// funcps package, in the style of
// _examples/funvibe-funxy/pkg/cli/entry.go and cmd/funxy/main.go: no
// flag-parsing framework, hand-rolled usage strings, os.Exit(1) on error.
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	funcps "github.com/funvibe/funcps"
	"github.com/funvibe/funcps/internal/checkpoint"
	"github.com/funvibe/funcps/internal/config"
	"github.com/funvibe/funcps/internal/transport"
	"github.com/funvibe/funcps/internal/value"
	"github.com/funvibe/funcps/internal/wire"
	"github.com/funvibe/funcps/pkg/cpscli"
)

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: %s <command> [args...]

Commands:
  compile [name]             compile a registered demo function (all, if name omitted)
  run <name> [args...]       compile and run a registered demo function to completion
  resume <id>                resume a checkpointed run by ID
  checkpoint list [name]     list pending checkpoints, optionally filtered by function
  checkpoint rm <id>         delete a pending checkpoint
  serve <addr>                serve CheckpointService over gRPC at addr

Registered demo functions: %v
`, os.Args[0], cpscli.Names())
}

func loadConfig() *config.Config {
	path, err := config.FindConfig(".")
	if err != nil {
		fmt.Fprintln(os.Stderr, "funcps:", err)
		os.Exit(1)
	}
	if path == "" {
		return &config.Config{Checkpoint: config.CheckpointConfig{Path: "funcps-checkpoints.db"}, Color: "auto"}
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "funcps:", err)
		os.Exit(1)
	}
	return cfg
}

func openStore(cfg *config.Config) *checkpoint.Store {
	store, err := checkpoint.Open(cfg.Checkpoint.Path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "funcps:", err)
		os.Exit(1)
	}
	return store
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cfg := loadConfig()
	printer := cpscli.NewPrinter(os.Stdout, cfg.Color)

	switch os.Args[1] {
	case "compile":
		cmdCompile(printer, os.Args[2:])
	case "run":
		cmdRun(printer, cfg, os.Args[2:])
	case "resume":
		cmdResume(printer, cfg, os.Args[2:])
	case "checkpoint":
		cmdCheckpoint(printer, cfg, os.Args[2:])
	case "serve":
		cmdServe(printer, cfg, os.Args[2:])
	default:
		usage()
		os.Exit(1)
	}
}

func cmdCompile(printer *cpscli.Printer, args []string) {
	names := args
	if len(names) == 0 {
		names = cpscli.Names()
	}
	for _, n := range names {
		demo, ok := cpscli.Lookup(n)
		if !ok {
			printer.Error(n, fmt.Errorf("no such demo function"))
			os.Exit(1)
		}
		compiled := funcps.Compile(demo.Func, demo.Markers...)
		for _, e := range compiled.Errors {
			printer.Error(n, e)
		}
		if compiled.Program == nil {
			os.Exit(1)
		}
		printer.Success(fmt.Sprintf("compiled %s", cpscli.Describe(n)))
	}
}

func cmdRun(printer *cpscli.Printer, cfg *config.Config, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: funcps run <name> [args...]")
		os.Exit(1)
	}
	n := args[0]
	demo, ok := cpscli.Lookup(n)
	if !ok {
		printer.Error(n, fmt.Errorf("no such demo function"))
		os.Exit(1)
	}
	compiled := funcps.Compile(demo.Func, demo.Markers...)
	for _, e := range compiled.Errors {
		printer.Error(n, e)
	}
	if compiled.Program == nil {
		os.Exit(1)
	}

	parsed := make([]value.Object, 0, len(args)-1)
	for _, a := range args[1:] {
		parsed = append(parsed, parseArg(a))
	}
	result := compiled.Run(parsed...)
	printer.Success(fmt.Sprintf("%s -> %s", n, result.Inspect()))
}

func cmdResume(printer *cpscli.Printer, cfg *config.Config, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: funcps resume <id>")
		os.Exit(1)
	}
	id := args[0]
	store := openStore(cfg)
	defer store.Close()

	ctx := context.Background()
	_, _, found, err := store.Load(ctx, id)
	if err != nil {
		fmt.Fprintln(os.Stderr, "funcps:", err)
		os.Exit(1)
	}
	if !found {
		fmt.Fprintf(os.Stderr, "funcps: no checkpoint %s\n", id)
		os.Exit(1)
	}

	listing, err := store.List(ctx, "")
	if err != nil {
		fmt.Fprintln(os.Stderr, "funcps:", err)
		os.Exit(1)
	}
	var fnName string
	for _, l := range listing {
		if l.ID == id {
			fnName = l.FuncName
		}
	}
	demo, ok := cpscli.Lookup(fnName)
	if !ok {
		fmt.Fprintf(os.Stderr, "funcps: checkpoint %s belongs to unknown function %s\n", id, fnName)
		os.Exit(1)
	}
	compiled := funcps.Compile(demo.Func, demo.Markers...)
	if compiled.Program == nil {
		fmt.Fprintf(os.Stderr, "funcps: %s no longer compiles\n", fnName)
		os.Exit(1)
	}

	cp := checkpoint.Resume(store, fnName, id)
	result, err := cp.Run(ctx, compiled.Program.Invoke, compiled.EntryName, nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, "funcps:", err)
		os.Exit(1)
	}
	printer.Success(fmt.Sprintf("%s (resumed %s) -> %s", fnName, id, result.Inspect()))
}

func cmdCheckpoint(printer *cpscli.Printer, cfg *config.Config, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: funcps checkpoint list [name] | funcps checkpoint rm <id>")
		os.Exit(1)
	}
	store := openStore(cfg)
	defer store.Close()
	ctx := context.Background()

	switch args[0] {
	case "list":
		fnName := ""
		if len(args) > 1 {
			fnName = args[1]
		}
		listing, err := store.List(ctx, fnName)
		if err != nil {
			fmt.Fprintln(os.Stderr, "funcps:", err)
			os.Exit(1)
		}
		now := time.Now().UTC()
		for _, l := range listing {
			printer.Listing(l, now)
		}
	case "rm":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "Usage: funcps checkpoint rm <id>")
			os.Exit(1)
		}
		if err := store.Delete(ctx, args[1]); err != nil {
			fmt.Fprintln(os.Stderr, "funcps:", err)
			os.Exit(1)
		}
		printer.Success(fmt.Sprintf("removed %s", args[1]))
	default:
		fmt.Fprintln(os.Stderr, "Usage: funcps checkpoint list [name] | funcps checkpoint rm <id>")
		os.Exit(1)
	}
}

func cmdServe(printer *cpscli.Printer, cfg *config.Config, args []string) {
	addr := cfg.Transport.Address
	if len(args) > 0 {
		addr = args[0]
	}
	if addr == "" {
		fmt.Fprintln(os.Stderr, "Usage: funcps serve <addr>")
		os.Exit(1)
	}

	resume := func(ctx context.Context, s wire.Suspension) (value.Object, error) {
		for _, n := range cpscli.Names() {
			demo, _ := cpscli.Lookup(n)
			compiled := funcps.Compile(demo.Func, demo.Markers...)
			if compiled.Program == nil {
				continue
			}
			if _, ok := compiled.Program.Continuations[s.ContinuationID]; ok {
				return compiled.Program.Invoke(s.ContinuationID, s.Args), nil
			}
		}
		return nil, fmt.Errorf("funcps: unknown continuation %s", s.ContinuationID)
	}

	srv := transport.NewServer(resume)
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		fmt.Fprintln(os.Stderr, "funcps:", err)
		os.Exit(1)
	}
	printer.Success(fmt.Sprintf("serving CheckpointService on %s", addr))
	if err := srv.Serve(lis); err != nil {
		fmt.Fprintln(os.Stderr, "funcps:", err)
		os.Exit(1)
	}
}

func parseArg(s string) value.Object {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return &value.Int{Value: i}
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return &value.Float{Value: f}
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return value.BoolOf(b)
	}
	return &value.Str{Value: s}
}
