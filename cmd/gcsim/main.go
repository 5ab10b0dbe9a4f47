// ABOUTME: gcsim loads a heap snapshot, runs collection cycles and writes the compacted heap
// ABOUTME: Object types resolve against the catalog descriptors

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/datatrails/go-datatrails-common/logger"

	"github.com/prateek/gcdesc"
	"github.com/prateek/gcdesc/analysis"
	_ "github.com/prateek/gcdesc/catalog"
	"github.com/prateek/gcdesc/gc"
	"github.com/prateek/gcdesc/snapshot"
	"github.com/prateek/gcdesc/space"
)

type options struct {
	in       string
	config   string
	cycles   int
	out      string
	format   string
	retained int
	version  bool
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var o options
	fs := flag.NewFlagSet("gcsim", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.in, "in", "", "input snapshot (json, cbor or cbor+zstd)")
	fs.StringVar(&o.config, "config", "", "YAML space config")
	fs.IntVar(&o.cycles, "cycles", 1, "number of collection cycles to run")
	fs.StringVar(&o.out, "out", "", "write the collected heap to this file")
	fs.StringVar(&o.format, "format", "cbor+zstd", "output format: "+strings.Join(snapshot.Names(), ", "))
	fs.IntVar(&o.retained, "retained", 0, "print the top N retainers before collecting")
	fs.BoolVar(&o.version, "version", false, "print version and exit")
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if o.version {
		return o, nil
	}
	if o.in == "" {
		return o, errors.New("-in is required")
	}
	if o.cycles < 0 {
		return o, fmt.Errorf("-cycles %d is negative", o.cycles)
	}
	return o, nil
}

func run(args []string, stdout, stderr io.Writer) error {
	o, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}
	if o.version {
		fmt.Fprintf(stdout, "gcsim %s\n", gcdesc.Version)
		return nil
	}

	cfg := space.DefaultConfig()
	if o.config != "" {
		if cfg, err = space.LoadConfig(o.config); err != nil {
			return err
		}
	}
	logger.New(cfg.LogLevel)
	defer logger.OnExit()
	log := logger.Sugar.WithServiceName("gcsim")

	f, err := os.Open(o.in)
	if err != nil {
		return err
	}
	defer f.Close()
	sp, err := snapshot.Open(f, gc.Default(), cfg, space.WithLogger(log))
	if err != nil {
		return fmt.Errorf("loading %s: %w", o.in, err)
	}
	fmt.Fprintf(stdout, "loaded %d objects, %d bytes, %d roots\n", sp.NumObjects(), sp.Used(), len(sp.Roots()))

	if o.retained > 0 {
		g := analysis.Build(sp)
		for _, r := range analysis.TopRetainers(g, o.retained) {
			fmt.Fprintf(stdout, "retains %8d  %#x %s\n", r.Retained, uint64(r.Addr), r.Type)
		}
		for _, a := range analysis.Unreachable(g) {
			fmt.Fprintf(stdout, "garbage           %#x %s\n", uint64(a), g.Node(a).Type)
		}
	}

	for i := 0; i < o.cycles; i++ {
		st, err := sp.Collect(context.Background())
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, st)
	}

	if o.out == "" {
		return nil
	}
	out, err := os.Create(o.out)
	if err != nil {
		return err
	}
	if err := snapshot.Write(out, o.format, sp); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintf(os.Stderr, "gcsim: %v\n", err)
		}
		os.Exit(1)
	}
}
