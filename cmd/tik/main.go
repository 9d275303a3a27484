// Command tik extracts user-identified subgraphs of basic blocks from an
// IR module into self-contained kernel functions. See SPEC_FULL.md for
// the full operation this drives.
package main

import (
	"flag"
	"fmt"
	"os"

	"tlog.app/go/tlog"

	"github.com/tikforge/tik/blockid"
	"github.com/tikforge/tik/buildctx"
	"github.com/tikforge/tik/descriptor"
	"github.com/tikforge/tik/finalize"
	"github.com/tikforge/tik/ir"
	"github.com/tikforge/tik/irtext"
	"github.com/tikforge/tik/kernel"
	"github.com/tikforge/tik/kernelspec"
)

var (
	input  = flag.String("i", "", "path to the input module (required)")
	spec   = flag.String("k", "", "path to the kernel block-id spec JSON (required)")
	output = flag.String("o", "", "path to write the kernel descriptor JSON (default: stdout)")
)

func main() {
	flag.Parse()
	switch {
	case *input == "":
		usage("-i is required")
	case *spec == "":
		usage("-k is required")
	}

	mod, err := loadModule(*input)
	if err != nil {
		die("%s", err)
	}

	specs, err := loadSpecs(*spec)
	if err != nil {
		die("%s", err)
	}

	idx := blockid.Build(mod)
	ctx := buildctx.New(ir.NewModule(mod.Name + ".tik"))

	var kernels []*kernel.Kernel
	failed := 0
	for _, s := range specs {
		k, err := kernel.Build(ctx, idx, s.Name, s.IDs)
		if err != nil {
			tlog.Printw("error", "kernel failed", "kernel", s.Name, "err", err)
			failed++
			continue
		}
		if err := finalize.Finalize(ctx, k); err != nil {
			tlog.Printw("error", "finalize failed", "kernel", s.Name, "err", err)
			failed++
			continue
		}
		kernels = append(kernels, k)
	}

	out := os.Stdout
	if *output != "" {
		f, err := os.Create(*output)
		if err != nil {
			die("failed to create output file: %s", err)
		}
		defer f.Close()
		out = f
	}
	if err := descriptor.WriteAll(out, kernels); err != nil {
		die("failed to write descriptor: %s", err)
	}

	if failed > 0 {
		os.Exit(1)
	}
}

func loadModule(path string) (*ir.Module, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return irtext.Shell(f)
}

func loadSpecs(path string) ([]kernelspec.Spec, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return kernelspec.Load(f)
}

func usage(msg string) {
	fmt.Printf("%s\n", msg)
	fmt.Printf("tik -i <module> -k <kernel_spec.json> [-o <out.json>]\n")
	flag.PrintDefaults()
	os.Exit(1)
}

func die(f string, vs ...interface{}) {
	fmt.Printf(f+"\n", vs...)
	os.Exit(1)
}
