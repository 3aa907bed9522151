// igi CLI - the main entry point for converting Project IGI game files
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/tliron/commonlog"

	"github.com/artiom-rotari/igi-tools/catalog"
	"github.com/artiom-rotari/igi-tools/config"
	"github.com/artiom-rotari/igi-tools/convert"
	"github.com/artiom-rotari/igi-tools/qsc"
	"github.com/artiom-rotari/igi-tools/qvm"

	_ "github.com/tliron/commonlog/simple"
)

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: igi [options] <command> [arguments]\n\n")
	fmt.Fprintf(os.Stderr, "Converts Project IGI game files into editable formats.\n\n")
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "  init              Write a default igi.toml in the current directory\n")
	fmt.Fprintf(os.Stderr, "  qvm [-d] <file>   Decompile a script to stdout (-d disassembles instead)\n")
	fmt.Fprintf(os.Stderr, "  res|wav|tex <file>...\n")
	fmt.Fprintf(os.Stderr, "                    Convert single game files into the work directory\n")
	fmt.Fprintf(os.Stderr, "  all [-f] [-j N] [-png]\n")
	fmt.Fprintf(os.Stderr, "                    Convert every supported file under the game directory\n")
	fmt.Fprintf(os.Stderr, "  scan              Catalog every game file without converting\n")
	fmt.Fprintf(os.Stderr, "  stats             Show scan counts and failures from the catalog\n")
	fmt.Fprintf(os.Stderr, "\nOptions:\n")
	flag.PrintDefaults()
	fmt.Fprintf(os.Stderr, "\nExamples:\n")
	fmt.Fprintf(os.Stderr, "  igi qvm ai/guard.qvm          # Print the decompiled script\n")
	fmt.Fprintf(os.Stderr, "  igi convert sounds/shot.wav   # Convert one sound file\n")
	fmt.Fprintf(os.Stderr, "  igi all -j 8 -png             # Convert the whole game directory\n")
}

func main() {
	verbose := flag.Bool("v", false, "Verbose output")
	flag.Usage = usage
	flag.Parse()

	verbosity := 0
	if *verbose {
		verbosity = 1
	}
	commonlog.Configure(verbosity, nil)

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	var err error
	switch args[0] {
	case "init":
		err = cmdInit()
	case "qvm":
		err = cmdQVM(args[1:])
	case "res", "wav", "tex", "convert":
		err = cmdConvert(args[1:])
	case "all":
		err = cmdAll(args[1:])
	case "scan":
		err = cmdScan()
	case "stats":
		err = cmdStats()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", args[0])
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func cmdInit() error {
	path, err := config.Init(".")
	if err != nil {
		return err
	}
	fmt.Printf("Created %s\n", path)
	return nil
}

func cmdQVM(args []string) error {
	fs := flag.NewFlagSet("qvm", flag.ExitOnError)
	disasm := fs.Bool("d", false, "Disassemble instead of decompiling")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("qvm: no input files")
	}

	for _, path := range fs.Args() {
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		prog, err := qvm.Load(data)
		if err != nil {
			return err
		}

		if *disasm {
			fmt.Print(qvm.Disassemble(prog))
			continue
		}
		block, err := qvm.Decompile(prog)
		if err != nil {
			return err
		}
		fmt.Print(qsc.Render(block))
	}
	return nil
}

func loadConverter() (*convert.Converter, error) {
	cfg, err := config.FindAndLoad(".")
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, fmt.Errorf("no %s found; run 'igi init' first", config.FileName)
	}
	return &convert.Converter{Config: cfg}, nil
}

func cmdConvert(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("convert: no input files")
	}
	c, err := loadConverter()
	if err != nil {
		return err
	}

	for _, path := range args {
		r, err := c.File(path)
		if err != nil {
			return err
		}
		for _, out := range r.Outputs {
			fmt.Printf("Created %s\n", out)
		}
		if r.Skipped {
			fmt.Printf("Skipped %s (already converted)\n", path)
		}
	}
	return nil
}

func cmdAll(args []string) error {
	fs := flag.NewFlagSet("all", flag.ExitOnError)
	force := fs.Bool("f", false, "Convert even when outputs already exist")
	workers := fs.Int("j", 4, "Worker goroutines")
	withPNG := fs.Bool("png", false, "Also write PNG previews for textures")
	if err := fs.Parse(args); err != nil {
		return err
	}

	c, err := loadConverter()
	if err != nil {
		return err
	}
	c.Force = *force
	c.Workers = *workers
	c.PNG = *withPNG

	cat, err := catalog.Open(c.Config.CatalogPath())
	if err != nil {
		return err
	}
	defer cat.Close()
	c.Catalog = cat

	results, err := c.All()
	if err != nil {
		return err
	}

	var converted, skipped, failed int
	for _, r := range results {
		switch {
		case r.Err != nil:
			failed++
			fmt.Fprintf(os.Stderr, "Failed %s: %v\n", r.Source, r.Err)
		case r.Skipped:
			skipped++
		default:
			converted++
		}
	}
	fmt.Printf("Converted %d, skipped %d, failed %d\n", converted, skipped, failed)
	return nil
}

func cmdScan() error {
	c, err := loadConverter()
	if err != nil {
		return err
	}

	cat, err := catalog.Open(c.Config.CatalogPath())
	if err != nil {
		return err
	}
	defer cat.Close()
	c.Catalog = cat

	results, err := c.Scan()
	if err != nil {
		return err
	}

	var failed int
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	fmt.Printf("Scanned %d files, %d failed\n", len(results), failed)
	return nil
}

func cmdStats() error {
	cfg, err := config.FindAndLoad(".")
	if err != nil {
		return err
	}
	if cfg == nil {
		return fmt.Errorf("no %s found; run 'igi init' first", config.FileName)
	}

	cat, err := catalog.Open(cfg.CatalogPath())
	if err != nil {
		return err
	}
	defer cat.Close()

	counts, err := cat.FormatCounts()
	if err != nil {
		return err
	}
	for _, format := range []string{"qvm", "res", "wav", "tex"} {
		if n, ok := counts[format]; ok {
			fmt.Printf("%-4s %d\n", format, n)
		}
	}

	failures, err := cat.Failures()
	if err != nil {
		return err
	}
	for _, f := range failures {
		fmt.Printf("failed %s: %s\n", f.Path, f.Error)
	}
	return nil
}
