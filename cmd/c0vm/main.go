package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/daimatz/goc0vm/pkg/bc0"
	"github.com/daimatz/goc0vm/pkg/config"
	"github.com/daimatz/goc0vm/pkg/native"
	"github.com/daimatz/goc0vm/pkg/vm"
)

// verbosity counts repeated -v flags.
type verbosity int

func (v *verbosity) String() string   { return strconv.Itoa(int(*v)) }
func (v *verbosity) IsBoolFlag() bool { return true }
func (v *verbosity) Set(s string) error {
	b, err := strconv.ParseBool(s)
	if err != nil {
		return err
	}
	if b {
		*v++
	}
	return nil
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// run executes the command line and returns the process exit status.
func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("c0vm", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "Configuration file (default: nearest c0vm.toml)")
	cache := fs.Bool("cache", false, "Write a .bc0c image next to the loaded .bc0 file")
	printResult := fs.Bool("print-result", false, "Print the value returned by main")
	var verbose verbosity
	fs.Var(&verbose, "v", "Increase log verbosity (repeatable)")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: c0vm [options] <program.bc0|program.bc0c>\n\nOptions:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return 2
	}
	path := fs.Arg(0)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "c0vm: %v\n", err)
		return 1
	}
	commonlog.Configure(cfg.Log.Verbosity+int(verbose), cfg.LogFile())
	log := commonlog.GetLogger("c0vm.cli")
	if cfg.Path != "" {
		log.Infof("using configuration %s", cfg.Path)
	}

	loader := bc0.NewImageLoader(bc0.NewTextLoader(), *cache || cfg.Image.WriteCache)
	prog, err := loader.LoadProgram(path)
	if err != nil {
		fmt.Fprintf(stderr, "c0vm: %v\n", err)
		return 1
	}
	log.Infof("loaded %s", path)

	console := native.NewConsole(stdin, stdout)
	machine := vm.NewVM(prog, native.NewTable(console))
	machine.MaxCallDepth = cfg.VM.MaxCallDepth
	machine.Heap.SetLimit(cfg.VM.HeapLimit)

	result, err := machine.Execute()
	if ferr := console.Flush(); ferr != nil {
		log.Errorf("flushing output: %v", ferr)
	}
	if err != nil {
		fmt.Fprintf(stderr, "c0vm: %v [run %s]\n", err, machine.RunID())
		var f *vm.Fault
		if errors.As(err, &f) {
			return f.Kind.ExitCode()
		}
		return 1
	}

	if *printResult {
		fmt.Fprintln(stdout, result)
	}
	return int(uint8(result))
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	cfg, err := config.FindAndLoad(".")
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return config.Default(), nil
	}
	return cfg, nil
}
