// Command dzarchive lists, unpacks, and packs DZ multi-volume archives.
package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/mistretro/dzarchive"
	"github.com/mistretro/dzarchive/dzconfig"
	"github.com/mistretro/dzarchive/dzfs"
	"github.com/spf13/pflag"
)

const appVersion = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "list":
		runList(os.Args[2:])
	case "unpack":
		runUnpack(os.Args[2:])
	case "pack":
		runPack(os.Args[2:])
	case "-h", "--help", "help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "dzarchive: unknown command %q\n\n", os.Args[1])
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s <command> [options]\n\n", filepath.Base(os.Args[0]))
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "  list    <archive.dz>            list archive contents\n")
	fmt.Fprintf(os.Stderr, "  unpack  <archive.dz> [options]  extract an archive\n")
	fmt.Fprintf(os.Stderr, "  pack    <config>     [options]  build an archive from a text config\n")
	fmt.Fprintf(os.Stderr, "\nRun '%s <command> -h' for command-specific options.\n", filepath.Base(os.Args[0]))
}

func newLogger(verbose bool) *log.Logger {
	if verbose {
		return log.New(os.Stderr, "dzarchive: ", log.LstdFlags)
	}
	return log.New(io.Discard, "", 0)
}

func runList(args []string) {
	fs := pflag.NewFlagSet("list", pflag.ExitOnError)
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "dzarchive list: archive path required")
		os.Exit(1)
	}
	input := fs.Arg(0)

	f, err := os.Open(input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "dzarchive: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	m, err := dzarchive.LoadMetadata(f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "dzarchive: %v\n", err)
		os.Exit(1)
	}

	for _, entry := range dzarchive.List(m) {
		fmt.Printf("%10d  %4d chunks  %s\n", entry.OriginalSize, entry.ChunkCount, entry.Path)
	}
}

func runUnpack(args []string) {
	fs := pflag.NewFlagSet("unpack", pflag.ExitOnError)
	output := fs.StringP("output", "o", "", "output directory (default: archive filename stem)")
	keepRaw := fs.BoolP("keep-raw", "k", false, "write raw chunk bytes when a codec fails or is unsupported")
	workers := fs.IntP("workers", "w", 0, "extraction worker count (default: GOMAXPROCS)")
	verbose := fs.BoolP("verbose", "v", false, "enable verbose logging")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "dzarchive unpack: archive path required")
		os.Exit(1)
	}
	input := fs.Arg(0)

	outDir := *output
	if outDir == "" {
		outDir = stemOf(input)
	}

	f, err := os.Open(input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "dzarchive: %v\n", err)
		os.Exit(1)
	}
	m, err := dzarchive.LoadMetadata(f)
	f.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "dzarchive: %v\n", err)
		os.Exit(1)
	}

	src := dzfs.NewUnpackSource(input)
	sink, err := dzfs.NewUnpackSink(outDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "dzarchive: %v\n", err)
		os.Exit(1)
	}

	opts := dzarchive.ExtractOptions{
		Workers:  *workers,
		KeepRaw:  *keepRaw,
		Log:      newLogger(*verbose),
		Progress: progressPrinter(),
	}

	if err := dzarchive.Extract(m, src, sink, opts); err != nil {
		fmt.Fprintf(os.Stderr, "dzarchive: %v\n", err)
		os.Exit(1)
	}
}

func runPack(args []string) {
	fs := pflag.NewFlagSet("pack", pflag.ExitOnError)
	workers := fs.IntP("workers", "w", 0, "pack worker count (default: GOMAXPROCS)")
	verbose := fs.BoolP("verbose", "v", false, "enable verbose logging")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "dzarchive pack: config path required")
		os.Exit(1)
	}
	configPath := fs.Arg(0)

	cf, err := os.Open(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "dzarchive: %v\n", err)
		os.Exit(1)
	}
	cfg, err := dzconfig.Read(cf)
	cf.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "dzarchive: %v\n", err)
		os.Exit(1)
	}

	m, err := dzarchive.FromConfig(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "dzarchive: %v\n", err)
		os.Exit(1)
	}

	root := filepath.Dir(configPath)
	mainPath := filepath.Join(root, stemOf(configPath)+".dz")

	src := dzfs.NewPackSource(root)
	sink := dzfs.NewPackSink(mainPath)

	opts := dzarchive.PackOptions{
		Workers:  *workers,
		Log:      newLogger(*verbose),
		Progress: progressPrinter(),
	}

	if err := dzarchive.Pack(m, src, sink, opts); err != nil {
		fmt.Fprintf(os.Stderr, "dzarchive: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("wrote %s\n", mainPath)
}

func stemOf(path string) string {
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	return base[:len(base)-len(ext)]
}

func progressPrinter() dzarchive.ProgressFunc {
	var mu sync.Mutex
	var total, done uint64
	return func(ev dzarchive.ProgressEvent) {
		mu.Lock()
		defer mu.Unlock()
		switch ev.Kind {
		case dzarchive.ProgressStart:
			total = ev.Count
		case dzarchive.ProgressInc:
			done += ev.Count
			fmt.Printf("\r%d/%d", done, total)
		case dzarchive.ProgressFinish:
			fmt.Println()
		}
	}
}
