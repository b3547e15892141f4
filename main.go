// Completion: 100% - CLI driver: source file in, PE executable out
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// VerboseMode gates the package-level fmt.Fprintf(os.Stderr, ...) call
// sites sprinkled through the pipeline (see e.g. filewatcher_unix.go,
// filewatcher_darwin.go).
var VerboseMode bool

const versionString = "rillc 1.0.0"

func usage() {
	fmt.Fprintf(os.Stderr, `%s - compiles a Rill source file to a standalone 64-bit Windows PE executable

Usage:
  rillc [flags] <source.rill> [output.exe]

Flags:
`, versionString)
	flag.PrintDefaults()
}

func main() {
	os.Exit(run(os.Args[1:]))
}

// run implements the CLI contract: a single
// positional source-file argument, exit code 0 on success and nonzero
// on any compile error, with the output path either a second
// positional argument, -o, or derived from the input basename.
func run(args []string) int {
	fs := flag.NewFlagSet("rillc", flag.ContinueOnError)
	fs.Usage = usage
	outFlag := fs.String("o", "", "output executable path (default: input basename with .exe)")
	verbose := fs.Bool("v", false, "verbose mode (show pass-by-pass diagnostics on stderr)")
	interpret := fs.Bool("interpret", false, "run the program through the tree-walking interpreter instead of compiling it")
	watch := fs.Bool("watch", false, "recompile on every save to the source file")
	version := fs.Bool("version", false, "print version information and exit")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *version {
		fmt.Println(versionString)
		return 0
	}
	VerboseMode = *verbose

	rest := fs.Args()
	if len(rest) < 1 {
		usage()
		return 2
	}
	inputPath := rest[0]
	outputPath := *outFlag
	if outputPath == "" && len(rest) >= 2 {
		outputPath = rest[1]
	}
	if outputPath == "" {
		outputPath = defaultOutputPath(inputPath)
	}

	if *interpret {
		return runInterpret(inputPath)
	}
	if *watch {
		return runWatch(inputPath, outputPath)
	}
	return compileOnce(inputPath, outputPath, true)
}

func defaultOutputPath(inputPath string) string {
	base := filepath.Base(inputPath)
	if ext := filepath.Ext(base); ext != "" {
		base = strings.TrimSuffix(base, ext)
	}
	return base + ".exe"
}

// compileOnce reads inputPath, runs the full pipeline.Compile, and
// writes the resulting PE image to outputPath. Errors are reported
// with the source line and caret underline; no
// partial output file is ever written.
func compileOnce(inputPath, outputPath string, announce bool) int {
	src, err := os.ReadFile(inputPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "rillc: %v\n", err)
		return 1
	}

	image, err := Compile(string(src))
	if err != nil {
		reportError(err, string(src), inputPath)
		return 1
	}

	if err := os.WriteFile(outputPath, image, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "rillc: writing %s: %v\n", outputPath, err)
		return 1
	}
	if announce && VerboseMode {
		fmt.Fprintf(os.Stderr, "rillc: wrote %s (%d bytes)\n", outputPath, len(image))
	}
	return 0
}

func reportError(err error, src, inputPath string) {
	if ce, ok := err.(*CompilerError); ok {
		ce.Location.File = inputPath
		fmt.Fprint(os.Stderr, Report(ce, src))
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
}

// runInterpret drives the tree-walking interpreter (interp.go) in
// place of the full compile pipeline,
// printing directly to stdout the way the compiled executable's
// print/println builtins would write to the console.
func runInterpret(inputPath string) int {
	src, err := os.ReadFile(inputPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "rillc: %v\n", err)
		return 1
	}
	if err := Interpret(string(src), os.Stdout); err != nil {
		reportError(err, string(src), inputPath)
		return 1
	}
	return 0
}

// runWatch recompiles inputPath to outputPath on every save, using the
// platform file watcher (filewatcher_unix.go / filewatcher_darwin.go /
// filewatcher_windows.go). It never returns except on a fatal
// watcher-setup failure.
func runWatch(inputPath, outputPath string) int {
	fmt.Fprintf(os.Stderr, "rillc: watching %s (ctrl-c to stop)\n", inputPath)
	code := compileOnce(inputPath, outputPath, true)
	fw, err := NewFileWatcher(func(path string) {
		fmt.Fprintf(os.Stderr, "rillc: %s changed, recompiling\n", path)
		compileOnce(inputPath, outputPath, true)
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "rillc: watch mode unavailable: %v\n", err)
		return code
	}
	defer fw.Close()
	if err := fw.AddFile(inputPath); err != nil {
		fmt.Fprintf(os.Stderr, "rillc: %v\n", err)
		return 1
	}
	fw.Watch()
	return 0
}
