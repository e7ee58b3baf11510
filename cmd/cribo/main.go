// Command cribo bundles a Python application rooted at an entry script
// into a single synthetic module, per spec.md §6.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"

	"github.com/sunholo/cribo/internal/bundleerrors"
	"github.com/sunholo/cribo/internal/bundler"
	"github.com/sunholo/cribo/internal/cfgload"
)

var (
	// Version info, set by ldflags during build.
	Version = "dev"
	Commit  = "unknown"

	green  = color.New(color.FgGreen).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
)

func main() {
	var (
		versionFlag   = flag.Bool("version", false, "Print version information")
		outputFlag    = flag.String("output", "", "Output file path (default: stdout)")
		sourceRoots   = flag.String("src", "", "Additional source roots, separated by the OS path list separator")
		pythonVersion = flag.String("python-version", "3.12", "Target Python version, MAJOR.MINOR")
		configFlag    = flag.String("config", "", "Path to cribo.yaml (default: next to the entry script)")
		noTreeShake   = flag.Bool("no-tree-shake", false, "Disable dead-code elimination")
		emitReqs      = flag.Bool("emit-requirements", false, "Write a requirements.txt sidecar listing third-party imports")
		jsonErrors    = flag.Bool("json-errors", false, "Emit structured JSON on failure instead of a plain message")
	)
	flag.Parse()

	if *versionFlag {
		fmt.Printf("cribo %s (%s)\n", Version, Commit)
		return
	}

	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "%s: missing entry file argument\n", red("Error"))
		fmt.Println("Usage: cribo [flags] <entry.py>")
		flag.PrintDefaults()
		os.Exit(1)
	}

	entry := flag.Arg(0)
	if entry == "-" {
		src, err := io.ReadAll(os.Stdin)
		if err != nil {
			fail(*jsonErrors, bundleerrors.Wrap(bundleerrors.New("io", "IO001", err.Error())))
		}
		tmp, err := os.CreateTemp("", "cribo-stdin-*.py")
		if err != nil {
			fail(*jsonErrors, bundleerrors.Wrap(bundleerrors.New("io", "IO001", err.Error())))
		}
		defer os.Remove(tmp.Name())
		if _, err := tmp.Write(src); err != nil {
			fail(*jsonErrors, bundleerrors.Wrap(bundleerrors.New("io", "IO001", err.Error())))
		}
		tmp.Close()
		entry = tmp.Name()
	}

	configPath := *configFlag
	if configPath == "" {
		configPath = cfgload.DefaultPath(entry)
	}
	cfg, err := cfgload.Load(configPath)
	if err != nil {
		fail(*jsonErrors, bundleerrors.Wrap(bundleerrors.New("config", "IO001", err.Error())))
	}

	explicit := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { explicit[f.Name] = true })
	versionStr := *pythonVersion
	if !explicit["python-version"] && cfg.PythonVersion != "" {
		versionStr = cfg.PythonVersion
	}
	major, minor, err := cfgload.ParsePythonVersion(versionStr)
	if err != nil {
		fail(*jsonErrors, err)
	}
	output := *outputFlag
	if output == "" {
		output = cfg.Output
	}

	var roots []string
	if *sourceRoots != "" {
		roots = strings.Split(*sourceRoots, string(os.PathListSeparator))
	}
	roots = append(roots, cfg.SourceRoots...)

	result, err := bundler.Run(bundler.Config{
		Entry:            entry,
		SourceRoots:      roots,
		PythonVersion:    [2]int{major, minor},
		NoTreeShake:      *noTreeShake || cfg.NoTreeShake,
		EmitRequirements: *emitReqs,
	})
	if err != nil {
		fail(*jsonErrors, err)
	}

	if output == "" {
		os.Stdout.Write(result.Output)
	} else {
		if err := os.WriteFile(output, result.Output, 0644); err != nil {
			fail(*jsonErrors, bundleerrors.Wrap(bundleerrors.New("io", "IO002", err.Error())))
		}
		fmt.Fprintf(os.Stderr, "%s %s (%d bytes)\n", green("bundled"), output, len(result.Output))
	}

	if len(result.Requirements) > 0 {
		reqPath := requirementsPath(output)
		if err := os.WriteFile(reqPath, []byte(strings.Join(result.Requirements, "\n")+"\n"), 0644); err != nil {
			fail(*jsonErrors, bundleerrors.Wrap(bundleerrors.New("io", "IO002", err.Error())))
		}
		fmt.Fprintf(os.Stderr, "%s %s (%d packages)\n", green("wrote"), reqPath, len(result.Requirements))
	}

	for _, d := range result.Diagnostics {
		fmt.Fprintf(os.Stderr, "%s %s\n", yellow(bold(string(d.Kind)+":")), d.String())
	}
}

func requirementsPath(output string) string {
	if output == "" {
		return "requirements.txt"
	}
	dir := output
	if idx := strings.LastIndexByte(output, '/'); idx >= 0 {
		dir = output[:idx+1]
	} else {
		dir = ""
	}
	return dir + "requirements.txt"
}

func fail(jsonErrors bool, err error) {
	if rep, ok := bundleerrors.As(err); ok {
		if jsonErrors {
			if j, jerr := rep.JSON(); jerr == nil {
				fmt.Fprintln(os.Stderr, j)
			}
		} else {
			fmt.Fprintf(os.Stderr, "%s %s: %s\n", red("Error"), rep.Code, rep.Message)
		}
		os.Exit(bundleerrors.ExitCode(rep.Code))
	}
	fmt.Fprintf(os.Stderr, "%s %v\n", red("Error"), err)
	os.Exit(1)
}
