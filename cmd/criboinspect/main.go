// Command criboinspect is an interactive explorer over a built
// dependency graph and classification plan: `:modules` lists resolved
// modules, `:strategy <module>` shows whether a module was inlined or
// wrapped, `:cycle <module>` shows its strongly-connected component.
// Grounded on internal/repl's liner-based Start loop, generalized from
// an expression-evaluation REPL to a read-only graph inspector.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/peterh/liner"

	"github.com/sunholo/cribo/internal/bundleerrors"
	"github.com/sunholo/cribo/internal/classify"
	"github.com/sunholo/cribo/internal/depgraph"
	"github.com/sunholo/cribo/internal/pyast"
	"github.com/sunholo/cribo/internal/resolver"
	"github.com/sunholo/cribo/internal/semantic"
)

var (
	bold  = color.New(color.Bold).SprintFunc()
	dim   = color.New(color.FgHiBlack).SprintFunc()
	green = color.New(color.FgGreen).SprintFunc()
	red   = color.New(color.FgRed).SprintFunc()
)

// session holds the state built once at startup and queried by
// commands for the life of the REPL.
type session struct {
	res     *resolver.Resolver
	graph   *depgraph.Graph
	plan    *classify.Plan
	models  map[resolver.ModuleId]*semantic.Model
}

func main() {
	flag.Parse()
	if flag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: criboinspect <entry.py>")
		os.Exit(1)
	}

	sess, err := build(flag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", red("Error"), err)
		os.Exit(1)
	}

	sess.start(os.Stdin, os.Stdout)
}

func build(entry string) (*session, error) {
	res := resolver.New([]string{filepath.Dir(entry)}, [2]int{3, 12})
	entryID, err := res.RegisterEntry(entry)
	if err != nil {
		return nil, err
	}

	g := depgraph.New()
	models := map[resolver.ModuleId]*semantic.Model{}

	queue := []resolver.ModuleId{entryID}
	processed := map[resolver.ModuleId]bool{}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if processed[id] {
			continue
		}
		processed[id] = true

		meta, _ := res.Metadata(id)
		src, err := os.ReadFile(meta.CanonicalPath)
		if err != nil {
			return nil, err
		}
		mod, err := pyast.Parse(meta.CanonicalPath, src)
		if err != nil {
			return nil, bundleerrors.Wrap(bundleerrors.Parse(meta.CanonicalPath, err))
		}
		models[id] = semantic.Analyze(meta.DottedName, mod)
		items := depgraph.ExtractItems(mod)
		g.AddModule(&depgraph.ModuleItems{Module: id, Items: items})

		for _, stmt := range mod.Body {
			enqueueImports(stmt, id, res, &queue)
		}
	}

	live := map[resolver.ModuleId]bool{}
	for id := range models {
		live[id] = true
	}
	plan, err := classify.Build(g, classify.Inputs{Live: live, Entry: entryID})
	if err != nil {
		return nil, err
	}

	return &session{res: res, graph: g, plan: plan, models: models}, nil
}

func enqueueImports(s *pyast.Stmt, owner resolver.ModuleId, res *resolver.Resolver, queue *[]resolver.ModuleId) {
	switch s.Kind {
	case pyast.KindImport:
		for _, a := range s.Names {
			if r, err := res.Resolve(owner, a.Name, 0); err == nil && r.Kind == resolver.ResFirstParty {
				*queue = append(*queue, r.ModuleID)
			}
		}
	case pyast.KindImportFrom:
		if r, err := res.Resolve(owner, s.ModulePath, s.Level); err == nil && r.Kind == resolver.ResFirstParty {
			*queue = append(*queue, r.ModuleID)
		}
	default:
		for _, sub := range s.Body {
			enqueueImports(sub, owner, res, queue)
		}
	}
}

func (s *session) start(in io.Reader, out io.Writer) {
	line := liner.NewLiner()
	defer line.Close()
	line.SetMultiLineMode(false)

	fmt.Fprintln(out, bold("criboinspect"))
	fmt.Fprintln(out, dim("Type :help for commands, :quit to exit"))

	commands := []string{":help", ":modules", ":strategy", ":cycle", ":quit"}
	line.SetCompleter(func(text string) (c []string) {
		for _, cmd := range commands {
			if strings.HasPrefix(cmd, text) {
				c = append(c, cmd)
			}
		}
		return
	})

	for {
		input, err := line.Prompt("cribo> ")
		if err == io.EOF {
			fmt.Fprintln(out, green("Goodbye!"))
			return
		}
		if err != nil {
			fmt.Fprintf(out, "%s %v\n", red("Error"), err)
			continue
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)
		s.dispatch(input, out)
	}
}

func (s *session) dispatch(input string, out io.Writer) {
	fields := strings.Fields(input)
	switch fields[0] {
	case ":help":
		fmt.Fprintln(out, ":modules                 list resolved first-party modules")
		fmt.Fprintln(out, ":strategy <id>           show a module's classification")
		fmt.Fprintln(out, ":cycle <id>              show the strongly-connected component containing a module")
		fmt.Fprintln(out, ":quit                    exit")
	case ":modules":
		s.listModules(out)
	case ":strategy":
		if len(fields) < 2 {
			fmt.Fprintln(out, "usage: :strategy <module-id>")
			return
		}
		s.showStrategy(fields[1], out)
	case ":cycle":
		if len(fields) < 2 {
			fmt.Fprintln(out, "usage: :cycle <module-id>")
			return
		}
		s.showCycle(fields[1], out)
	case ":quit":
		os.Exit(0)
	default:
		fmt.Fprintf(out, "unknown command %q (try :help)\n", fields[0])
	}
}

func (s *session) listModules(out io.Writer) {
	mods := s.res.AllModules()
	sort.Slice(mods, func(i, j int) bool { return mods[i].ID < mods[j].ID })
	for _, m := range mods {
		fmt.Fprintf(out, "%3d  %-30s %s\n", m.ID, m.DottedName, m.Kind)
	}
}

func (s *session) showStrategy(idStr string, out io.Writer) {
	id, err := parseModuleID(idStr)
	if err != nil {
		fmt.Fprintf(out, "%s %v\n", red("Error"), err)
		return
	}
	strat, ok := s.plan.Strategy[id]
	if !ok {
		fmt.Fprintln(out, "module not live (tree-shaken out, or unknown id)")
		return
	}
	fmt.Fprintln(out, strat.String())
}

func (s *session) showCycle(idStr string, out io.Writer) {
	id, err := parseModuleID(idStr)
	if err != nil {
		fmt.Fprintf(out, "%s %v\n", red("Error"), err)
		return
	}
	for _, scc := range s.plan.Order {
		for _, m := range scc.Modules {
			if m == id {
				if !scc.Cyclic() {
					fmt.Fprintln(out, "not part of a cycle")
					return
				}
				fmt.Fprintf(out, "cycle of %d modules:\n", len(scc.Modules))
				for _, member := range scc.Modules {
					meta, _ := s.res.Metadata(member)
					fmt.Fprintf(out, "  %s\n", meta.DottedName)
				}
				return
			}
		}
	}
	fmt.Fprintln(out, "module not found in the graph")
}

func parseModuleID(s string) (resolver.ModuleId, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid module id %q", s)
	}
	return resolver.ModuleId(n), nil
}
