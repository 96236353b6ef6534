package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/lspestrip/striprecipes/internal/api"
	"github.com/lspestrip/striprecipes/internal/archive"
	"github.com/lspestrip/striprecipes/internal/log"
	"github.com/lspestrip/striprecipes/internal/plan"
	"github.com/lspestrip/striprecipes/internal/recipe"
)

var (
	version   = "1.0.0-dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	os.Exit(runCLI(os.Args[1:]))
}

func runCLI(cliArgs []string) int {
	if len(cliArgs) < 1 {
		printUsage()
		return 1
	}

	cmd := cliArgs[0]
	args := cliArgs[1:]

	switch cmd {
	case "generate":
		return runGenerate(args)
	case "archive":
		return runArchiveNoun(args)
	case "serve":
		return runServe(args)
	case "version", "--version":
		return runVersion(args)
	case "help", "--help", "-h":
		printUsage()
		return 0
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		return 1
	}
}

func runGenerate(args []string) int {
	fs := flag.NewFlagSet("generate", flag.ContinueOnError)
	planPath := fs.String("plan", "", "Path to the YAML plan file (required)")
	outPath := fs.String("out", "", "Output recipe file (default: stdout)")
	dbPath := fs.String("archive", "", "Also store the generated recipe in this archive database")
	comment := fs.String("comment", "", "Extra comment appended to the plan comment")
	annotate := fs.Bool("annotate-source", false, "Embed the plan file verbatim in the comment block")
	logLevel := fs.String("log-level", "INFO", "Log level (DEBUG, INFO, WARN, ERROR)")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}
	if *planPath == "" {
		fmt.Fprintln(os.Stderr, "Usage: striprecipes generate --plan FILE [--out FILE] [--archive DB] [--comment TEXT] [--annotate-source]")
		return 1
	}

	log.Setup(*logLevel)
	logger := log.WithComponent("generate")

	p, err := plan.Load(*planPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load plan: %v\n", err)
		return 1
	}
	log.WithPlan(*planPath).Debug("plan loaded", "name", p.Name, "steps", len(p.Steps))

	rlog, err := p.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build recipe: %v\n", err)
		return 1
	}

	opts := recipe.EncodeOptions{Comment: joinComments(p.Comment, *comment)}
	if *annotate {
		src, err := os.ReadFile(*planPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to read plan for annotation: %v\n", err)
			return 1
		}
		opts.SourceAnnotation = string(src)
	}

	var buf bytes.Buffer
	if err := recipe.Encode(&buf, rlog, opts); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to encode recipe: %v\n", err)
		return 1
	}

	if *outPath == "" {
		fmt.Print(buf.String())
	} else {
		if err := os.WriteFile(*outPath, buf.Bytes(), 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write %s: %v\n", *outPath, err)
			return 1
		}
		logger.Info("recipe written",
			"path", *outPath,
			"operations", rlog.Len(),
			"wait_seconds", rlog.WaitSeconds(),
		)
	}

	if *dbPath != "" {
		ctx := context.Background()
		arch, err := archive.Open(ctx, *dbPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open archive: %v\n", err)
			return 1
		}
		defer arch.Close()

		id, err := arch.Store(ctx, archive.StoreRequest{
			Name:          p.Name,
			Content:       buf.String(),
			NumOperations: rlog.Len(),
			WaitSeconds:   rlog.WaitSeconds(),
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to archive recipe: %v\n", err)
			return 1
		}
		logger.Info("recipe archived", "recipe_id", id, "db", *dbPath)
	}

	return 0
}

// joinComments merges the plan comment and the --comment flag, either of
// which may be empty.
func joinComments(parts ...string) string {
	var nonEmpty []string
	for _, p := range parts {
		if p != "" {
			nonEmpty = append(nonEmpty, strings.TrimRight(p, "\n"))
		}
	}
	return strings.Join(nonEmpty, "\n")
}

func runArchiveNoun(args []string) int {
	if len(args) < 1 {
		printArchiveHelp()
		return 1
	}
	switch args[0] {
	case "list":
		return runArchiveList(args[1:])
	case "show":
		return runArchiveShow(args[1:])
	case "verify":
		return runArchiveVerify(args[1:])
	case "help", "--help", "-h":
		printArchiveHelp()
		return 0
	default:
		fmt.Fprintf(os.Stderr, "Unknown archive subcommand: %s\n\n", args[0])
		printArchiveHelp()
		return 1
	}
}

func runArchiveList(args []string) int {
	fs := flag.NewFlagSet("archive list", flag.ContinueOnError)
	dbPath := fs.String("db", "", "Archive database path (required)")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}
	if *dbPath == "" {
		fmt.Fprintln(os.Stderr, "Usage: striprecipes archive list --db PATH")
		return 1
	}

	ctx := context.Background()
	arch, err := archive.Open(ctx, *dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open archive: %v\n", err)
		return 1
	}
	defer arch.Close()

	entries, err := arch.List(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to list recipes: %v\n", err)
		return 1
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tOPS\tWAIT_SEC\tCREATED")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%d\t%g\t%s\n",
			e.ID, e.Name, e.NumOperations, e.WaitSeconds, e.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	_ = w.Flush()
	return 0
}

func runArchiveShow(args []string) int {
	fs := flag.NewFlagSet("archive show", flag.ContinueOnError)
	dbPath := fs.String("db", "", "Archive database path (required)")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}
	if *dbPath == "" || fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: striprecipes archive show --db PATH RECIPE_ID")
		return 1
	}

	ctx := context.Background()
	arch, err := archive.Open(ctx, *dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open archive: %v\n", err)
		return 1
	}
	defer arch.Close()

	content, err := arch.Content(ctx, fs.Arg(0))
	if errors.Is(err, archive.ErrNotFound) {
		fmt.Fprintf(os.Stderr, "Recipe %s not found\n", fs.Arg(0))
		return 1
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load recipe: %v\n", err)
		return 1
	}

	fmt.Print(content)
	return 0
}

func runArchiveVerify(args []string) int {
	fs := flag.NewFlagSet("archive verify", flag.ContinueOnError)
	dbPath := fs.String("db", "", "Archive database path (required)")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}
	if *dbPath == "" {
		fmt.Fprintln(os.Stderr, "Usage: striprecipes archive verify --db PATH [RECIPE_ID...]")
		return 1
	}

	ctx := context.Background()
	arch, err := archive.Open(ctx, *dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open archive: %v\n", err)
		return 1
	}
	defer arch.Close()

	ids := fs.Args()
	if len(ids) == 0 {
		entries, err := arch.List(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to list recipes: %v\n", err)
			return 1
		}
		for _, e := range entries {
			ids = append(ids, e.ID)
		}
	}

	failed := 0
	for _, id := range ids {
		if err := arch.Verify(ctx, id); err != nil {
			fmt.Fprintf(os.Stderr, "FAIL %s: %v\n", id, err)
			failed++
			continue
		}
		fmt.Printf("OK   %s\n", id)
	}
	if failed > 0 {
		fmt.Fprintf(os.Stderr, "%d of %d recipes failed verification\n", failed, len(ids))
		return 1
	}
	return 0
}

func runServe(args []string) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	dbPath := fs.String("db", "", "Archive database path (required)")
	listen := fs.String("listen", "127.0.0.1:8723", "Listen address")
	logLevel := fs.String("log-level", "INFO", "Log level (DEBUG, INFO, WARN, ERROR)")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}
	if *dbPath == "" {
		fmt.Fprintln(os.Stderr, "Usage: striprecipes serve --db PATH [--listen ADDR]")
		return 1
	}

	log.Setup(*logLevel)
	logger := log.WithComponent("api")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	arch, err := archive.Open(ctx, *dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open archive: %v\n", err)
		return 1
	}
	defer arch.Close()

	server := api.New(api.Config{Listen: *listen}, arch, logger)
	if err := server.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		return 1
	}
	return 0
}

type versionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
}

func runVersion(args []string) int {
	fs := flag.NewFlagSet("version", flag.ContinueOnError)
	jsonOut := fs.Bool("json", false, "Output version metadata as JSON")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}
	if fs.NArg() > 0 {
		fmt.Fprintln(os.Stderr, "Usage: striprecipes version [--json]")
		return 1
	}

	info := versionInfo{Version: version, Commit: gitCommit, BuildTime: buildDate}

	if *jsonOut {
		data, err := json.MarshalIndent(info, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to render version JSON: %v\n", err)
			return 1
		}
		fmt.Println(string(data))
		return 0
	}

	fmt.Printf("striprecipes %s\n", info.Version)
	fmt.Printf("commit: %s\n", info.Commit)
	fmt.Printf("built_at: %s\n", info.BuildTime)
	return 0
}

func printUsage() {
	fmt.Fprint(os.Stderr, `striprecipes - recipe generation for the LSPE/Strip tester software

Usage:
  striprecipes generate --plan FILE [--out FILE] [--archive DB] [--comment TEXT] [--annotate-source]
  striprecipes archive  list|show|verify --db PATH ...
  striprecipes serve    --db PATH [--listen ADDR]
  striprecipes version  [--json]
  striprecipes help

Commands:
  generate   Build a recipe from a YAML plan and write the recipe document
  archive    Inspect and verify a recipe archive database
  serve      Serve a recipe archive over HTTP
  version    Print version information
`)
}

func printArchiveHelp() {
	fmt.Fprint(os.Stderr, `Usage:
  striprecipes archive list   --db PATH
  striprecipes archive show   --db PATH RECIPE_ID
  striprecipes archive verify --db PATH [RECIPE_ID...]
`)
}
