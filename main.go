package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"

	"github.com/gdamore/tcell/v2"

	"autotype/config"
	"autotype/host"
	"autotype/logging"
	"autotype/playback"
	"autotype/script"
	"autotype/terminal"
	"autotype/typing"
)

var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	var (
		root          = flag.String("root", "", "Workspace directory (default: enclosing git worktree of the current directory)")
		scriptDir     = flag.String("script-dir", "", "Script directory, relative to the workspace root unless absolute")
		configFile    = flag.String("config", "", "Settings file to use instead of the user settings file")
		baseDelay     = flag.Int("base-delay", typing.DefaultBaseDelay, "Fixed delay after each typed character in ms")
		variableDelay = flag.Int("variable-delay", typing.DefaultVariableDelay, "Upper bound of the random extra delay in ms")
		mode          = flag.String("mode", "await", "Typing mode: await or chain")
		exclusive     = flag.Bool("exclusive", false, "Refuse to start a page while the previous one is still typing")
		logLevel      = flag.String("log-level", "", "Log level: debug, info, warn, error")
		help          = flag.Bool("help", false, "Show help")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] [command]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Types scripted pages of code into files, one page at a time.\n\n")
		fmt.Fprintf(os.Stderr, "Commands:\n")
		fmt.Fprintf(os.Stderr, "  tui                    Interactive player (default)\n")
		fmt.Fprintf(os.Stderr, "  play [-n N] [-write]   Play pages without a terminal UI\n")
		fmt.Fprintf(os.Stderr, "  check                  Load the script and list its pages\n")
		fmt.Fprintf(os.Stderr, "  version                Print the version\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nInteractive keys:\n")
		fmt.Fprintf(os.Stderr, "  n, space, enter   Play the next page\n")
		fmt.Fprintf(os.Stderr, "  r                 Reset to the first page\n")
		fmt.Fprintf(os.Stderr, "  w                 Save modified files\n")
	fmt.Fprintf(os.Stderr, "  x                 Close the active file without saving\n")
		fmt.Fprintf(os.Stderr, "  q, ctrl-c         Quit\n")
	}

	flag.Parse()

	if *help {
		flag.Usage()
		return 0
	}

	cmd := "tui"
	args := flag.Args()
	if len(args) > 0 {
		cmd, args = args[0], args[1:]
	}
	if cmd == "version" {
		fmt.Println("autotype", version)
		return 0
	}

	rootDir, err := resolveRoot(*root)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	cfg, err := config.Load(rootDir, *configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	// flags given on the command line win over every settings file
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "script-dir":
			cfg.ScriptDir = *scriptDir
		case "base-delay":
			cfg.BaseCharacterDelay = *baseDelay
		case "variable-delay":
			cfg.VariableCharacterDelay = *variableDelay
		case "mode":
			cfg.TypingMode = *mode
		case "exclusive":
			cfg.ExclusivePlayback = *exclusive
		case "log-level":
			cfg.Logging.Level = *logLevel
		}
	})
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	logging.Init(logging.Options{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		AddSource: cfg.Logging.Source,
		File:      cfg.Logging.File,
		Console:   cmd != "tui",
	})
	defer logging.Close()
	logging.L().Debug("settings loaded", "root", rootDir, "sources", cfg.Sources, "mode", cfg.TypingMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := playback.Options{
		ScriptDir: cfg.ScriptDir,
		Pacer:     cfg.Pacer(),
		Mode:      cfg.Mode(),
		Exclusive: cfg.ExclusivePlayback,
	}

	switch cmd {
	case "tui":
		err = runTUI(ctx, rootDir, opts)
	case "play":
		err = runPlay(ctx, rootDir, opts, args)
	case "check":
		err = runCheck(rootDir, opts)
	default:
		flag.Usage()
		return 2
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func resolveRoot(dir string) (string, error) {
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", err
		}
		dir = wd
	}
	return host.FindRoot(dir)
}

func runTUI(ctx context.Context, root string, opts playback.Options) error {
	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("failed to create screen: %w", err)
	}

	ws := host.NewWorkspace(root)
	ctrl := playback.NewController(ws, opts)
	// load problems are already shown in the status line
	_ = ctrl.OpenPages(ctx)

	return terminal.New(screen, ws, ctrl).Run(ctx)
}

func runPlay(ctx context.Context, root string, opts playback.Options, args []string) error {
	fs := flag.NewFlagSet("play", flag.ContinueOnError)
	count := fs.Int("n", 0, "Number of pages to play (0 = all remaining)")
	write := fs.Bool("write", false, "Write modified files back instead of printing them")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ws := host.NewWorkspace(root)
	ws.OnMessage = func(m host.Message) {
		fmt.Fprintln(os.Stderr, m.Text)
	}
	ctrl := playback.NewController(ws, opts)
	if err := ctrl.OpenPages(ctx); err != nil {
		return err
	}

	for played := 0; *count == 0 || played < *count; played++ {
		before := ctrl.Session.Index()
		run, err := ctrl.PlayNextPage(ctx)
		if errors.Is(err, playback.ErrNoMorePages) {
			break
		}
		if err != nil {
			return err
		}
		if run == nil {
			if ctrl.Session.Index() == before {
				// nothing to type into
				break
			}
			continue
		}
		res := run.Wait()
		fmt.Fprintf(os.Stderr, "page %d: %s after %d steps\n", before+1, res.Outcome, res.Steps)
		if res.Outcome == typing.Cancelled {
			return ctx.Err()
		}
	}

	if *write {
		return ws.Save()
	}
	for _, path := range ws.Modified() {
		text, _ := ws.Text(path)
		rel, err := filepath.Rel(root, path)
		if err != nil {
			rel = path
		}
		fmt.Printf("==> %s <==\n%s\n", rel, text)
	}
	return nil
}

func runCheck(root string, opts playback.Options) error {
	dir := opts.ScriptDir
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(root, dir)
	}
	pages, err := script.Load(dir, func(msg string) { fmt.Fprintln(os.Stderr, msg) })
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PAGE\tFILE\tLINE\tCOL\tALIGN\tCHARS")
	for _, p := range pages {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\t%d\n",
			p.Name, p.File, p.Line+1, p.Col+1, p.Align, len([]rune(p.Text())))
	}
	return tw.Flush()
}
