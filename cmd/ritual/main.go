package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/peterh/liner"

	"github.com/ncbray/ritual"
	"github.com/ncbray/ritual/ascii"
)

const historyFile = ".ritual_history"

type args struct {
	grammarPath *string
	rule        *string
	inputPath   *string
	configPath  *string

	dump       *bool
	format     *string
	watch      *bool
	selfHosted *bool
	noColor    *bool

	vv *bool
	v  *bool
	q  *bool
}

func readArgs() *args {
	a := &args{
		grammarPath: flag.String("grammar", "", "Path to the grammar file"),
		rule:        flag.String("rule", "", "Rule to start parsing from (default: first exported rule)"),
		inputPath:   flag.String("input", "", "Path to the input file, opens a shell when missing"),
		configPath:  flag.String("config", "", "Path to a TOML file overriding the default settings"),

		// Output Options

		dump:       flag.Bool("dump", false, "Output the rule table of the grammar"),
		format:     flag.String("format", "text", "Output format of values and dumps: text or yaml"),
		watch:      flag.Bool("watch", false, "Compile the grammar again every time it changes"),
		selfHosted: flag.Bool("self-hosted", false, "Read the grammar with the self-hosted front end instead of the bootstrap one"),
		noColor:    flag.Bool("no-color", false, "Disable colors in the output, overriding diagnostics.color"),

		vv: flag.Bool("vv", false, "Log debug messages"),
		v:  flag.Bool("v", false, "Log informational messages"),
		q:  flag.Bool("q", false, "Only log errors"),
	}

	flag.Parse()

	return a
}

type app struct {
	args    *args
	config  *ritual.Config
	logger  *slog.Logger
	painter *ascii.Painter
	stdout  *ascii.Painter
}

func main() {
	a := readArgs()

	if *a.grammarPath == "" {
		fatal("Grammar not informed")
	}
	if *a.format != "text" && *a.format != "yaml" {
		fatal("Output format `%s` not supported", *a.format)
	}

	cfg := ritual.NewConfig()
	if *a.configPath != "" {
		var err error
		if cfg, err = ritual.LoadConfigFile(*a.configPath); err != nil {
			fatal("Can't load config: %s", err.Error())
		}
	}

	logger := ritual.NewLogger(os.Stderr, ritual.LevelFromFlags(*a.vv, *a.v, *a.q))
	if *a.vv {
		cfg.Debug(os.Stderr)
	}

	colors, err := ascii.ParseColorMode(cfg.GetString("diagnostics.color"))
	if err != nil {
		fatal("Can't load config: %s", err.Error())
	}
	if *a.noColor {
		colors = ascii.ColorNever
	}

	ap := &app{
		args:    a,
		config:  cfg,
		logger:  logger,
		painter: ascii.NewPainter(os.Stderr, ascii.DefaultTheme, colors),
		stdout:  ascii.NewPainter(os.Stdout, ascii.DefaultTheme, colors),
	}

	if *a.watch {
		if err := ap.watch(); err != nil {
			fatal("Can't watch grammar: %s", err.Error())
		}
		return
	}

	g, ok := ap.compile()
	if !ok {
		os.Exit(1)
	}
	if *a.dump {
		if err := ap.dump(os.Stdout, g); err != nil {
			fatal("Can't dump grammar: %s", err.Error())
		}
		return
	}
	if *a.inputPath != "" {
		if !ap.run(g) {
			os.Exit(1)
		}
		return
	}
	if err := ap.repl(g); err != nil {
		fatal("%s", err.Error())
	}
}

func (ap *app) options() []ritual.Option {
	return []ritual.Option{ritual.WithConfig(ap.config), ritual.WithLogger(ap.logger)}
}

// compile reads and compiles the grammar, printing diagnostics to
// stderr.  It reports false if the grammar can't be used.
func (ap *app) compile() (*ritual.Grammar, bool) {
	src, err := os.ReadFile(*ap.args.grammarPath)
	if err != nil {
		ap.errorf("Can't read grammar file: %s", err.Error())
		return nil, false
	}

	var compiler *ritual.Compiler
	if *ap.args.selfHosted {
		if compiler, err = ritual.NewSelfHostedCompiler(ap.options()...); err != nil {
			ap.errorf("Can't build the self-hosted front end: %s", err.Error())
			return nil, false
		}
	} else {
		compiler = ritual.NewCompiler(ap.options()...)
	}

	status := ritual.NewStatus()
	g, err := compiler.Compile(status, *ap.args.grammarPath, string(src))
	ap.printDiagnostics(status.Diagnostics())
	if err != nil {
		var halt *ritual.HaltError
		if errors.As(err, &halt) {
			fmt.Fprintln(os.Stderr, ap.painter.Error("%s", halt.Error()))
		} else if len(status.Diagnostics()) == 0 {
			ap.errorf("%s", err.Error())
		}
		return nil, false
	}
	if !g.Report.Converged {
		fmt.Fprintln(os.Stderr, ap.painter.Warning("warning: first sets did not converge after %d iterations", g.Report.Iterations))
	}
	return g, true
}

func (ap *app) printDiagnostics(diagnostics []ritual.Diagnostic) {
	for _, d := range diagnostics {
		if !d.Located {
			fmt.Fprintf(os.Stderr, "%s %s\n", ap.painter.Error("error:"), d.Message)
			continue
		}
		fmt.Fprintf(os.Stderr, "%s %s %s\n%s\n%s\n",
			ap.painter.Accent("%s:%d:%d:", d.Filename, d.Location.Line, d.Location.Column),
			ap.painter.Error("error:"),
			d.Message,
			d.Location.Text,
			ap.painter.Error("%s", d.Location.Arrow))
	}
}

func (ap *app) dump(w io.Writer, g *ritual.Grammar) error {
	if *ap.args.format == "yaml" {
		return encodeYAML(w, g.Summary())
	}
	for _, rule := range g.Rules() {
		fmt.Fprintln(w, ritual.FormatRule(rule, ap.formatter(ap.stdout)))
	}
	return nil
}

func (ap *app) ruleName(g *ritual.Grammar) string {
	if *ap.args.rule != "" {
		return *ap.args.rule
	}
	return g.DefaultRule()
}

// run parses the input file and prints the resulting value
func (ap *app) run(g *ritual.Grammar) bool {
	text, err := os.ReadFile(*ap.args.inputPath)
	if err != nil {
		ap.errorf("Can't open input file: %s", err.Error())
		return false
	}
	parser, err := g.NewParser(ritual.StandardExterns(), ap.options()...)
	if err != nil {
		ap.errorf("Can't create parser: %s", err.Error())
		return false
	}
	return ap.parse(parser, ap.ruleName(g), string(text))
}

func (ap *app) parse(parser *ritual.Parser, rule, text string) bool {
	result, err := parser.Parse(rule, nil, text, 0, ap.config.GetBool("vm.must_consume_all"))
	if err != nil {
		ap.errorf("%s", err.Error())
		return false
	}
	if !result.OK {
		fmt.Fprintf(os.Stderr, "%s %s\n", ap.painter.Error("parse error:"), result.Message())
		return false
	}
	if *ap.args.format == "yaml" {
		if err := encodeYAML(os.Stdout, valueNode(result.Value)); err != nil {
			ap.errorf("Can't encode value: %s", err.Error())
			return false
		}
		return true
	}
	fmt.Println(ritual.FormatValue(result.Value, ap.formatter(ap.stdout)))
	return true
}

// repl opens a shell that parses each line it reads with the start
// rule of the grammar
func (ap *app) repl(g *ritual.Grammar) error {
	parser, err := g.NewParser(ritual.StandardExterns(), ap.options()...)
	if err != nil {
		return err
	}
	rule := ap.ruleName(g)

	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}
	defer func() {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	for {
		line, err := ln.Prompt(rule + "> ")
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				fmt.Println()
				return nil
			}
			return err
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		ln.AppendHistory(line)
		ap.parse(parser, rule, line)
	}
}

// watch compiles the grammar every time the file is written to.  The
// directory is watched instead of the file itself so editors that
// replace the file on save are followed.
func (ap *app) watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	path, err := filepath.Abs(*ap.args.grammarPath)
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return err
	}

	ap.rebuild()
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Name != path {
				continue
			}
			if event.Op&fsnotify.Write == fsnotify.Write || event.Op&fsnotify.Create == fsnotify.Create {
				ap.logger.Info("grammar changed", "path", event.Name, "op", event.Op.String())
				ap.rebuild()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			ap.logger.Error("watcher error", "error", err)
		}
	}
}

func (ap *app) rebuild() {
	g, ok := ap.compile()
	if !ok {
		return
	}
	switch {
	case *ap.args.dump:
		if err := ap.dump(os.Stdout, g); err != nil {
			ap.errorf("Can't dump grammar: %s", err.Error())
		}
	case *ap.args.inputPath != "":
		ap.run(g)
	default:
		fmt.Fprintln(os.Stderr, ap.painter.Success("%s: %d rules", *ap.args.grammarPath, len(g.Rules())))
	}
}

func (ap *app) formatter(p *ascii.Painter) ritual.FormatFunc {
	colors := map[ritual.FormatToken]string{
		ritual.FormatOperator: p.Theme.Operator,
		ritual.FormatOperand:  p.Theme.Operand,
		ritual.FormatLiteral:  p.Theme.Literal,
		ritual.FormatSpan:     p.Theme.Span,
	}
	return func(input string, token ritual.FormatToken) string {
		return p.Color(colors[token], "%s", input)
	}
}

func (ap *app) errorf(format string, args ...any) {
	fmt.Fprintln(os.Stderr, ap.painter.Error(format, args...))
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
