// Rhai is an embeddable scripting language runtime; this is its command line:
// run scripts, inline code, or an interactive REPL.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"time"

	"fortio.org/cli"
	"fortio.org/duration"
	"fortio.org/log"
	"fortio.org/progressbar"
	"fortio.org/struct2env"
	"fortio.org/terminal"
	"github.com/fsnotify/fsnotify"
	"github.com/mattn/go-isatty"
	"gopkg.in/yaml.v3"
	"grol.io/rhai/eval"
	"grol.io/rhai/extensions"
	"grol.io/rhai/object"
	"grol.io/rhai/repl"
)

func main() {
	os.Exit(Main())
}

type Config struct {
	HistoryFile string
	ModulesDir  string
}

var config = Config{}

func EnvHelp(w io.Writer) {
	res, _ := struct2env.StructToEnvVars(config)
	str := struct2env.ToShellWithPrefix("RHAI_", res, true)
	fmt.Fprintln(w, "# Rhai environment variables:")
	fmt.Fprint(w, str)
}

// FileConfig is the content of the -config yaml file. Flags given
// explicitly on the command line take precedence.
type FileConfig struct {
	Limits  eval.Limits `yaml:"limits"`
	Timeout string      `yaml:"timeout"` // e.g "30s", "1h", "2d".
	Modules string      `yaml:"modules"`
}

func loadConfig(file string) (*FileConfig, time.Duration, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, 0, err
	}
	fc := &FileConfig{Limits: eval.DefaultLimits()}
	if err := yaml.Unmarshal(data, fc); err != nil {
		return nil, 0, fmt.Errorf("config %s: %w", file, err)
	}
	var timeout time.Duration
	if fc.Timeout != "" {
		timeout, err = duration.Parse(fc.Timeout)
		if err != nil {
			return nil, 0, fmt.Errorf("config %s: timeout: %w", file, err)
		}
	}
	return fc, timeout, nil
}

var hookBefore, hookAfter func() int

func Main() int { //nolint:funlen // flags.
	commandFlag := flag.String("c", "", "command/inline script to run instead of interactive mode")
	showParse := flag.Bool("parse", false, "show parse tree")
	showEval := flag.Bool("eval", true, "show eval results")
	sharedState := flag.Bool("shared-state", false, "All files share the same scope (default is a new one for each)")
	const historyDefault = "~/.rhai_history" // replaced by the actual home dir if not changed.
	cli.EnvHelpFuncs = append(cli.EnvHelpFuncs, EnvHelp)
	defaultHistoryFile := historyDefault
	errs := struct2env.SetFromEnv("RHAI_", &config)
	if len(errs) > 0 {
		log.Errf("Error setting config from env: %v", errs)
	}
	if config.HistoryFile != "" {
		defaultHistoryFile = config.HistoryFile
	}
	historyFile := flag.String("history", defaultHistoryFile, "history `file` to use")
	maxHistory := flag.Int("max-history", terminal.DefaultHistoryCapacity, "max history `size`, use 0 to disable.")
	configFile := flag.String("config", "", "yaml `file` with limits, timeout and modules directory")
	modulesDir := flag.String("modules", config.ModulesDir, "`directory` import resolves .rhai files from")
	unrestrictedIOs := flag.Bool("unrestricted-io", false, "let imports read any file (dangerous)")
	noIO := flag.Bool("no-io", false, "disable read_line() and the other console input functions")
	shell := flag.Bool("shell", false, "enable exec() of commands from scripts (dangerous)")
	maxOps := flag.Uint64("max-ops", 0, "Maximum number of operations, 0 for unlimited")
	maxDepth := flag.Int("max-depth", eval.DefaultMaxCallLevels, "Maximum function call depth")
	maxExprDepth := flag.Int("max-expr-depth", eval.DefaultMaxExprDepth, "Maximum expression nesting depth")
	timeout := duration.Flag("timeout", 0, "terminate scripts running longer than this `duration`, 0 for none")
	progress := flag.Bool("progress", false, "show a progress bar of operations (needs -max-ops)")
	watch := flag.Bool("watch", false, "re-run the files given as arguments when they change")

	cli.ArgsHelp = "*.rhai files to run or `-` for stdin without prompt or no arguments for the repl..."
	cli.MaxArgs = -1
	cli.Main()
	histFile := *historyFile
	if histFile == historyDefault {
		homeDir, err := os.UserHomeDir()
		histFile = filepath.Join(homeDir, ".rhai_history")
		if err != nil {
			log.Warnf("Couldn't get user home dir: %v", err)
			histFile = ""
		}
	}
	log.Infof("rhai %s - welcome!", cli.LongVersion)
	memlimit := debug.SetMemoryLimit(-1)
	if memlimit == math.MaxInt64 {
		log.Warnf("Memory limit not set, please set the GOMEMLIMIT env var; e.g. GOMEMLIMIT=1GiB")
	}
	e := eval.NewEngine()
	e.OnPrint = func(text string) {
		fmt.Println(text)
	}
	if *configFile != "" {
		fc, to, err := loadConfig(*configFile)
		if err != nil {
			return log.FErrf("Error loading config: %v", err)
		}
		e.Limits = fc.Limits
		if to > 0 && *timeout == 0 {
			*timeout = to
		}
		if fc.Modules != "" && *modulesDir == "" {
			*modulesDir = fc.Modules
		}
		log.LogVf("Config %s: %+v", *configFile, fc.Limits)
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "max-ops":
			e.Limits.MaxOperations = *maxOps
		case "max-depth":
			e.Limits.MaxCallLevels = *maxDepth
		case "max-expr-depth":
			e.Limits.MaxExprDepth = *maxExprDepth
		}
	})
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	options := repl.Options{
		ShowParse:   *showParse,
		ShowEval:    *showEval,
		HistoryFile: histFile,
		MaxHistory:  *maxHistory,
	}
	if hookBefore != nil {
		if ret := hookBefore(); ret != 0 {
			return ret
		}
	}
	c := extensions.Config{
		HasIO:           !*noIO,
		HasShell:        *shell,
		ModulesDir:      *modulesDir,
		UnrestrictedIOs: *unrestrictedIOs,
	}
	if err := extensions.Init(e, &c); err != nil {
		return log.FErrf("Error initializing extensions: %v", err)
	}
	if *progress {
		if e.Limits.MaxOperations == 0 {
			log.Warnf("-progress needs -max-ops (or limits.max_operations) to be set, ignored")
		} else {
			bar := progressbar.DefaultConfig().NewBar()
			defer bar.End()
			e.OnProgress = progressCallback(bar, e.Limits.MaxOperations)
		}
	}
	run := runner{e: e, ctx: ctx, timeout: *timeout, options: options}
	if *commandFlag != "" {
		run.options.All = true
		run.options.NoColor = true
		return run.eval(repl.NewSession(e), *commandFlag)
	}
	if len(flag.Args()) == 0 {
		if !isatty.IsTerminal(os.Stdin.Fd()) {
			log.Infof("Stdin is not a terminal, running it as a script")
			run.options.All = true
			return run.stream(repl.NewSession(e), "stdin", os.Stdin)
		}
		e.Context = ctx
		return repl.Interactive(repl.NewSession(e), options)
	}
	run.options.All = true
	ret := run.files(flag.Args(), *sharedState)
	if ret == 0 && *watch {
		ret = run.watch(flag.Args(), *sharedState)
	}
	log.Infof("All done")
	if hookAfter != nil {
		if r := hookAfter(); r != 0 {
			return r
		}
	}
	return ret
}

// progressCallback updates bar every few operations, never terminating.
func progressCallback(bar *progressbar.Bar, maxOps uint64) func(uint64) (object.Dynamic, bool) {
	step := max(maxOps/200, 1)
	return func(ops uint64) (object.Dynamic, bool) {
		if ops%step == 0 {
			bar.Progress(100. * float64(ops) / float64(maxOps))
		}
		return object.Unit, false
	}
}

type runner struct {
	e       *eval.Engine
	ctx     context.Context //nolint:containedctx // one per command line run.
	timeout time.Duration
	options repl.Options
}

// eval runs one script with the timeout applied, returns the number of errors.
func (r *runner) eval(s *repl.Session, what string) int {
	ctx := r.ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	r.e.Context = ctx
	errs := s.EvalOne(what, os.Stdout, r.options)
	if len(errs) > 0 {
		log.Errf("Errors: %v", errs)
	}
	return len(errs)
}

func (r *runner) stream(s *repl.Session, name string, in io.Reader) int {
	b, err := io.ReadAll(in)
	if err != nil {
		return log.FErrf("Error reading %s: %v", name, err)
	}
	r.options.Source = name
	return r.eval(s, string(b))
}

func (r *runner) file(s *repl.Session, file string) int {
	if file == "-" {
		log.Infof("Running on stdin")
		return r.stream(s, "stdin", os.Stdin)
	}
	f, err := os.Open(file)
	if err != nil {
		return log.FErrf("%v", err)
	}
	defer f.Close()
	log.Infof("Running %s", file)
	return r.stream(s, file, f)
}

func (r *runner) files(files []string, shared bool) int {
	s := repl.NewSession(r.e)
	for _, file := range files {
		if ret := r.file(s, file); ret != 0 {
			return ret
		}
		if !shared {
			s = repl.NewSession(r.e)
		}
	}
	return 0
}

// watch re-runs the files (all of them, as the first run did) each time one
// changes, until interrupted. Modules are reloaded too.
func (r *runner) watch(files []string, shared bool) int {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return log.FErrf("Error creating file watcher: %v", err)
	}
	defer watcher.Close()
	for _, f := range files {
		if f == "-" {
			continue
		}
		if err := watcher.Add(f); err != nil {
			return log.FErrf("Error watching %s: %v", f, err)
		}
	}
	log.Infof("Watching %d files for changes, ^C to stop", len(watcher.WatchList()))
	const debounceDelay = 200 * time.Millisecond
	var pending <-chan time.Time
	for {
		select {
		case <-r.ctx.Done():
			log.Infof("Interrupted, done watching")
			return 0
		case ev, ok := <-watcher.Events:
			if !ok {
				return 0
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if ev.Op&fsnotify.Rename != 0 {
				// editors replacing the file: watch the new one.
				_ = watcher.Add(ev.Name)
			}
			log.LogVf("Change detected: %v", ev)
			pending = time.After(debounceDelay)
		case <-pending:
			pending = nil
			if fr, ok := r.e.ModuleResolver().(*extensions.FileResolver); ok {
				fr.Clear()
			}
			log.Infof("Re-running %d files", len(files))
			r.files(files, shared)
		case err, ok := <-watcher.Errors:
			if !ok {
				return 0
			}
			log.Warnf("File watcher error: %v", err)
		}
	}
}
