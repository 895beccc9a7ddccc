// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/AnuGuin/LegalAI/internal/api"
	"github.com/AnuGuin/LegalAI/internal/cache"
	"github.com/AnuGuin/LegalAI/internal/config"
	"github.com/AnuGuin/LegalAI/internal/logging"
	"github.com/AnuGuin/LegalAI/internal/model"
	"github.com/AnuGuin/LegalAI/internal/session"
	"github.com/AnuGuin/LegalAI/internal/ui/app"
)

// Version is set at build time with -ldflags.
var Version = "dev"

// =============================================================================
// RUNTIME
// =============================================================================

// globalFlags are the persistent flags shared by every command.
type globalFlags struct {
	configPath string
	apiURL     string
	json       bool
	verbose    bool
	noColor    bool
}

// runtime carries the flags and the dependencies built from them. It is
// populated by the root command's PersistentPreRunE.
type runtime struct {
	flags globalFlags

	out    io.Writer
	errOut io.Writer

	cfg     *config.Config
	session *session.Provider
	client  *api.Client
	log     zerolog.Logger

	logCloser io.Closer
	// tui is true when the command owns the terminal; console logging is
	// then suppressed.
	tui bool
}

func newRuntime() *runtime {
	return &runtime{out: os.Stdout, errOut: os.Stderr, log: zerolog.Nop()}
}

// setup loads config, installs logging and builds the session and client.
func (rt *runtime) setup() error {
	var (
		cfg *config.Config
		err error
	)
	if rt.flags.configPath != "" {
		cfg, err = config.LoadFromPath(rt.flags.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return errors.Wrap(err, "load config")
	}
	if rt.flags.apiURL != "" {
		cfg.API.BaseURL = rt.flags.apiURL
	}
	if rt.flags.noColor {
		cfg.UI.NoColor = true
		ForceColorsEnabled(false)
	}
	applyColorProfile()
	rt.cfg = cfg

	level := cfg.Log.Level
	if rt.flags.verbose {
		level = "debug"
	}
	closer, err := logging.Setup(logging.Options{
		Level:   level,
		File:    cfg.LogPath(),
		Console: rt.flags.verbose && !rt.tui,
	})
	if err != nil {
		return errors.Wrap(err, "set up logging")
	}
	rt.logCloser = closer
	rt.log = logging.Component("cli")

	rt.session = session.NewProvider(session.NewFileStore(cfg.SessionPath()))
	if err := rt.session.Init(); err != nil {
		return errors.Wrap(err, "read session")
	}

	rt.client = api.NewClient(cfg.API.BaseURL,
		api.WithTokenSource(api.TokenFunc(rt.session.Token)),
		api.WithObserver(api.NewLogObserver(logging.Component("api"))),
		api.WithLogger(logging.Component("api")),
		api.WithRateLimit(cfg.API.RateLimit, cfg.API.RateBurst),
		api.WithUserAgent(cfg.API.UserAgent),
	)
	rt.log.Debug().Str("api", rt.client.BaseURL()).Str("data_dir", cfg.DataDir).Msg("runtime ready")
	return nil
}

func (rt *runtime) close() {
	if rt.logCloser != nil {
		_ = rt.logCloser.Close()
	}
}

// requireUser returns the signed-in user or session.ErrUnauthenticated.
func (rt *runtime) requireUser() (*model.User, error) {
	u, err := rt.session.RequireAuth()
	if err != nil {
		return nil, errors.Wrap(err, "run `legalai login` first")
	}
	return u, nil
}

// openCache opens the history cache when enabled. Failures only disable it.
func (rt *runtime) openCache() *cache.Cache {
	if !rt.cfg.Cache.Enabled {
		return nil
	}
	c, err := cache.Open(rt.cfg.CachePath())
	if err != nil {
		rt.log.Warn().Err(err).Msg("history cache disabled")
		return nil
	}
	return c
}

// emit prints data as a JSONResponse in --json mode, else runs human.
func (rt *runtime) emit(command string, data any, human func(w io.Writer)) error {
	if rt.flags.json {
		return NewJSONResponse(command, data).Print(rt.out)
	}
	human(rt.out)
	return nil
}

// =============================================================================
// ROOT COMMAND
// =============================================================================

// newRootCommand builds the command tree.
func newRootCommand(rt *runtime) *cobra.Command {
	root := &cobra.Command{
		Use:           "legalai",
		Short:         "Terminal client for the LegalAI legal assistant",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			rt.tui = cmd.Name() == "legalai"
			return rt.setup()
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			rt.close()
		},
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTUI(cmd.Context(), rt)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&rt.flags.configPath, "config", "", "config file (default ~/.legalai/config.toml)")
	pf.StringVar(&rt.flags.apiURL, "api-url", "", "backend base URL (overrides config and "+config.EnvAPIURL+")")
	pf.BoolVar(&rt.flags.json, "json", false, "print machine-readable JSON")
	pf.BoolVarP(&rt.flags.verbose, "verbose", "v", false, "log debug output to stderr")
	pf.BoolVar(&rt.flags.noColor, "no-color", false, "disable colors")

	root.AddCommand(
		newLoginCommand(rt),
		newLogoutCommand(rt),
		newWhoamiCommand(rt),
		newModeCommand(rt),
		newConversationsCommand(rt),
		newSendCommand(rt),
		newChatCommand(rt),
		newShareCommand(rt),
		newSharedCommand(rt),
		newTranslateCommand(rt),
		newDetectCommand(rt),
		newTranslationsCommand(rt),
	)
	return root
}

// runTUI starts the full-screen client.
func runTUI(ctx context.Context, rt *runtime) error {
	if !Interactive() {
		return NewValidationError("terminal", "", "the interactive client needs a terminal",
			"legalai conversations list --json")
	}
	c := rt.openCache()
	if c != nil {
		defer c.Close()
	}
	return app.Run(ctx, app.Options{
		Config:      rt.cfg,
		Client:      rt.client,
		Session:     rt.session,
		Cache:       c,
		SessionPath: rt.cfg.SessionPath(),
		Logger:      logging.Component("tui"),
	})
}

// =============================================================================
// EXECUTE
// =============================================================================

// Execute runs the CLI with os.Args and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return execute(ctx, newRuntime(), os.Args[1:])
}

func execute(ctx context.Context, rt *runtime, args []string) int {
	root := newRootCommand(rt)
	root.SetArgs(args)
	root.SetOut(rt.out)
	root.SetErr(rt.errOut)

	cmd, err := root.ExecuteContextC(ctx)
	if err == nil {
		return ExitSuccess
	}
	defer rt.close()

	name := "legalai"
	if cmd != nil {
		name = cmd.CommandPath()
	}
	log.Debug().Err(err).Str("command", name).Msg("command failed")

	if rt.flags.json {
		DisplayErrorJSON(rt.out, name, err)
	} else {
		DisplayError(rt.errOut, name, err, false)
	}
	if rt.flags.verbose {
		fmt.Fprintf(rt.errOut, "%+v\n", err)
	}
	return GetExitCode(err)
}
