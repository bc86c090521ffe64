package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/pavelanni/interviewer/internal/handler"
	appI18n "github.com/pavelanni/interviewer/internal/i18n"
	"github.com/pavelanni/interviewer/internal/interview"
	"github.com/pavelanni/interviewer/internal/llm"
	"github.com/pavelanni/interviewer/internal/llm/prompts"
	"github.com/pavelanni/interviewer/internal/store"
)

func main() {
	// A missing .env file is fine; real environment variables still apply.
	_ = godotenv.Load()

	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "interviewer",
		Short: "Technical interview backend powered by LLMs",
	}

	serve := serveCmd()
	root.AddCommand(serve, exportCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `interviewer --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP interview server",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8000", "HTTP listen address")
	addStoreFlags(f)
	f.Duration("sweep-interval", 10*time.Minute, "How often expired sessions are removed (memory and sqlite stores)")
	f.String("llm-url", "https://api.openai.com/v1", "OpenAI-compatible API base URL")
	f.String("llm-key", "", "API key for LLM (or set INTERVIEWER_LLM_KEY)")
	f.String("llm-model", "gpt-4o-mini", "LLM model name")
	f.Float32("llm-temperature", 0.7, "Sampling temperature")
	f.Duration("llm-timeout", 60*time.Second, "Timeout for a single LLM call (0 disables)")
	f.Int("llm-max-concurrency", 8, "Maximum concurrent LLM calls (0 = unlimited)")
	f.Bool("llm-check", true, "Verify the LLM endpoint at startup")
	f.Bool("structured-output", false, "Ask the model for JSON objects instead of line markers")
	f.String("prompts-dir", "", "Directory with questions.tmpl, evaluate.tmpl and report.tmpl overriding the built-in prompts")
	f.String("tts-model", "tts-1", "Text-to-speech model (empty disables /tts)")
	f.String("tts-voice", "alloy", "Default text-to-speech voice")
	f.StringP("lang", "l", "en", "Default language for API messages (en, ru)")
	addLogFlags(f)
	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export interview sessions as JSON",
		RunE:  runExport,
	}
	f := cmd.Flags()
	addStoreFlags(f)
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	addLogFlags(f)
	return cmd
}

func addStoreFlags(f *pflag.FlagSet) {
	f.String("store", string(store.KindMemory), "Session store (memory, sqlite, redis)")
	f.String("db", "interviewer.db", "SQLite database path")
	f.String("redis-addr", "localhost:6379", "Redis address")
	f.String("redis-password", "", "Redis password")
	f.Int("redis-db", 0, "Redis database number")
	f.Duration("session-ttl", 24*time.Hour, "How long a session is kept after its last update (0 = forever)")
}

func addLogFlags(f *pflag.FlagSet) {
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
}

func setupLogging(v *viper.Viper) {
	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("INTERVIEWER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("interviewer")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/interviewer")
	v.AddConfigPath("/etc/interviewer")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

func openStore(ctx context.Context, v *viper.Viper) (store.Store, error) {
	return store.Open(ctx, store.Options{
		Kind:          store.Kind(v.GetString("store")),
		SQLitePath:    v.GetString("db"),
		RedisAddr:     v.GetString("redis-addr"),
		RedisPassword: v.GetString("redis-password"),
		RedisDB:       v.GetInt("redis-db"),
		TTL:           v.GetDuration("session-ttl"),
	})
}

func loadPrompts(dir string, structured bool) (*prompts.Set, error) {
	if dir == "" {
		return prompts.Default(structured)
	}
	slog.Info("loading prompt templates", "dir", dir)
	return prompts.Load(os.DirFS(dir), structured)
}

// startSweeper removes expired sessions in the background until ctx is done.
// The returned func blocks until the sweeper has exited. Nothing runs when
// sessions never expire, the interval is not positive or the store expires
// entries itself.
func startSweeper(ctx context.Context, sessions store.Store, ttl, interval time.Duration) (wait func()) {
	sw, ok := sessions.(store.Sweeper)
	if !ok || ttl <= 0 || interval <= 0 {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		store.RunSweeper(ctx, sw, interval, func(n int, err error) {
			if err != nil {
				slog.Error("session cleanup failed", "error", err)
				return
			}
			if n > 0 {
				slog.Info("removed expired sessions", "count", n)
			}
		})
	}()
	return func() { <-done }
}

func runServe(cmd *cobra.Command, _ []string) error {
	v := viperForCmd(cmd)
	setupLogging(v)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	sessions, err := openStore(ctx, v)
	if err != nil {
		return fmt.Errorf("open session store: %w", err)
	}
	defer sessions.Close()

	waitSweeper := startSweeper(ctx, sessions, v.GetDuration("session-ttl"), v.GetDuration("sweep-interval"))
	// Runs before sessions.Close so an in-flight sweep never sees a closed store.
	defer func() {
		stop()
		waitSweeper()
	}()

	promptSet, err := loadPrompts(v.GetString("prompts-dir"), v.GetBool("structured-output"))
	if err != nil {
		return fmt.Errorf("load prompts: %w", err)
	}

	llmClient, err := llm.New(llm.Config{
		BaseURL:        v.GetString("llm-url"),
		APIKey:         v.GetString("llm-key"),
		Model:          v.GetString("llm-model"),
		Temperature:    float32(v.GetFloat64("llm-temperature")),
		Timeout:        v.GetDuration("llm-timeout"),
		MaxConcurrency: v.GetInt("llm-max-concurrency"),
		JSONMode:       promptSet.Structured(),
		SpeechModel:    v.GetString("tts-model"),
		DefaultVoice:   v.GetString("tts-voice"),
	})
	if err != nil {
		return fmt.Errorf("create LLM client: %w", err)
	}
	if v.GetBool("llm-check") {
		if err := llmClient.Ping(ctx); err != nil {
			return fmt.Errorf("LLM health check: %w", err)
		}
		slog.Info("LLM endpoint OK", "url", v.GetString("llm-url"), "model", v.GetString("llm-model"))
	}

	svc := interview.NewService(sessions,
		interview.NewEngine(llmClient, promptSet),
		interview.WithTTL(v.GetDuration("session-ttl")),
	)

	var speaker handler.Speaker
	if v.GetString("tts-model") != "" {
		speaker = llmClient
	}
	h := handler.New(svc, speaker)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	h.Routes(r)

	addr := v.GetString("addr")
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting server",
			"addr", addr,
			"store", v.GetString("store"),
			"model", v.GetString("llm-model"),
			"llm_url", v.GetString("llm-url"),
			"structured_output", promptSet.Structured(),
			"session_ttl", v.GetDuration("session-ttl"),
			"lang", lang,
			"tts", speaker != nil,
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func runExport(cmd *cobra.Command, _ []string) error {
	v := viperForCmd(cmd)
	setupLogging(v)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	kind := strings.ToLower(v.GetString("store"))
	if kind == "" || store.Kind(kind) == store.KindMemory {
		return errors.New("the memory store lives inside the server process; export needs --store sqlite or redis")
	}
	sessions, err := openStore(ctx, v)
	if err != nil {
		return fmt.Errorf("open session store: %w", err)
	}
	defer sessions.Close()

	export, err := store.Export(ctx, sessions, store.Kind(kind))
	if err != nil {
		return fmt.Errorf("export sessions: %w", err)
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}

	outPath := v.GetString("output")
	var w io.Writer
	if outPath == "" || outPath == "-" {
		w = os.Stdout
	} else {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	// Ensure trailing newline.
	_, _ = fmt.Fprintln(w)

	slog.Info("exported sessions", "count", export.Count, "store", kind)
	return nil
}
