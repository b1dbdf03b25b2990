package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/truonghoc/studio/internal/catalog"
	"github.com/truonghoc/studio/internal/credential"
	"github.com/truonghoc/studio/internal/handler"
	appI18n "github.com/truonghoc/studio/internal/i18n"
	"github.com/truonghoc/studio/internal/llm"
	"github.com/truonghoc/studio/internal/poller"
	"github.com/truonghoc/studio/internal/store"
	"github.com/truonghoc/studio/internal/studio"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "studio",
		Short: "AI content studio for primary school teachers",
	}

	serve := serveCmd()
	root.AddCommand(serve, quizCmd(), examCmd(), convertCmd(), historyCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `studio --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

// addBackendFlags registers the generation backend settings shared by every
// command that calls a model.
func addBackendFlags(f *pflag.FlagSet) {
	f.String("gemini-api-key", "", "Gemini API key (falls back to GEMINI_API_KEY / GOOGLE_API_KEY)")
	f.String("gemini-base-url", "", "Override the Gemini API base URL")
	f.String("gemini-key-file", "", "File holding the API key, re-read when a premium feature selects a key")
	f.String("text-backend", "gemini", "Backend for exams, quizzes and conversion (gemini, openai)")
	f.String("llm-url", "http://localhost:11434/v1", "OpenAI-compatible API base URL (text-backend=openai)")
	f.String("llm-key", "ollama", "API key for the OpenAI-compatible backend")
	f.String("llm-model", "llama3.2", "Model name for the OpenAI-compatible backend")
	f.String("image-model", llm.ModelImage, "Model for image editing capabilities")
	f.String("pro-image-model", llm.ModelProImage, "Model for high-resolution image synthesis")
	f.String("video-model", llm.ModelVideo, "Model for video generation")
	f.String("text-model", llm.ModelText, "Model for exams, quizzes and conversion")
	f.Duration("poll-interval", poller.DefaultInterval, "Spacing between video job status queries")
	f.Int("poll-max-failures", 0, "Consecutive failed status queries tolerated before a video job fails")
	f.Duration("video-timeout", 0, "Upper bound for a whole video job (0 = no limit)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.String("db", "studio.db", "SQLite database path")
	f.StringP("lang", "l", "vi", "Default message language (vi, en)")
	f.String("catalog", "", "YAML file overriding the built-in catalog")
	f.String("admin-password", "", "Admin password (or set STUDIO_ADMIN_PASSWORD)")
	f.StringSlice("allowed-origins", []string{"*"}, "CORS allowed origins")
	f.Int("max-upload-mb", 20, "Maximum request body size in MB")
	f.Duration("video-ttl", time.Hour, "How long finished videos stay downloadable")
	f.Bool("secure-cookies", false, "Set Secure flag on admin cookies")
	addBackendFlags(f)
	return cmd
}

func setupLogging(cmd *cobra.Command) {
	v := viperForCmd(cmd)

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

	v.SetEnvPrefix("STUDIO")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("studio")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/studio")
	v.AddConfigPath("/etc/studio")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

// backends is the wired generation stack.
type backends struct {
	service *studio.Service
	keyring *credential.Keyring
	pingers map[string]llm.Pinger
}

func buildBackends(ctx context.Context, v *viper.Viper, recorder studio.Recorder) (*backends, error) {
	keyring := credential.NewKeyring(v.GetString("gemini-api-key"), v.GetString("gemini-key-file"))
	if keyring.Key() == "" && v.GetString("gemini-key-file") != "" {
		if err := keyring.RequestSelection(ctx); err != nil {
			slog.Warn("could not load key file", "error", err)
		}
	}
	if keyring.Key() == "" {
		if key := credential.EnvKey(); key != "" {
			keyring.Select(key)
		}
	}

	gemini, err := llm.NewGemini(ctx, llm.GeminiConfig{
		BaseURL:   v.GetString("gemini-base-url"),
		Key:       keyring.Key,
		PingModel: v.GetString("text-model"),
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	pingers := map[string]llm.Pinger{"gemini": gemini}

	var text llm.ContentGenerator = gemini
	models := studio.Models{
		Image:    v.GetString("image-model"),
		ProImage: v.GetString("pro-image-model"),
		Video:    v.GetString("video-model"),
		Text:     v.GetString("text-model"),
	}
	switch backend := strings.ToLower(v.GetString("text-backend")); backend {
	case "", "gemini":
	case "openai":
		oa := llm.NewOpenAI(v.GetString("llm-url"), v.GetString("llm-key"), v.GetString("llm-model"))
		text = oa
		models.Text = v.GetString("llm-model")
		pingers["openai"] = oa
		slog.Info("text capabilities use OpenAI-compatible backend", "url", v.GetString("llm-url"), "model", models.Text)
	default:
		return nil, fmt.Errorf("unknown text backend %q", backend)
	}

	svc := studio.New(studio.Options{
		Content: gemini,
		Text:    text,
		Videos:  gemini,
		Fetch:   llm.NewDownloader(keyring.Key, 5*time.Minute).Fetch,
		Policy: poller.Policy{
			Interval:             v.GetDuration("poll-interval"),
			MaxTransientFailures: v.GetInt("poll-max-failures"),
		},
		Selector:     keyring,
		Recorder:     recorder,
		Models:       models,
		VideoTimeout: v.GetDuration("video-timeout"),
	})
	return &backends{service: svc, keyring: keyring, pingers: pingers}, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if n, err := db.FailStaleGenerations(ctx, time.Now().UTC()); err != nil {
		slog.Warn("failed to close abandoned generations", "error", err)
	} else if n > 0 {
		slog.Info("marked abandoned generations as failed", "count", n)
	}

	if password := v.GetString("admin-password"); password != "" {
		if err := handler.SetAdminPassword(ctx, db, password); err != nil {
			return fmt.Errorf("set admin password: %w", err)
		}
		slog.Info("admin password updated")
	} else {
		slog.Warn("no admin password set, admin endpoints accept only an existing stored password")
	}

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	cat, err := catalog.Load(v.GetString("catalog"))
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}

	b, err := buildBackends(ctx, v, db)
	if err != nil {
		return err
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	for name, p := range b.pingers {
		if err := p.Ping(pingCtx); err != nil {
			slog.Warn("backend health check failed", "backend", name, "error", err)
		} else {
			slog.Info("backend OK", "backend", name)
		}
	}
	cancel()

	h := handler.New(handler.Deps{
		Studio:  b.service,
		Store:   db,
		Catalog: cat,
		Keyring: b.keyring,
		Pingers: b.pingers,
	}, handler.Config{
		MaxUploadMB:   v.GetInt("max-upload-mb"),
		VideoTTL:      v.GetDuration("video-ttl"),
		SecureCookies: v.GetBool("secure-cookies"),
	})
	defer h.Close()
	go h.Run(ctx, time.Minute)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   v.GetStringSlice("allowed-origins"),
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Accept-Language", "Content-Type", "X-Client-ID", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(appI18n.Middleware(lang))
	h.Routes(r)

	addr := v.GetString("addr")
	srv := &http.Server{Addr: addr, Handler: r}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown", "error", err)
		}
	}()

	models := b.service.Models()
	slog.Info("starting server",
		"addr", addr,
		"lang", lang,
		"text_backend", v.GetString("text-backend"),
		"image_model", models.Image,
		"video_model", models.Video,
		"text_model", models.Text,
		"has_key", b.keyring.Key() != "",
	)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
