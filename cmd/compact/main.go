// Command compact shrinks agent transcripts that approach the model's
// context window.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/victorarias/agentic-compact/agentic/compact"
	"github.com/victorarias/agentic-compact/agentic/compact/report"
	"github.com/victorarias/agentic-compact/agentic/config"
	"github.com/victorarias/agentic-compact/agentic/events"
	"github.com/victorarias/agentic-compact/agentic/history"
	"github.com/victorarias/agentic-compact/agentic/log"
	"github.com/victorarias/agentic-compact/agentic/message"
	provider "github.com/victorarias/agentic-compact/agentic/providers/anthropic"
	"github.com/victorarias/agentic-compact/agentic/storage"
	"github.com/victorarias/agentic-compact/agentic/storage/postgres"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "compact:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	opts, err := parseCLIArgs(args)
	if err != nil {
		return err
	}

	var envFiles []string
	if opts.EnvFile != "" {
		envFiles = append(envFiles, opts.EnvFile)
	}
	cfg, err := config.Load(opts.ConfigPath, envFiles...)
	if err != nil {
		return err
	}
	if opts.SessionID != "" {
		cfg.SessionID = opts.SessionID
	}
	if opts.WorkDir != "" {
		cfg.WorkDir = opts.WorkDir
	}
	if opts.LogLevel != "" {
		cfg.LogLevel = opts.LogLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := log.New(log.LevelFromString(cfg.LogLevel))

	client, err := newLLMClient(ctx, cfg, logger)
	if err != nil {
		return err
	}
	writer, closeWriter, err := newBodyWriter(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeWriter()

	ccfg := cfg.CompactConfig()
	ccfg.Client = client
	ccfg.Writer = writer
	ccfg.Logger = logger
	ccfg.Events = events.SinkFunc(func(e events.Event) {
		logger.Debug("compaction event", "type", e.Type, "session", e.SessionID, "tokens", e.Tokens, "path", e.Path, "reason", e.Reason)
	})
	compactor, err := compact.New(ccfg)
	if err != nil {
		return err
	}

	a := &app{
		compactor: compactor,
		opts:      opts,
		sessionID: cfg.SessionID,
		logger:    logger,
		stdout:    stdout,
	}
	if opts.Watch {
		return a.watch(ctx)
	}
	if opts.StoreDir != "" {
		return a.compactStore(ctx)
	}
	return a.compactFile(ctx, opts.Input)
}

func newLLMClient(ctx context.Context, cfg config.Config, logger log.Logger) (compact.LLMClient, error) {
	if cfg.Provider.VertexProject != "" {
		return provider.NewVertex(ctx, provider.VertexConfig{
			Project:  cfg.Provider.VertexProject,
			Location: cfg.Provider.VertexLocation,
			Logger:   logger,
		})
	}
	return provider.New(provider.Config{
		APIKey:  cfg.Provider.APIKey,
		BaseURL: cfg.Provider.BaseURL,
		Logger:  logger,
	})
}

func newBodyWriter(ctx context.Context, cfg config.Config) (compact.BodyWriter, func(), error) {
	if cfg.Archive.DSN == "" {
		return storage.NewFileWriter(""), func() {}, nil
	}
	switch cfg.Archive.Driver {
	case config.DriverPostgres:
		db, err := postgres.OpenSQL(ctx, cfg.Archive.DSN)
		if err != nil {
			return nil, nil, err
		}
		w := postgres.NewSQLWriter(db, cfg.Archive.Table)
		if err := w.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return w, func() { _ = db.Close() }, nil
	default:
		pool, err := postgres.Connect(ctx, cfg.Archive.DSN)
		if err != nil {
			return nil, nil, err
		}
		w := postgres.New(pool, postgres.WithTable(cfg.Archive.Table))
		if err := w.Migrate(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return w, pool.Close, nil
	}
}

type app struct {
	compactor history.Compactor
	opts      cliOptions
	sessionID string
	logger    log.Logger
	stdout    io.Writer
}

func (a *app) compactStore(ctx context.Context) error {
	store, err := storage.NewSessionStore(a.opts.StoreDir, a.sessionID)
	if err != nil {
		return err
	}
	result, err := history.Compact(ctx, store, a.compactor)
	if err != nil {
		return err
	}
	a.report(store.Path(), result)
	return a.writeHTML(result)
}

func (a *app) compactFile(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	transcript, err := decodeTranscript(data)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	result, err := a.compactor.Compact(ctx, transcript)
	if err != nil {
		return err
	}
	a.report(path, result)

	out := a.opts.Output
	switch {
	case out == "-":
		if err := writeTranscript(a.stdout, result.Messages); err != nil {
			return err
		}
	case !result.Compacted && (out == "" || samePath(out, path)):
		// Nothing changed in place.
	default:
		if out == "" {
			out = path
		}
		if err := saveTranscript(ctx, out, result.Messages); err != nil {
			return err
		}
	}
	return a.writeHTML(result)
}

func (a *app) report(path string, result compact.Result) {
	if !result.Compacted {
		a.logger.Info("transcript left unchanged", "path", path)
		return
	}
	a.logger.Info("transcript compacted",
		"path", path,
		"original_tokens", result.Stats.OriginalTokens,
		"compacted_tokens", result.Stats.CompactedTokens,
		"compaction_ratio", fmt.Sprintf("%.3f", result.Stats.CompactionRatio),
		"original_body", result.OriginalBodyPath,
	)
}

func (a *app) writeHTML(result compact.Result) error {
	if a.opts.HTMLPath == "" {
		return nil
	}
	f, err := os.Create(a.opts.HTMLPath)
	if err != nil {
		return err
	}
	if err := report.RenderHTML(f, "", result); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

type sessionFile struct {
	Messages []message.Message `json:"messages"`
}

// decodeTranscript accepts a bare JSON array of messages or a session file
// object with a "messages" field.
func decodeTranscript(data []byte) ([]message.Message, error) {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return nil, errors.New("empty transcript")
	}
	var messages []message.Message
	if strings.HasPrefix(trimmed, "{") {
		var payload sessionFile
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, err
		}
		messages = payload.Messages
	} else if err := json.Unmarshal(data, &messages); err != nil {
		return nil, err
	}
	for i, msg := range messages {
		if err := msg.Validate(); err != nil {
			return nil, fmt.Errorf("message %d: %w", i, err)
		}
	}
	return messages, nil
}

func writeTranscript(w io.Writer, messages []message.Message) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(messages)
}

func saveTranscript(ctx context.Context, path string, messages []message.Message) error {
	data, err := json.MarshalIndent(messages, "", "  ")
	if err != nil {
		return err
	}
	return storage.NewFileWriter("").Write(ctx, path, append(data, '\n'))
}

func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	return errA == nil && errB == nil && absA == absB
}
