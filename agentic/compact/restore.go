package compact

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/victorarias/agentic-compact/agentic/budget"
	"github.com/victorarias/agentic-compact/agentic/log"
	"github.com/victorarias/agentic-compact/agentic/message"
	"github.com/victorarias/agentic-compact/agentic/storage"
)

// ReadFileTool is the tool name whose invocations mark files for restoration.
// The file is taken from the invocation's "path" input; other keys such as
// "file_path" are not recognised.
const ReadFileTool = "read_file"

// RestoredPrefix starts every restored file message.
const RestoredPrefix = "[Restored after compact]"

// FileReader gives the restorer access to file contents.
type FileReader interface {
	Exists(ctx context.Context, path string) bool
	Read(ctx context.Context, path string) (string, error)
}

// RestoreOptions bounds file restoration. The token caps are literal: a zero
// cap rejects every non-empty file.
type RestoreOptions struct {
	MaxFiles         int
	MaxTokensPerFile int
	MaxTokensTotal   int
	WorkDir          string
	Exclude          []string

	// Reader defaults to storage.NewFileReader().
	Reader FileReader
	Logger log.Logger

	// Counter estimates file cost locally. Default: budget.CharCounter{}.
	Counter budget.TokenCounter
}

// RecentReads returns the paths passed to read_file by assistant messages,
// most recent first. A path read several times is placed by its last read.
func RecentReads(messages []message.Message) []string {
	order := make(map[string]int)
	next := 0
	for _, msg := range messages {
		if msg.Role != message.RoleAssistant || !msg.HasSegments() {
			continue
		}
		for _, seg := range msg.Segments {
			call, ok := seg.(message.ToolInvocation)
			if !ok || call.Name != ReadFileTool {
				continue
			}
			path, _ := call.Input["path"].(string)
			if path == "" {
				continue
			}
			order[path] = next
			next++
		}
	}

	paths := make([]string, 0, len(order))
	for path := range order {
		paths = append(paths, path)
	}
	sort.Slice(paths, func(i, j int) bool {
		return order[paths[i]] > order[paths[j]]
	})
	return paths
}

// RestoreRecentFiles re-reads the files most recently opened with read_file
// and returns one user message per accepted file, most recent first, together
// with the estimated tokens they use. Rejected files are logged and skipped;
// reaching MaxTokensTotal ends the scan.
func RestoreRecentFiles(ctx context.Context, messages []message.Message, opts RestoreOptions) ([]message.Message, int) {
	if opts.MaxFiles <= 0 {
		return nil, 0
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Null()
	}
	counter := opts.Counter
	if counter == nil {
		counter = budget.CharCounter{}
	}
	reader := opts.Reader
	if reader == nil {
		reader = storage.NewFileReader()
	}

	candidates := RecentReads(messages)
	if len(candidates) == 0 {
		return nil, 0
	}
	if len(candidates) > opts.MaxFiles {
		candidates = candidates[:opts.MaxFiles]
	}

	root, err := filepath.Abs(opts.WorkDir)
	if err != nil {
		logger.Error("cannot resolve working directory, skipping file restoration",
			"work_dir", opts.WorkDir,
			"error", err,
		)
		return nil, 0
	}
	root = filepath.Clean(root)

	ledger := &budget.Ledger{PerItem: opts.MaxTokensPerFile, Total: opts.MaxTokensTotal}
	var restored []message.Message

	for _, path := range candidates {
		if err := ctx.Err(); err != nil {
			logger.Warn("file restoration cancelled", "error", err)
			break
		}

		resolved, err := resolveWithin(root, path)
		if err != nil {
			logger.Warn("path traversal detected, skipping file",
				"path", path,
				"resolved_path", resolved,
				"work_dir", root,
			)
			continue
		}
		if pattern, ok := excluded(root, resolved, opts.Exclude); ok {
			logger.Warn("file matches restore exclusion, skipping",
				"path", resolved,
				"pattern", pattern,
			)
			continue
		}
		if !reader.Exists(ctx, resolved) {
			logger.Warn("file not found, skipping restoration", "path", resolved)
			continue
		}
		content, err := reader.Read(ctx, resolved)
		if err != nil {
			logger.Warn("failed to read file, skipping restoration",
				"path", resolved,
				"error", err,
			)
			continue
		}

		tokens := counter.Count(content)
		switch ledger.Offer(tokens) {
		case budget.SkipItem:
			logger.Warn("file exceeds per-file token limit, skipping",
				"path", resolved,
				"file_tokens", tokens,
				"max_tokens_per_file", opts.MaxTokensPerFile,
			)
			continue
		case budget.Exhausted:
			logger.Info("total restore token limit reached, stopping file restoration",
				"cumulative_tokens", ledger.Used(),
				"file_tokens", tokens,
				"max_tokens_total", opts.MaxTokensTotal,
			)
			return restored, ledger.Used()
		}

		restored = append(restored, message.NewText(
			message.RoleUser,
			fmt.Sprintf("%s %s:\n%s", RestoredPrefix, path, content),
		))
	}

	return restored, ledger.Used()
}

// resolveWithin joins path onto root and rejects anything that lands outside it.
func resolveWithin(root, path string) (string, error) {
	target := path
	if !filepath.IsAbs(target) {
		target = filepath.Join(root, target)
	}
	target = filepath.Clean(target)
	rel, err := filepath.Rel(root, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return target, ErrPathOutsideWorkDir
	}
	return target, nil
}

func excluded(root, resolved string, patterns []string) (string, bool) {
	if len(patterns) == 0 {
		return "", false
	}
	rel, err := filepath.Rel(root, resolved)
	if err != nil {
		return "", false
	}
	rel = filepath.ToSlash(rel)
	for _, pattern := range patterns {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return pattern, true
		}
	}
	return "", false
}
