package rsop

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Source produces a resultant-policy document for the computer scope of
// the host the tool runs on.
type Source interface {
	Export(ctx context.Context) ([]byte, error)
}

// DefaultCommand is the capture invocation used when no override is
// configured. The {path} token is replaced with the artifact path.
var DefaultCommand = []string{"gpresult", "/SCOPE", "COMPUTER", "/X", "{path}", "/F"}

// CommandSource shells out to a capture tool that writes the resultant
// policy to a file, reads the artifact back and removes it.
type CommandSource struct {
	command    []string
	scratchDir string
	logger     *slog.Logger
}

type SourceOption func(*CommandSource)

// WithCommand overrides the capture invocation. The argv should contain a
// {path} token; without one the tool is assumed to write the artifact
// path given as its last argument.
func WithCommand(argv []string) SourceOption {
	return func(s *CommandSource) {
		if len(argv) > 0 {
			s.command = argv
		}
	}
}

func WithScratchDir(dir string) SourceOption {
	return func(s *CommandSource) {
		if dir != "" {
			s.scratchDir = dir
		}
	}
}

func WithLogger(logger *slog.Logger) SourceOption {
	return func(s *CommandSource) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func NewCommandSource(opts ...SourceOption) *CommandSource {
	s := &CommandSource{
		command:    DefaultCommand,
		scratchDir: os.TempDir(),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *CommandSource) Export(ctx context.Context) ([]byte, error) {
	artifact := filepath.Join(s.scratchDir, fmt.Sprintf("dabastion-rsop-%s.xml", uuid.New()))

	argv := make([]string, len(s.command))
	substituted := false
	for i, arg := range s.command {
		argv[i] = strings.ReplaceAll(arg, "{path}", artifact)
		if argv[i] != arg {
			substituted = true
		}
	}
	if !substituted {
		argv = append(argv, artifact)
	}

	s.logger.Info("exporting resultant policy", "command", argv[0], "artifact", artifact)
	out, err := exec.CommandContext(ctx, argv[0], argv[1:]...).CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("resultant policy export failed: %w (output: %s)", err, strings.TrimSpace(string(out)))
	}
	defer os.Remove(artifact)

	doc, err := os.ReadFile(artifact)
	if err != nil {
		return nil, fmt.Errorf("reading resultant policy artifact: %w", err)
	}
	return doc, nil
}
