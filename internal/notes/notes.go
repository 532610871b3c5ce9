// Package notes turns a transcript and slide analyses into study-material
// artifacts. It assembles a bounded context, requests all configured
// sections from the generation capability in one call, and writes each
// section to its own markdown file. A missing section degrades to a
// placeholder artifact rather than failing the stage.
package notes

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"lectern/internal/capability"
	"lectern/internal/logging"
	"lectern/internal/services"
)

// Options controls context assembly and the requested sections.
type Options struct {
	Sections     []string
	ContextLimit int
}

// Generator produces the per-section markdown artifacts.
type Generator struct {
	backend capability.SectionGenerator
	opts    Options
	logger  *slog.Logger
}

// NewGenerator creates a Generator with default sections and limits filled.
func NewGenerator(backend capability.SectionGenerator, opts Options, logger *slog.Logger) *Generator {
	if len(opts.Sections) == 0 {
		opts.Sections = []string{"lecture_notes", "summary", "qa_cards"}
	}
	if opts.ContextLimit <= 0 {
		opts.ContextLimit = 8000
	}
	return &Generator{
		backend: backend,
		opts:    opts,
		logger:  logging.NewComponentLogger(logger, "notes"),
	}
}

// SectionFilename maps a section name to its artifact file.
func SectionFilename(name string) string {
	return name + ".md"
}

// Generate runs one batched generation call and writes every configured
// section into dir. Returns the artifact paths keyed by section name.
func (g *Generator) Generate(ctx context.Context, contextText string, dir string) (map[string]string, error) {
	start := time.Now()
	sections, err := g.backend.GenerateSections(ctx, contextText, g.opts.Sections)
	if err != nil {
		return nil, err
	}

	paths := make(map[string]string, len(g.opts.Sections))
	for _, name := range g.opts.Sections {
		body, found := sections[name]
		if !found {
			g.logger.Warn("section missing from model response, writing placeholder",
				logging.String("section", name),
			)
			body = placeholder(name)
		}
		path := filepath.Join(dir, SectionFilename(name))
		if err := os.WriteFile(path, []byte(body+"\n"), 0o644); err != nil {
			return nil, services.Wrap(services.ErrTransient, "notes", "write section", "write section artifact", err)
		}
		paths[name] = path
	}

	g.logger.Info("notes generation complete",
		logging.Int("sections", len(paths)),
		logging.Duration("elapsed", time.Since(start)),
	)
	return paths, nil
}

func placeholder(name string) string {
	return fmt.Sprintf("# %s\n\n_Generation for this section failed; re-run the notes stage to retry._", name)
}
