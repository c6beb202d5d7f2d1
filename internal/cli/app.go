// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/gemaraproj/casrel/internal/config"
	"github.com/gemaraproj/casrel/internal/extraction"
	"github.com/gemaraproj/casrel/internal/extraction/taggers"
	"github.com/gemaraproj/casrel/internal/logger"
	"github.com/gemaraproj/casrel/internal/tokenizer"
)

// app holds what every model command needs for one run.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	closer io.Closer
	runID  string
}

// newApp loads configuration and builds the run logger. Logs go to the
// command's error stream so stdout stays clean for results and MCP traffic.
func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if verbose {
		cfg.Log.Level = "debug"
	}

	log, closer, err := logger.New(cmd.ErrOrStderr(), cfg.Log)
	if err != nil {
		return nil, err
	}
	runID := uuid.NewString()
	return &app{
		cfg:    cfg,
		logger: log.With("run_id", runID, "command", cmd.Name()),
		closer: closer,
		runID:  runID,
	}, nil
}

func (a *app) Close() error {
	return a.closer.Close()
}

// pipeline wires the tokenizer, taggers and decoder described by the config.
func (a *app) pipeline() (*extraction.Pipeline, error) {
	cfg := a.cfg
	if err := cfg.RequireModel(); err != nil {
		return nil, err
	}

	vocab, err := tokenizer.LoadVocab(cfg.VocabPath)
	if err != nil {
		return nil, err
	}
	relations, err := extraction.LoadRelations(cfg.RelationsPath)
	if err != nil {
		return nil, err
	}

	var (
		subjects extraction.SubjectTagger
		objects  extraction.ObjectTagger
	)
	switch cfg.Scorer.Kind {
	case config.ScorerFixture:
		fixture, err := taggers.LoadFixture(cfg.Scorer.FixturePath)
		if err != nil {
			return nil, err
		}
		a.logger.Debug("fixture loaded", "path", cfg.Scorer.FixturePath, "documents", fixture.Len())
		subjects, objects = fixture, fixture
	case config.ScorerRemote:
		heads, err := taggers.LoadHeads(cfg.Scorer.HeadsPath)
		if err != nil {
			return nil, err
		}
		if heads.NumRelations() != len(relations) {
			return nil, fmt.Errorf("head weights have %d relation outputs but %q lists %d relations",
				heads.NumRelations(), cfg.RelationsPath, len(relations))
		}
		scorer, err := taggers.NewRemoteScorer(taggers.RemoteConfig{
			BaseURL:           cfg.Scorer.BaseURL,
			Timeout:           cfg.Scorer.Timeout,
			RequestsPerSecond: cfg.Scorer.RequestsPerSecond,
			Burst:             cfg.Scorer.Burst,
		})
		if err != nil {
			return nil, err
		}
		subjects, objects = heads.Models(scorer)
	default:
		return nil, fmt.Errorf("unknown scorer kind %q", cfg.Scorer.Kind)
	}

	a.logger.Info("model loaded",
		"vocab_size", len(vocab),
		"relations", len(relations),
		"scorer", cfg.Scorer.Kind,
		"cased", cfg.Cased,
	)

	tok := tokenizer.New(vocab, tokenizer.WithCased(cfg.Cased))
	decoder := extraction.NewDecoder(relations, extraction.WithThresholds(cfg.HeadThreshold, cfg.TailThreshold))
	return extraction.NewPipeline(tok, subjects, objects, decoder,
		extraction.WithMaxLen(cfg.MaxLen),
		extraction.WithLogger(a.logger),
	), nil
}
