package analyzer

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/ccollicutt/faultscope/pkg/config"
	"github.com/ccollicutt/faultscope/pkg/parser"
	"github.com/ccollicutt/faultscope/pkg/troubleshoot"
)

// Analyzer runs one correlation scan per record source. It holds no
// per-scan state and may be shared by concurrent scans.
type Analyzer struct {
	cfg      *config.Config
	detector *SignatureDetector

	// Options
	table  *troubleshoot.Table
	strict bool
	logger *zap.Logger
}

// AnalyzerOption configures analyzer behavior.
type AnalyzerOption func(*Analyzer)

// WithTable overrides the troubleshooting table taken from the configuration.
func WithTable(t *troubleshoot.Table) AnalyzerOption {
	return func(a *Analyzer) {
		a.table = t
	}
}

// WithStrict makes a malformed record abort the scan instead of being skipped.
func WithStrict(strict bool) AnalyzerOption {
	return func(a *Analyzer) {
		a.strict = strict
	}
}

// WithLogger sets the logger used for scan diagnostics.
func WithLogger(l *zap.Logger) AnalyzerOption {
	return func(a *Analyzer) {
		if l != nil {
			a.logger = l
		}
	}
}

// NewAnalyzer creates a new analyzer from a validated configuration.
func NewAnalyzer(cfg *config.Config, opts ...AnalyzerOption) (*Analyzer, error) {
	signature := cfg.Signature.Compiled()
	if signature == nil {
		return nil, fmt.Errorf("signature %q is not compiled (validate the config first)", cfg.Signature.Phrase)
	}

	a := &Analyzer{
		cfg:      cfg,
		detector: NewSignatureDetector(cfg.Signature.Provider, signature),
		table:    cfg.Table(),
		logger:   zap.NewNop(),
	}

	for _, opt := range opts {
		opt(a)
	}

	return a, nil
}

// Result contains the outcome of one scan.
type Result struct {
	// Terminal is the engine's final state.
	Terminal *Terminal

	// Source is the source of the first record read, if any.
	Source string

	// RecordsRead is the number of records supplied by the source.
	RecordsRead int

	// RecordsSkipped is the number of malformed records passed over.
	RecordsSkipped int

	// RecordsScanned is the number of records parsed before the scan stopped.
	RecordsScanned int

	// StartTime is when the scan began.
	StartTime time.Time

	// EndTime is when the scan completed.
	EndTime time.Time
}

// Analyze reads every record from source, then walks them newest-first:
// records are offered to the signature detector until an anchor is found,
// and to a fresh CorrelationEngine afterwards until its window closes.
func (a *Analyzer) Analyze(ctx context.Context, source parser.RecordSource) (*Result, error) {
	result := &Result{StartTime: time.Now()}

	var records []*parser.RawRecord
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		rec, err := source.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading record source: %w", err)
		}
		records = append(records, rec)
	}
	result.RecordsRead = len(records)
	if len(records) > 0 {
		result.Source = records[0].Source
	}

	engine, err := NewCorrelationEngine(a.cfg, a.table, a.logger)
	if err != nil {
		return nil, err
	}

	for i := len(records) - 1; i >= 0; i-- {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		rec := records[i]
		ev, err := parser.Parse(rec)
		if err != nil {
			if a.strict {
				return nil, fmt.Errorf("%s record %d: %w", rec.Source, rec.Index, err)
			}
			result.RecordsSkipped++
			a.logger.Warn("skipping malformed record",
				zap.String("source", rec.Source),
				zap.Int("index", rec.Index),
				zap.Error(err))
			continue
		}
		result.RecordsScanned++

		if engine.State() == StateSeeking {
			if text, ok := a.detector.IsAnchor(ev); ok {
				if err := engine.Anchor(ev, text); err != nil {
					return nil, err
				}
			}
			continue
		}

		state, err := engine.Observe(ev, engine.Reference())
		if err != nil {
			return nil, fmt.Errorf("observing %s record %d: %w", rec.Source, rec.Index, err)
		}
		if state == StateClosed {
			break
		}
	}

	engine.Finish()
	result.Terminal = engine.Terminal()
	result.EndTime = time.Now()

	return result, nil
}
