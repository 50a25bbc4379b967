package analyzer

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ccollicutt/faultscope/pkg/config"
	"github.com/ccollicutt/faultscope/pkg/parser"
	"github.com/ccollicutt/faultscope/pkg/patterns"
	"github.com/ccollicutt/faultscope/pkg/troubleshoot"
)

var (
	// ErrNotScanning is returned by Observe outside the Scanning state.
	ErrNotScanning = errors.New("engine is not scanning")

	// ErrAlreadyAnchored is returned by Anchor once an anchor is set.
	ErrAlreadyAnchored = errors.New("engine already has an anchor")
)

// CorrelationEngine walks events backward from the anchor, tracking open
// error codes and cancelling fault set/cleared pairs until the window closes.
// One engine serves exactly one scan.
type CorrelationEngine struct {
	provider  string
	signature *patterns.Signature
	periodMin time.Duration
	periodMax time.Duration
	missLimit int
	table     *troubleshoot.Table
	logger    *zap.Logger

	// State
	state       State
	anchor      *Anchor
	misses      int
	errorRepeat int
	exhausted   bool
	open        map[string]*OpenErrorEntry // key: token
	order       []string                   // tokens in first-sighting order
}

// NewCorrelationEngine creates an engine from a validated configuration.
// A nil table means no troubleshooting table is available; a nil logger
// disables logging.
func NewCorrelationEngine(cfg *config.Config, table *troubleshoot.Table, logger *zap.Logger) (*CorrelationEngine, error) {
	signature := cfg.Signature.Compiled()
	if signature == nil {
		return nil, fmt.Errorf("signature %q is not compiled (validate the config first)", cfg.Signature.Phrase)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &CorrelationEngine{
		provider:  cfg.Signature.Provider,
		signature: signature,
		periodMin: cfg.Window.PeriodMin,
		periodMax: cfg.Window.PeriodMax,
		missLimit: cfg.Window.MissLimit,
		table:     table,
		logger:    logger,
		state:     StateSeeking,
		open:      make(map[string]*OpenErrorEntry),
	}, nil
}

// State returns the current state.
func (e *CorrelationEngine) State() State {
	return e.state
}

// Reference returns the anchor timestamp, or the zero time while seeking.
func (e *CorrelationEngine) Reference() time.Time {
	if e.anchor == nil {
		return time.Time{}
	}
	return e.anchor.Timestamp
}

// Anchor records ev as the anchor event and starts scanning.
func (e *CorrelationEngine) Anchor(ev *parser.ParsedEvent, errorText string) error {
	if e.state != StateSeeking {
		return ErrAlreadyAnchored
	}

	e.anchor = &Anchor{
		Error:       errorText,
		TimeCreated: ev.TimeCreated,
		Timestamp:   ev.Timestamp,
		Computer:    ev.Computer,
		Keywords:    ev.Keywords,
		UserID:      ev.UserID,
	}
	e.state = StateScanning

	e.logger.Info("anchor event found",
		zap.String("time_created", ev.TimeCreated),
		zap.String("computer", ev.Computer))

	return nil
}

// Observe feeds the next older event into the window. ref is the reference
// timestamp the distance is measured against, normally Reference().
func (e *CorrelationEngine) Observe(ev *parser.ParsedEvent, ref time.Time) (State, error) {
	if e.state != StateScanning {
		return e.state, ErrNotScanning
	}

	d := absDuration(ev.Timestamp.Sub(ref))

	if ev.Provider != e.provider {
		e.misses++
		if !missCounterExceeded(e.misses, e.missLimit) {
			return e.state, nil
		}
		if !isWithinSameDay(d) || exceedsMaxPeriod(d, e.periodMax) {
			e.close("foreign events beyond window", d)
			return e.state, nil
		}
		e.misses = 0
		return e.state, nil
	}

	e.misses = 0
	if !isWithinSameDay(d) || exceedsMaxPeriod(d, e.periodMax) {
		e.close("event beyond window", d)
		return e.state, nil
	}
	if exceedsMinPeriod(d, e.periodMin) {
		e.correlate(ev, wholeSeconds(d))
	}

	return e.state, nil
}

// Finish closes a scanning engine whose input ran out before the window
// closed and marks the terminal state as exhausted.
func (e *CorrelationEngine) Finish() State {
	if e.state == StateScanning {
		e.state = StateClosed
		e.exhausted = true
		e.logger.Debug("window closed at end of input", zap.Int("open_errors", len(e.order)))
	}
	return e.state
}

// Terminal returns a snapshot of the engine's state.
func (e *CorrelationEngine) Terminal() *Terminal {
	t := &Terminal{
		State:        e.state,
		ErrorRepeat:  e.errorRepeat,
		TablePresent: e.table.Present(),
		Exhausted:    e.exhausted,
		Entries:      make([]OpenErrorEntry, 0, len(e.order)),
	}
	if e.anchor != nil {
		a := *e.anchor
		t.Anchor = &a
	}
	for _, token := range e.order {
		entry := *e.open[token]
		entry.Metadata = append([]string(nil), entry.Metadata...)
		t.Entries = append(t.Entries, entry)
	}
	return t
}

func (e *CorrelationEngine) close(reason string, d time.Duration) {
	e.state = StateClosed
	e.logger.Debug("window closed",
		zap.String("reason", reason),
		zap.Duration("distance", d),
		zap.Int("open_errors", len(e.order)))
}

// correlate handles an event from the watched provider inside the window.
func (e *CorrelationEngine) correlate(ev *parser.ParsedEvent, diff int) {
	if _, ok := e.signature.Match(ev.Data); ok {
		e.errorRepeat++
	}

	key, description, ok := ExtractErrorCode(ev.Data)
	if !ok {
		return
	}

	entry, exists := e.open[key.Token()]
	if exists {
		entry.Repeat++
	} else {
		entry = &OpenErrorEntry{
			Code:        key,
			TimeBefore:  diff,
			Computer:    ev.Computer,
			Keywords:    ev.Keywords,
			UserID:      ev.UserID,
			Metadata:    patterns.StringBlocks(ev.Data),
			Description: description,
		}
		e.open[key.Token()] = entry
		e.order = append(e.order, key.Token())
	}

	other := e.findCleared(key, description)
	if other == nil {
		return
	}

	e.logger.Debug("fault set/cleared pair resolved",
		zap.String("set", key.Token()),
		zap.String("cleared", other.Code.Token()))

	e.release(entry)
	e.release(other)
}

// findCleared returns the first other open entry that clears the fault set
// described by description, or nil.
func (e *CorrelationEngine) findCleared(key ErrorCodeKey, description string) *OpenErrorEntry {
	setText, ok := patterns.FaultSet(description)
	if !ok {
		return nil
	}

	for _, token := range e.order {
		other := e.open[token]
		if token == key.Token() || other.Code.Category != key.Category {
			continue
		}
		if e.clears(key, setText, other) {
			return other
		}
	}
	return nil
}

func (e *CorrelationEngine) clears(key ErrorCodeKey, setText string, other *OpenErrorEntry) bool {
	switch key.Category {
	case CategoryAPI, CategoryVPS:
		if !e.table.Present() {
			return false
		}
		text, ok := e.table.Lookup(other.Code.Token())
		if !ok {
			return false
		}
		clearedText, ok := patterns.FaultCleared(text)
		return ok && clearedText == setText
	case CategoryLCS:
		return int(other.Code.Offset)-lcsClearedDelta == int(key.Offset)
	default:
		return false
	}
}

// release decrements an entry's repeat count, removing it at zero.
func (e *CorrelationEngine) release(entry *OpenErrorEntry) {
	if entry.Repeat > 0 {
		entry.Repeat--
		return
	}

	token := entry.Code.Token()
	delete(e.open, token)
	for i, t := range e.order {
		if t == token {
			e.order = append(e.order[:i], e.order[i+1:]...)
			break
		}
	}
}
