package aggregator

import (
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/ai-agentic-browser/sniper/internal/config"
	"github.com/ai-agentic-browser/sniper/internal/domain"
)

// FilterReason names why an event was rejected by the chain, in the order
// the chain evaluates them (spec.md §4.3).
type FilterReason int

const (
	FilterReasonNone FilterReason = iota
	FilterReasonAmountTooSmall
	FilterReasonAmountTooLarge
	FilterReasonMissingDevTrade
	FilterReasonBlacklisted
	FilterReasonNotWhitelisted
	FilterReasonOutsideTimeWindow
	FilterReasonAbnormalFrequency
	FilterReasonDuplicateEvent
)

func (r FilterReason) String() string {
	switch r {
	case FilterReasonAmountTooSmall:
		return "amount_too_small"
	case FilterReasonAmountTooLarge:
		return "amount_too_large"
	case FilterReasonMissingDevTrade:
		return "missing_dev_trade"
	case FilterReasonBlacklisted:
		return "blacklisted_address"
	case FilterReasonNotWhitelisted:
		return "not_whitelisted"
	case FilterReasonOutsideTimeWindow:
		return "outside_time_window"
	case FilterReasonAbnormalFrequency:
		return "abnormal_frequency"
	case FilterReasonDuplicateEvent:
		return "duplicate_event"
	default:
		return "none"
	}
}

// FilterStats tallies accept/reject counts, mirroring the teacher-adjacent
// observability convention of exposing plain counters alongside otel metrics.
type FilterStats struct {
	mu             sync.Mutex
	TotalEvents    uint64
	PassedEvents   uint64
	FilteredEvents uint64
	ReasonCounts   map[FilterReason]uint64
}

func newFilterStats() *FilterStats {
	return &FilterStats{ReasonCounts: make(map[FilterReason]uint64)}
}

func (s *FilterStats) recordPass() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.TotalEvents++
	s.PassedEvents++
}

func (s *FilterStats) recordFilter(reason FilterReason) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.TotalEvents++
	s.FilteredEvents++
	s.ReasonCounts[reason]++
}

// Filter is the 7-stage filter chain, short-circuiting on the first failing
// stage in the exact order spec.md §4.3 specifies.
type Filter struct {
	cfg config.FilterConfig

	blacklist map[solana.PublicKey]struct{}
	whitelist map[solana.PublicKey]struct{}

	mu            sync.Mutex
	devTrades     map[solana.PublicKey]struct{}
	frequency     map[solana.PublicKey]*frequencyEntry
	seenEvents    map[uint64]time.Time

	stats *FilterStats
}

type frequencyEntry struct {
	count     int
	lastReset time.Time
}

// NewFilter builds a filter chain from the resolved configuration,
// pre-parsing the blacklist/whitelist address lists once at construction.
func NewFilter(cfg config.FilterConfig) *Filter {
	f := &Filter{
		cfg:        cfg,
		blacklist:  parseAddressSet(cfg.Blacklist),
		whitelist:  parseAddressSet(cfg.Whitelist),
		devTrades:  make(map[solana.PublicKey]struct{}),
		frequency:  make(map[solana.PublicKey]*frequencyEntry),
		seenEvents: make(map[uint64]time.Time),
		stats:      newFilterStats(),
	}
	return f
}

func parseAddressSet(addrs []string) map[solana.PublicKey]struct{} {
	set := make(map[solana.PublicKey]struct{}, len(addrs))
	for _, a := range addrs {
		pk, err := solana.PublicKeyFromBase58(a)
		if err != nil {
			continue
		}
		set[pk] = struct{}{}
	}
	return set
}

// Evaluate runs the 7-stage chain against now and returns (true, ReasonNone)
// on acceptance, or (false, reason) for the first stage that rejects.
func (f *Filter) Evaluate(ev domain.AnalyticalEvent, now time.Time) (bool, FilterReason) {
	if reason, ok := f.checkAmountRange(ev); !ok {
		f.stats.recordFilter(reason)
		return false, reason
	}
	if reason, ok := f.checkDevTrade(ev); !ok {
		f.stats.recordFilter(reason)
		return false, reason
	}
	if reason, ok := f.checkBlacklist(ev); !ok {
		f.stats.recordFilter(reason)
		return false, reason
	}
	if reason, ok := f.checkWhitelist(ev); !ok {
		f.stats.recordFilter(reason)
		return false, reason
	}
	if reason, ok := f.checkTimeWindow(ev, now); !ok {
		f.stats.recordFilter(reason)
		return false, reason
	}
	if reason, ok := f.checkFrequency(ev, now); !ok {
		f.stats.recordFilter(reason)
		return false, reason
	}
	if reason, ok := f.checkDuplicate(ev, now); !ok {
		f.stats.recordFilter(reason)
		return false, reason
	}
	f.stats.recordPass()
	return true, FilterReasonNone
}

func (f *Filter) checkAmountRange(ev domain.AnalyticalEvent) (FilterReason, bool) {
	amountSOL := float64(ev.SolAmount) / 1_000_000_000.0
	if f.cfg.MinSOLAmount > 0 && amountSOL < f.cfg.MinSOLAmount {
		return FilterReasonAmountTooSmall, false
	}
	if f.cfg.MaxSOLAmount > 0 && amountSOL > f.cfg.MaxSOLAmount {
		return FilterReasonAmountTooLarge, false
	}
	return FilterReasonNone, true
}

func (f *Filter) checkDevTrade(ev domain.AnalyticalEvent) (FilterReason, bool) {
	if !f.cfg.RequireDevTrade {
		return FilterReasonNone, true
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if ev.IsDevTrade {
		f.devTrades[ev.Mint] = struct{}{}
		return FilterReasonNone, true
	}
	if _, seen := f.devTrades[ev.Mint]; seen {
		return FilterReasonNone, true
	}
	return FilterReasonMissingDevTrade, false
}

func (f *Filter) checkBlacklist(ev domain.AnalyticalEvent) (FilterReason, bool) {
	if !f.cfg.EnableBlacklist {
		return FilterReasonNone, true
	}
	if _, blocked := f.blacklist[ev.User]; blocked {
		return FilterReasonBlacklisted, false
	}
	return FilterReasonNone, true
}

func (f *Filter) checkWhitelist(ev domain.AnalyticalEvent) (FilterReason, bool) {
	if !f.cfg.EnableWhitelist {
		return FilterReasonNone, true
	}
	if _, allowed := f.whitelist[ev.User]; !allowed {
		return FilterReasonNotWhitelisted, false
	}
	return FilterReasonNone, true
}

func (f *Filter) checkTimeWindow(ev domain.AnalyticalEvent, _ time.Time) (FilterReason, bool) {
	if !f.cfg.TimeWindowEnabled {
		return FilterReasonNone, true
	}
	hour := ev.Timestamp.UTC().Hour()
	start, end := f.cfg.TimeWindowStartHour, f.cfg.TimeWindowEndHour
	var inWindow bool
	if start <= end {
		inWindow = hour >= start && hour <= end
	} else {
		// Window wraps midnight, e.g. start=22 end=2.
		inWindow = hour >= start || hour <= end
	}
	if !inWindow {
		return FilterReasonOutsideTimeWindow, false
	}
	return FilterReasonNone, true
}

func (f *Filter) checkFrequency(ev domain.AnalyticalEvent, now time.Time) (FilterReason, bool) {
	if f.cfg.MaxFrequencyPerSecond <= 0 {
		return FilterReasonNone, true
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	entry, ok := f.frequency[ev.Mint]
	if !ok {
		entry = &frequencyEntry{count: 0, lastReset: now}
		f.frequency[ev.Mint] = entry
	}

	elapsed := now.Sub(entry.lastReset).Seconds()
	if elapsed >= 1.0 {
		entry.count = 1
		entry.lastReset = now
		return FilterReasonNone, true
	}

	entry.count++
	divisor := elapsed
	if divisor < 0.001 {
		divisor = 0.001
	}
	frequency := float64(entry.count) / divisor
	if frequency > f.cfg.MaxFrequencyPerSecond {
		return FilterReasonAbnormalFrequency, false
	}
	return FilterReasonNone, true
}

func (f *Filter) checkDuplicate(ev domain.AnalyticalEvent, now time.Time) (FilterReason, bool) {
	if !f.cfg.EnableDuplicateDetect {
		return FilterReasonNone, true
	}
	hash := eventHash(ev)

	f.mu.Lock()
	defer f.mu.Unlock()

	for h, ts := range f.seenEvents {
		if now.Sub(ts) >= f.cfg.DuplicateWindow {
			delete(f.seenEvents, h)
		}
	}

	if _, dup := f.seenEvents[hash]; dup {
		return FilterReasonDuplicateEvent, false
	}
	f.seenEvents[hash] = now
	return FilterReasonNone, true
}

// Stats returns a point-in-time snapshot of acceptance/rejection counters.
func (f *Filter) Stats() FilterStats {
	f.stats.mu.Lock()
	defer f.stats.mu.Unlock()
	reasons := make(map[FilterReason]uint64, len(f.stats.ReasonCounts))
	for k, v := range f.stats.ReasonCounts {
		reasons[k] = v
	}
	return FilterStats{
		TotalEvents:    f.stats.TotalEvents,
		PassedEvents:   f.stats.PassedEvents,
		FilteredEvents: f.stats.FilteredEvents,
		ReasonCounts:   reasons,
	}
}

// eventHash derives a duplicate-detection key from the fields that jointly
// identify an event, mirroring the original's (mint,user,sol,token) hash.
func eventHash(ev domain.AnalyticalEvent) uint64 {
	const (
		offset64 = 14695981039346656037
		prime64  = 1099511628211
	)
	h := uint64(offset64)
	mix := func(v uint64) {
		h ^= v
		h *= prime64
	}
	mixBytes := func(b []byte) {
		for _, c := range b {
			mix(uint64(c))
		}
	}
	mintBytes := ev.Mint
	userBytes := ev.User
	mixBytes(mintBytes[:])
	mixBytes(userBytes[:])
	mix(ev.SolAmount)
	mix(ev.TokenAmount)
	return h
}
