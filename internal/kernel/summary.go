package kernel

import (
	"fmt"
	"sort"
	"strings"

	"covenant/internal/codec"
	"covenant/internal/runlog"
)

// Summary aggregates a run from its log alone, so a replayed log
// yields a bit-identical summary.
type Summary struct {
	Epochs      uint64
	HeldEpochs  uint64
	LapseEpochs uint64

	LeasesIssued uint64
	Renewals     uint64
	Expirations  map[string]uint64 // By cause
	Revocations  map[string]uint64 // By violation kind

	WindowsPassed uint64
	WindowsFailed uint64

	SuccessionEvents uint64
	Lapses           uint64
	AmnestyFirings   uint64

	FinalStreaks   []StreakEntry
	FinalStateHash codec.Digest
}

// Summarize folds a verified record sequence into a Summary. The
// caller is expected to have run runlog.Verify first; Summarize only
// decodes.
func Summarize(records []runlog.Record) (*Summary, error) {
	s := &Summary{
		Expirations: make(map[string]uint64),
		Revocations: make(map[string]uint64),
	}

	for _, r := range records {
		switch r.Kind {
		case runlog.KindTick:
			var tick TickPayload
			if err := codec.Unmarshal(r.Payload, &tick); err != nil {
				return nil, fmt.Errorf("corrupt tick record %d: %w", r.Seq, err)
			}
			s.Epochs++
			if tick.Mode == ModeHeld.String() {
				s.HeldEpochs++
			} else {
				s.LapseEpochs++
			}
			if tick.WindowEvaluated {
				if tick.WindowPass {
					s.WindowsPassed++
				} else {
					s.WindowsFailed++
				}
			}
			if tick.AmnestyFired {
				s.AmnestyFirings++
			}
			s.FinalStreaks = tick.Streaks

		case runlog.KindSuccession:
			var ev SuccessionPayload
			if err := codec.Unmarshal(r.Payload, &ev); err != nil {
				return nil, fmt.Errorf("corrupt succession record %d: %w", r.Seq, err)
			}
			s.SuccessionEvents++
			if ev.Lapse {
				s.Lapses++
			}

		case runlog.KindLeaseIssue:
			s.LeasesIssued++

		case runlog.KindLeaseRenew:
			s.Renewals++

		case runlog.KindLeaseExpire:
			var lp LeasePayload
			if err := codec.Unmarshal(r.Payload, &lp); err != nil {
				return nil, fmt.Errorf("corrupt lease record %d: %w", r.Seq, err)
			}
			s.Expirations[lp.Cause]++

		case runlog.KindLeaseRevoke:
			var lp LeasePayload
			if err := codec.Unmarshal(r.Payload, &lp); err != nil {
				return nil, fmt.Errorf("corrupt lease record %d: %w", r.Seq, err)
			}
			s.Revocations[lp.Cause]++
		}
	}

	if len(records) > 0 {
		s.FinalStateHash = records[len(records)-1].Post
	}
	return s, nil
}

// String renders the summary for the CLI.
func (s *Summary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "epochs: %d (held %d, lapsed %d)\n", s.Epochs, s.HeldEpochs, s.LapseEpochs)
	fmt.Fprintf(&b, "leases: %d issued, %d renewals\n", s.LeasesIssued, s.Renewals)
	for _, cause := range sortedKeys(s.Expirations) {
		fmt.Fprintf(&b, "  expired (%s): %d\n", cause, s.Expirations[cause])
	}
	for _, cause := range sortedKeys(s.Revocations) {
		fmt.Fprintf(&b, "  revoked (%s): %d\n", cause, s.Revocations[cause])
	}
	fmt.Fprintf(&b, "windows: %d passed, %d failed\n", s.WindowsPassed, s.WindowsFailed)
	fmt.Fprintf(&b, "succession: %d events, %d lapses, %d amnesty firings\n",
		s.SuccessionEvents, s.Lapses, s.AmnestyFirings)
	for _, e := range s.FinalStreaks {
		fmt.Fprintf(&b, "  streak %s: %d\n", e.Identity, e.Streak)
	}
	fmt.Fprintf(&b, "final state: %s\n", s.FinalStateHash)
	return b.String()
}

func sortedKeys(m map[string]uint64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
