package store

import (
	"context"
	"math"

	"atomcore/bench"
	"atomcore/capability"
	"atomcore/constants"
	"atomcore/types"
)

// ============================================================================
// POLICY RECOMMENDATION
// ============================================================================
//
// For ops with no direct accelerated instruction, the CAS loop competes
// with the exclusive loop; the geometric mean of their throughput ratios
// across widths decides PreferCASForOps. For ops with a direct instruction,
// the accelerated path competes with the exclusive loop; if it loses on
// average the extension is disabled.
//
// Evidence keys:
//
//	"<op>/<width>"        CAS loop ÷ exclusive loop
//	"accel:<op>/<width>"  accelerated ÷ exclusive loop

// Recommend derives a policy from host's stored results.
func (s *Store) Recommend(ctx context.Context, host string) (capability.Policy, error) {
	rs, err := s.Results(ctx, host)
	if err != nil {
		return capability.Policy{}, err
	}
	return Recommend(host, rs), nil
}

type cellKey struct {
	op types.Op
	w  types.Width
}

// Recommend derives a policy from rs.
func Recommend(host string, rs []bench.Result) capability.Policy {
	// mean throughput per (op, width, path)
	sum := make(map[cellKey]map[types.Path]float64)
	cnt := make(map[cellKey]map[types.Path]int)
	for _, r := range rs {
		k := cellKey{r.Op, r.Width}
		if sum[k] == nil {
			sum[k] = make(map[types.Path]float64)
			cnt[k] = make(map[types.Path]int)
		}
		sum[k][r.Path] += r.OpsPerSec()
		cnt[k][r.Path]++
	}
	mean := func(k cellKey, p types.Path) (float64, bool) {
		n := cnt[k][p]
		if n == 0 || sum[k][p] <= 0 {
			return 0, false
		}
		return sum[k][p] / float64(n), true
	}

	pol := capability.Policy{
		Host:            host,
		PreferCASForOps: constants.PreferCASForOps,
		Evidence:        make(map[string]float64),
	}
	var casLogs, accelLogs []float64
	for _, op := range types.Ops {
		for _, w := range types.Widths {
			k := cellKey{op, w}
			excl, ok := mean(k, types.ExclusiveLoop)
			if !ok {
				continue
			}
			name := op.String() + "/" + w.String()
			if capability.HasDirectInstruction(op) {
				if acc, ok := mean(k, types.Accelerated); ok {
					pol.Evidence["accel:"+name] = acc / excl
					accelLogs = append(accelLogs, math.Log(acc/excl))
				}
				continue
			}
			if cas, ok := mean(k, types.CASLoop); ok {
				pol.Evidence[name] = cas / excl
				casLogs = append(casLogs, math.Log(cas/excl))
			}
		}
	}
	if len(casLogs) > 0 {
		pol.PreferCASForOps = geoMean(casLogs) >= 1
	}
	if len(accelLogs) > 0 {
		pol.DisableAccelerated = geoMean(accelLogs) < 1
	}
	return pol
}

func geoMean(logs []float64) float64 {
	var s float64
	for _, l := range logs {
		s += l
	}
	return math.Exp(s / float64(len(logs)))
}
