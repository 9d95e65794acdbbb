package capability

import "github.com/faltung/homed-google-bridge/internal/gwmodel"

// projectedEndpoint is one unit of projection: either a single merged
// view of a whole device, or one control endpoint when the device split.
type projectedEndpoint struct {
	endpointID *int // nil when the device did not split
	exposes    []string
	options    map[string]interface{}
}

// splitDevice implements spec.md §4.E's multi-endpoint splitting rule: a
// device splits into one projection per control endpoint iff at least two
// of its endpoints declare a control expose and share the same primary
// expose; endpoints without any primary expose are excluded from both the
// comparison and (when split) the resulting projections. Otherwise it
// returns a single merged projection.
func splitDevice(d gwmodel.Device) []projectedEndpoint {
	type candidate struct {
		ep      gwmodel.Endpoint
		primary string
	}

	var candidates []candidate
	for _, ep := range d.Endpoints {
		if !gwmodel.IsControlEndpoint(ep) {
			continue
		}
		primary, ok := primaryExpose(ep.Exposes)
		if !ok {
			continue
		}
		candidates = append(candidates, candidate{ep: ep, primary: primary})
	}

	if len(candidates) >= 2 {
		samePrimary := true
		for _, c := range candidates[1:] {
			if c.primary != candidates[0].primary {
				samePrimary = false
				break
			}
		}
		if samePrimary {
			out := make([]projectedEndpoint, 0, len(candidates))
			for _, c := range candidates {
				id := c.ep.ID
				out = append(out, projectedEndpoint{
					endpointID: &id,
					exposes:    c.ep.Exposes,
					options:    c.ep.Options,
				})
			}
			return out
		}
	}

	return []projectedEndpoint{mergeEndpoints(d.Endpoints)}
}

// mergeEndpoints unions every endpoint's exposes (deduplicated) and
// merges their option maps, with later endpoints (by position in
// d.Endpoints) overriding earlier keys.
func mergeEndpoints(endpoints []gwmodel.Endpoint) projectedEndpoint {
	var exposes []string
	seen := map[string]bool{}
	options := map[string]interface{}{}

	for _, ep := range endpoints {
		for _, e := range ep.Exposes {
			if !seen[e] {
				seen[e] = true
				exposes = append(exposes, e)
			}
		}
		for k, v := range ep.Options {
			options[k] = v
		}
	}

	if len(options) == 0 {
		options = nil
	}
	return projectedEndpoint{exposes: exposes, options: options}
}
