package search

import (
	"github.com/kailas-cloud/cospa/internal/domain/geo"
	"github.com/kailas-cloud/cospa/internal/domain/venue"
)

// Default geo thresholds in kilometers.
const (
	DefaultMaxUserDistanceKm = 30.0
	DefaultClusterRadiusKm   = 20.0
)

// ClusterFilter keeps results near the user and near the best semantic match,
// so that one answer never mixes venues from two different cities.
type ClusterFilter struct {
	maxUserDistanceKm float64
	clusterRadiusKm   float64
}

// NewClusterFilter creates a filter. Non-positive thresholds fall back to the defaults.
func NewClusterFilter(maxUserDistanceKm, clusterRadiusKm float64) ClusterFilter {
	if maxUserDistanceKm <= 0 {
		maxUserDistanceKm = DefaultMaxUserDistanceKm
	}
	if clusterRadiusKm <= 0 {
		clusterRadiusKm = DefaultClusterRadiusKm
	}
	return ClusterFilter{maxUserDistanceKm: maxUserDistanceKm, clusterRadiusKm: clusterRadiusKm}
}

// Apply returns at most desired ranked results, preserving the semantic order of
// candidates. It never fails: bad coordinates count as missing.
func (f ClusterFilter) Apply(candidates []venue.Candidate, desired int, user *geo.Coordinate) []venue.RankedResult {
	if desired <= 0 {
		return []venue.RankedResult{}
	}
	located := venue.DropMissingCoordinates(candidates)

	if user == nil || !user.Valid() {
		return rank(prefix(located, desired), nil)
	}

	near := make([]venue.Candidate, 0, len(located))
	dist := make([]float64, 0, len(located))
	for i := range located {
		d := geo.DistanceKm(*user, *located[i].Coordinate)
		if d <= f.maxUserDistanceKm {
			near = append(near, located[i])
			dist = append(dist, d)
		}
	}
	if len(near) < 2 {
		return rank(prefix(near, desired), dist)
	}

	ref := *near[0].Coordinate
	kept := []venue.Candidate{near[0]}
	keptDist := []float64{dist[0]}
	for i := 1; i < len(near) && len(kept) < desired; i++ {
		if geo.DistanceKm(ref, *near[i].Coordinate) <= f.clusterRadiusKm {
			kept = append(kept, near[i])
			keptDist = append(keptDist, dist[i])
		}
	}
	return rank(kept, keptDist)
}

func prefix(cs []venue.Candidate, n int) []venue.Candidate {
	if len(cs) > n {
		return cs[:n]
	}
	return cs
}

// rank assigns 1-based ranks in order; dist is nil when no user coordinate was given.
func rank(cs []venue.Candidate, dist []float64) []venue.RankedResult {
	out := make([]venue.RankedResult, len(cs))
	for i := range cs {
		out[i] = venue.RankedResult{Candidate: cs[i], Rank: i + 1}
		if dist != nil {
			d := dist[i]
			out[i].DistanceFromUserKm = &d
		}
	}
	return out
}
