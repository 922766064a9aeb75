package search

import (
	"math/rand"
	"testing"

	"github.com/kailas-cloud/cospa/internal/domain/geo"
	"github.com/kailas-cloud/cospa/internal/domain/venue"
)

var (
	hanoiUser = geo.Coordinate{Lat: 21.0285, Lng: 105.8542}
	hoanKiem  = geo.Coordinate{Lat: 21.0288, Lng: 105.8525}
	baDinh    = geo.Coordinate{Lat: 21.0340, Lng: 105.8140}
	cauGiay   = geo.Coordinate{Lat: 21.0362, Lng: 105.7906}
	socSon    = geo.Coordinate{Lat: 21.2500, Lng: 105.8500} // ~24.6 km north
	district1 = geo.Coordinate{Lat: 10.7769, Lng: 106.7009}
	district3 = geo.Coordinate{Lat: 10.7800, Lng: 106.6950}
)

func cand(id string, c *geo.Coordinate) venue.Candidate {
	return venue.Candidate{ID: id, Name: "Venue " + id, Coordinate: c}
}

func at(c geo.Coordinate) *geo.Coordinate { return &c }

func resultIDs(rs []venue.RankedResult) []string {
	out := make([]string, len(rs))
	for i := range rs {
		out[i] = rs[i].ID
	}
	return out
}

func assertIDs(t *testing.T, got []venue.RankedResult, want ...string) {
	t.Helper()
	ids := resultIDs(got)
	if len(ids) != len(want) {
		t.Fatalf("got %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("got %v, want %v", ids, want)
		}
	}
}

func assertRanks(t *testing.T, rs []venue.RankedResult) {
	t.Helper()
	for i := range rs {
		if rs[i].Rank != i+1 {
			t.Fatalf("rank[%d] = %d, want %d", i, rs[i].Rank, i+1)
		}
	}
}

func TestApply_NoUserReturnsPrefix(t *testing.T) {
	f := NewClusterFilter(0, 0)
	in := []venue.Candidate{
		cand("a", at(district1)),
		cand("b", nil),
		cand("c", at(hoanKiem)),
		cand("d", at(geo.Coordinate{Lat: 95, Lng: 0})),
		cand("e", at(baDinh)),
	}

	got := f.Apply(in, 2, nil)
	assertIDs(t, got, "a", "c")
	assertRanks(t, got)
	for i := range got {
		if got[i].DistanceFromUserKm != nil {
			t.Errorf("distance must be nil without a user coordinate")
		}
	}

	// fewer survivors than desired
	assertIDs(t, f.Apply(in, 10, nil), "a", "c", "e")
}

func TestApply_HanoiClusterExcludesHCMC(t *testing.T) {
	in := []venue.Candidate{
		cand("hcm-1", at(district1)),
		cand("hcm-2", at(district3)),
		cand("hn-1", at(hoanKiem)),
		cand("hn-2", at(baDinh)),
		cand("hn-3", at(cauGiay)),
	}

	got := NewClusterFilter(0, 0).Apply(in, 5, &hanoiUser)
	assertIDs(t, got, "hn-1", "hn-2", "hn-3")
	assertRanks(t, got)
	for i := range got {
		if d := got[i].DistanceFromUserKm; d == nil || *d > 10 {
			t.Errorf("%s distance = %v, want <= 10 km", got[i].ID, d)
		}
	}
}

func TestApply_ReferenceClusterDropsOutliers(t *testing.T) {
	in := []venue.Candidate{
		cand("ref", at(hoanKiem)),
		cand("north", at(socSon)), // inside 30 km of user, outside 20 km of ref
		cand("west", at(cauGiay)),
	}

	got := NewClusterFilter(0, 0).Apply(in, 5, &hanoiUser)
	assertIDs(t, got, "ref", "west")
}

func TestApply_ReferenceIsFirstSurvivor(t *testing.T) {
	// the reference is the best semantic match near the user, even when it is
	// the outlier: the central venues lose to it
	in := []venue.Candidate{
		cand("north", at(socSon)),
		cand("center", at(hoanKiem)),
		cand("also-north", at(geo.Coordinate{Lat: 21.2400, Lng: 105.8400})),
	}

	got := NewClusterFilter(0, 0).Apply(in, 5, &hanoiUser)
	assertIDs(t, got, "north", "also-north")
}

func TestApply_StopsAtDesired(t *testing.T) {
	in := []venue.Candidate{
		cand("a", at(hoanKiem)),
		cand("b", at(baDinh)),
		cand("c", at(cauGiay)),
		cand("d", at(hanoiUser)),
	}
	assertIDs(t, NewClusterFilter(0, 0).Apply(in, 2, &hanoiUser), "a", "b")
	assertIDs(t, NewClusterFilter(0, 0).Apply(in, 1, &hanoiUser), "a")
}

func TestApply_SingleSurvivorReturnedAlone(t *testing.T) {
	in := []venue.Candidate{
		cand("far", at(district1)),
		cand("only", at(baDinh)),
	}
	got := NewClusterFilter(0, 0).Apply(in, 5, &hanoiUser)
	assertIDs(t, got, "only")
	if got[0].DistanceFromUserKm == nil {
		t.Error("distance should be attached")
	}
}

func TestApply_EmptyResults(t *testing.T) {
	f := NewClusterFilter(0, 0)
	tests := []struct {
		name    string
		in      []venue.Candidate
		desired int
		user    *geo.Coordinate
	}{
		{"nil input", nil, 5, &hanoiUser},
		{"no coordinates", []venue.Candidate{cand("a", nil)}, 5, nil},
		{"all far", []venue.Candidate{cand("a", at(district1))}, 5, &hanoiUser},
		{"zero desired", []venue.Candidate{cand("a", at(hoanKiem))}, 0, &hanoiUser},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := f.Apply(tt.in, tt.desired, tt.user)
			if got == nil || len(got) != 0 {
				t.Fatalf("expected empty non-nil result, got %v", got)
			}
		})
	}
}

func TestApply_InvalidUserTreatedAsMissing(t *testing.T) {
	in := []venue.Candidate{cand("hcm", at(district1)), cand("hn", at(hoanKiem))}
	got := NewClusterFilter(0, 0).Apply(in, 5, &geo.Coordinate{Lat: 120, Lng: 0})
	assertIDs(t, got, "hcm", "hn")
}

func TestApply_CustomThresholds(t *testing.T) {
	in := []venue.Candidate{
		cand("a", at(hoanKiem)),
		cand("b", at(baDinh)),  // ~4 km from a
		cand("c", at(cauGiay)), // ~6.6 km from a
	}
	assertIDs(t, NewClusterFilter(30, 5).Apply(in, 5, &hanoiUser), "a", "b")
	assertIDs(t, NewClusterFilter(1, 20).Apply(in, 5, &hanoiUser), "a")
}

func TestApply_Invariants(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	f := NewClusterFilter(0, 0)

	for iter := 0; iter < 500; iter++ {
		n := rng.Intn(30)
		in := make([]venue.Candidate, n)
		for i := range in {
			id := string(rune('A'+i%26)) + string(rune('a'+i/26))
			if rng.Intn(6) == 0 {
				in[i] = cand(id, nil)
				continue
			}
			// scatter around Hanoi with occasional far points
			spread := 0.3
			if rng.Intn(4) == 0 {
				spread = 5
			}
			in[i] = cand(id, at(geo.Coordinate{
				Lat: hanoiUser.Lat + (rng.Float64()*2-1)*spread,
				Lng: hanoiUser.Lng + (rng.Float64()*2-1)*spread,
			}))
		}
		desired := 1 + rng.Intn(8)

		got := f.Apply(in, desired, &hanoiUser)
		if len(got) > desired {
			t.Fatalf("iter %d: %d results for desired %d", iter, len(got), desired)
		}
		assertRanks(t, got)

		lastIdx := -1
		for i := range got {
			d := got[i].DistanceFromUserKm
			if d == nil || *d > DefaultMaxUserDistanceKm {
				t.Fatalf("iter %d: %s distance %v exceeds limit", iter, got[i].ID, d)
			}
			if i > 0 && geo.DistanceKm(*got[0].Coordinate, *got[i].Coordinate) > DefaultClusterRadiusKm {
				t.Fatalf("iter %d: %s too far from reference", iter, got[i].ID)
			}
			idx := indexOf(in, got[i].ID)
			if idx <= lastIdx {
				t.Fatalf("iter %d: semantic order not preserved", iter)
			}
			lastIdx = idx
		}

		noUser := f.Apply(in, desired, nil)
		located := venue.DropMissingCoordinates(in)
		wantLen := min(desired, len(located))
		if len(noUser) != wantLen {
			t.Fatalf("iter %d: no-user length %d, want %d", iter, len(noUser), wantLen)
		}
		for i := range noUser {
			if noUser[i].ID != located[i].ID {
				t.Fatalf("iter %d: no-user result is not a prefix", iter)
			}
		}
	}
}

func indexOf(cs []venue.Candidate, id string) int {
	for i := range cs {
		if cs[i].ID == id {
			return i
		}
	}
	return -1
}
