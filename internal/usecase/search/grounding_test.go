package search

import (
	"strings"
	"testing"

	"github.com/kailas-cloud/cospa/internal/domain/geo"
	"github.com/kailas-cloud/cospa/internal/domain/venue"
)

func TestBuildGroundingContext_NoLocationNoResults(t *testing.T) {
	out := BuildGroundingContext(nil, nil)
	if !strings.Contains(out, NoLocationNotice) {
		t.Error("missing location notice")
	}
	if !strings.Contains(out, NoResultsNotice) {
		t.Error("missing no-results notice")
	}
	if strings.Contains(out, "Vị trí người dùng") {
		t.Error("must not render a user location")
	}
}

func TestBuildGroundingContext_FullBlock(t *testing.T) {
	rating := 4.5
	reviews := 120
	dist := 1.234
	results := []venue.RankedResult{{
		Candidate: venue.Candidate{
			ID:          "s1",
			Name:        "The Coffee House",
			Type:        "cafe",
			Address:     "12 Hàng Bài, Hoàn Kiếm",
			Coordinate:  &geo.Coordinate{Lat: 21.0288, Lng: 105.8525},
			Brand:       "The Coffee House",
			Phone:       "0123456789",
			Rating:      &rating,
			ReviewCount: &reviews,
		},
		DistanceFromUserKm: &dist,
		Rank:               1,
	}, {
		Candidate: venue.Candidate{ID: "s2", Name: "Quán nhỏ"},
		Rank:      2,
	}}

	out := BuildGroundingContext(results, &hanoiUser)
	for _, want := range []string{
		"Vị trí người dùng: 21.028500, 105.854200",
		"Có 2 địa điểm phù hợp:",
		"1. **The Coffee House**",
		"Loại: cafe",
		"Địa chỉ: 12 Hàng Bài, Hoàn Kiếm",
		"Rating: 4.5/5 (120 đánh giá)",
		"Thương hiệu: The Coffee House",
		"SĐT: 0123456789",
		"Tọa độ: 21.028800, 105.852500",
		"Khoảng cách: 1.2 km",
		"2. **Quán nhỏ**",
		"Địa chỉ: N/A",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
	if strings.Contains(out, NoLocationNotice) || strings.Contains(out, NoResultsNotice) {
		t.Error("unexpected notice in output")
	}

	second := out[strings.Index(out, "2. **Quán nhỏ**"):]
	for _, absent := range []string{"Rating:", "Thương hiệu:", "SĐT:", "Tọa độ:", "Khoảng cách:"} {
		if strings.Contains(second, absent) {
			t.Errorf("sparse block should not contain %q", absent)
		}
	}
}

func TestBuildGroundingContext_Deterministic(t *testing.T) {
	results := NewClusterFilter(0, 0).Apply([]venue.Candidate{
		cand("a", at(hoanKiem)),
		cand("b", at(baDinh)),
	}, 5, &hanoiUser)

	first := BuildGroundingContext(results, &hanoiUser)
	for i := 0; i < 10; i++ {
		if got := BuildGroundingContext(results, &hanoiUser); got != first {
			t.Fatal("output differs between calls")
		}
	}
}
