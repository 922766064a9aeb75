package favorite

import (
	"testing"

	"github.com/kailas-cloud/cospa/internal/domain/geo"
	"github.com/kailas-cloud/cospa/internal/domain/venue"
)

func TestSaveRequest_Validate(t *testing.T) {
	rating := func(v float64) *float64 { return &v }
	tests := []struct {
		name    string
		req     SaveRequest
		wantErr bool
	}{
		{"ok", SaveRequest{UserID: "u1", Venue: venue.Candidate{ID: "v1"}}, false},
		{"no user", SaveRequest{Venue: venue.Candidate{ID: "v1"}}, true},
		{"no venue id", SaveRequest{UserID: "u1", Venue: venue.Candidate{Name: "Phở Thìn"}}, true},
		{"bad coordinate", SaveRequest{UserID: "u1", Venue: venue.Candidate{ID: "v1", Coordinate: &geo.Coordinate{Lat: 95}}}, true},
		{"rating above scale", SaveRequest{UserID: "u1", Venue: venue.Candidate{ID: "v1", Rating: rating(7)}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.req.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
