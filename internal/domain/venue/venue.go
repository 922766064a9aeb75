package venue

import (
	"math"
	"strconv"
	"strings"

	"github.com/kailas-cloud/cospa/internal/domain/geo"
)

// MaxRating is the top of the rating scale; ratings outside [0, MaxRating] are dropped.
const MaxRating = 5.0

// Payload keys written by the venue importer and read back from the index.
const (
	KeyID           = "id"
	KeyName         = "name"
	KeyType         = "type"
	KeyAddress      = "address"
	KeyBrand        = "brand"
	KeyCity         = "city"
	KeyWard         = "ward"
	KeyArea         = "area"
	KeyLat          = "lat"
	KeyLng          = "lng"
	KeyRating       = "rating"
	KeyReviewCount  = "review_count"
	KeyPhone        = "phone_number"
	KeyLinkGoogle   = "link_google"
	KeyLinkWeb      = "link_web"
	KeyThumbnailURL = "thumbnail_url"
	KeySearchText   = "search_text"
)

var knownKeys = map[string]bool{
	KeyID: true, KeyName: true, KeyType: true, KeyAddress: true, KeyBrand: true,
	KeyLat: true, KeyLng: true, KeyRating: true, KeyReviewCount: true, KeyPhone: true,
	KeyLinkGoogle: true, KeyLinkWeb: true, KeyThumbnailURL: true,
}

// Candidate is a venue returned by semantic retrieval, before geo filtering.
// Index order (descending Score) is the tie-break order everywhere downstream.
type Candidate struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Type         string            `json:"type"`
	Address      string            `json:"address"`
	Coordinate   *geo.Coordinate   `json:"coordinate,omitempty"`
	Score        float64           `json:"score"`
	Brand        string            `json:"brand,omitempty"`
	Phone        string            `json:"phone_number,omitempty"`
	Rating       *float64          `json:"rating,omitempty"`
	ReviewCount  *int              `json:"review_count,omitempty"`
	LinkGoogle   string            `json:"link_google,omitempty"`
	LinkWeb      string            `json:"link_web,omitempty"`
	ThumbnailURL string            `json:"thumbnail_url,omitempty"`
	Raw          map[string]string `json:"raw,omitempty"`
}

// HasCoordinate reports whether the candidate carries a usable coordinate.
func (c *Candidate) HasCoordinate() bool {
	return c.Coordinate != nil && c.Coordinate.Valid()
}

// RankedResult is a candidate that survived filtering, with its final position.
type RankedResult struct {
	Candidate
	DistanceFromUserKm *float64 `json:"distance_from_user_km,omitempty"`
	Rank               int      `json:"rank"`
}

// FromPayload builds a Candidate from an index hit. Unparseable numbers become
// absent values and invalid coordinates become nil; this never fails.
func FromPayload(id string, score float64, payload map[string]string) Candidate {
	c := Candidate{
		ID:           id,
		Score:        score,
		Name:         payload[KeyName],
		Type:         payload[KeyType],
		Address:      payload[KeyAddress],
		Brand:        payload[KeyBrand],
		Phone:        payload[KeyPhone],
		LinkGoogle:   payload[KeyLinkGoogle],
		LinkWeb:      payload[KeyLinkWeb],
		ThumbnailURL: payload[KeyThumbnailURL],
	}
	// the payload id is the venue's own id; the index key is only a fallback
	if pid := strings.TrimSpace(payload[KeyID]); pid != "" {
		c.ID = pid
	}

	lat, latOK := parseFloat(payload[KeyLat])
	lng, lngOK := parseFloat(payload[KeyLng])
	if latOK && lngOK {
		if coord, err := geo.New(lat, lng); err == nil {
			c.Coordinate = &coord
		}
	}
	if r, ok := parseFloat(payload[KeyRating]); ok && r >= 0 && r <= MaxRating {
		c.Rating = &r
	}
	if n, err := strconv.Atoi(strings.TrimSpace(payload[KeyReviewCount])); err == nil && n >= 0 {
		c.ReviewCount = &n
	}

	for k, v := range payload {
		if knownKeys[k] {
			continue
		}
		if c.Raw == nil {
			c.Raw = make(map[string]string)
		}
		c.Raw[k] = v
	}
	return c
}

// DropMissingCoordinates returns the candidates that have a valid coordinate, in order.
func DropMissingCoordinates(cs []Candidate) []Candidate {
	out := make([]Candidate, 0, len(cs))
	for i := range cs {
		if cs[i].HasCoordinate() {
			out = append(out, cs[i])
		}
	}
	return out
}

// ToPayload renders the candidate back into index payload form.
func (c *Candidate) ToPayload() map[string]string {
	p := make(map[string]string, len(c.Raw)+12)
	for k, v := range c.Raw {
		p[k] = v
	}
	p[KeyID] = c.ID
	setIf(p, KeyName, c.Name)
	setIf(p, KeyType, c.Type)
	setIf(p, KeyAddress, c.Address)
	setIf(p, KeyBrand, c.Brand)
	setIf(p, KeyPhone, c.Phone)
	setIf(p, KeyLinkGoogle, c.LinkGoogle)
	setIf(p, KeyLinkWeb, c.LinkWeb)
	setIf(p, KeyThumbnailURL, c.ThumbnailURL)
	if c.Coordinate != nil {
		p[KeyLat] = strconv.FormatFloat(c.Coordinate.Lat, 'f', -1, 64)
		p[KeyLng] = strconv.FormatFloat(c.Coordinate.Lng, 'f', -1, 64)
	}
	if c.Rating != nil {
		p[KeyRating] = strconv.FormatFloat(*c.Rating, 'f', -1, 64)
	}
	if c.ReviewCount != nil {
		p[KeyReviewCount] = strconv.Itoa(*c.ReviewCount)
	}
	return p
}

// SearchText is the text that gets embedded for a venue document.
func (c *Candidate) SearchText() string {
	parts := make([]string, 0, 7)
	add := func(label, v string) {
		if v != "" {
			parts = append(parts, label+": "+v)
		}
	}
	add("Tên", c.Name)
	add("Loại", c.Type)
	add("Thương hiệu", c.Brand)
	add("Thành phố", c.Raw[KeyCity])
	add("Phường", c.Raw[KeyWard])
	add("Khu vực", c.Raw[KeyArea])
	add("Địa chỉ", c.Address)
	return strings.Join(parts, " | ")
}

func setIf(m map[string]string, k, v string) {
	if v != "" {
		m[k] = v
	}
}

func parseFloat(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	// CSV exports from the scraper use a decimal comma
	f, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// Hit is a raw vector-index match: external id, similarity and flat payload.
type Hit struct {
	ID      string
	Score   float64
	Payload map[string]string
}

// Document is a venue ready to be written to a vector index.
type Document struct {
	Candidate Candidate
	Vector    []float32
}
