package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	"github.com/kailas-cloud/cospa/internal/domain"
	"github.com/kailas-cloud/cospa/internal/domain/venue"
)

// DefaultDelimiter is the separator of the scraped venue exports.
const DefaultDelimiter = ';'

// Payload keys for scraper columns that have no typed Candidate field.
const (
	KeyOldAddress  = "old_address"
	KeyStreet      = "num_address"
	KeyNote        = "note"
	KeyQuerySource = "query_source"
	KeyPlaceID     = "place_id"
	KeyDataID      = "data_id"
	KeyCID         = "cid"
)

// headerAliases maps lowercased scraper column names onto payload keys.
var headerAliases = map[string]string{
	"tên địa điểm":      venue.KeyName,
	"loại hình":         venue.KeyType,
	"thương hiệu/chuỗi": venue.KeyBrand,
	"địa chỉ cũ":        KeyOldAddress,
	"địa chỉ mới":       venue.KeyAddress,
	"số nhà / đường":    KeyStreet,
	"phường":            venue.KeyWard,
	"tỉnh/thành phố":    venue.KeyCity,
	"khu vực":           venue.KeyArea,
	"link google maps":  venue.KeyLinkGoogle,
	"website/mxh":       venue.KeyLinkWeb,
	"ảnh (url)":         venue.KeyThumbnailURL,
	"vĩ độ":             venue.KeyLat,
	"kinh độ":           venue.KeyLng,
	"ghi chú":           KeyNote,
	"sđt":               venue.KeyPhone,
	"điểm rating":       venue.KeyRating,
	"số review":         venue.KeyReviewCount,
	"query nguồn":       KeyQuerySource,
	"place id":          KeyPlaceID,
	"data id":           KeyDataID,
}

// idNamespace seeds content-derived venue ids so re-imports are stable.
var idNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://cospa/venues"))

// CSVOptions configure ReadCSV. A zero Delimiter means DefaultDelimiter.
type CSVOptions struct {
	Delimiter rune
}

// ReadCSV parses a venue table with a header row. Headers may be payload keys
// (id, name, lat, ...) or the scraper's Vietnamese column names; unknown columns
// are kept as raw fields. The id comes from id, then Place ID, then CID, then a
// hash of name, address and coordinates. Rows with no way to derive an id are
// skipped and counted.
func ReadCSV(r io.Reader, opts CSVOptions) ([]venue.Candidate, int, error) {
	cr := csv.NewReader(r)
	cr.Comma = opts.Delimiter
	if cr.Comma == 0 {
		cr.Comma = DefaultDelimiter
	}
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, 0, fmt.Errorf("empty csv: %w", domain.ErrInvalidInput)
		}
		return nil, 0, fmt.Errorf("read header: %w: %w", domain.ErrInvalidInput, err)
	}
	for i := range header {
		header[i] = normalizeHeader(header[i])
	}
	if !containsAny(header, venue.KeyID, KeyPlaceID, KeyCID, venue.KeyName) {
		return nil, 0, fmt.Errorf("csv header has no id, place id, cid or name column: %w", domain.ErrInvalidInput)
	}

	var out []venue.Candidate
	skipped := 0
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, skipped, fmt.Errorf("read line %d: %w: %w", line, domain.ErrInvalidInput, err)
		}

		payload := make(map[string]string, len(header))
		for i, v := range rec {
			if i >= len(header) || header[i] == "" {
				continue
			}
			if v = strings.TrimSpace(v); v != "" {
				payload[header[i]] = v
			}
		}
		if payload[venue.KeyAddress] == "" && payload[KeyOldAddress] != "" {
			payload[venue.KeyAddress] = payload[KeyOldAddress]
		}

		id := venueID(payload)
		if id == "" {
			skipped++
			continue
		}
		payload[venue.KeyID] = id
		out = append(out, venue.FromPayload(id, 0, payload))
	}
	return out, skipped, nil
}

func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
	if key, ok := headerAliases[h]; ok {
		return key
	}
	return h
}

func venueID(p map[string]string) string {
	for _, k := range []string{venue.KeyID, KeyPlaceID, KeyCID} {
		if p[k] != "" {
			return p[k]
		}
	}
	if p[venue.KeyName] == "" {
		return ""
	}
	seed := strings.Join([]string{p[venue.KeyName], p[venue.KeyAddress], p[venue.KeyLat], p[venue.KeyLng]}, "|")
	return uuid.NewSHA1(idNamespace, []byte(seed)).String()
}

func containsAny(ss []string, want ...string) bool {
	for _, v := range ss {
		for _, w := range want {
			if v == w {
				return true
			}
		}
	}
	return false
}
