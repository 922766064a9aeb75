package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/kailas-cloud/cospa/internal/domain"
	domfav "github.com/kailas-cloud/cospa/internal/domain/favorite"
	domreview "github.com/kailas-cloud/cospa/internal/domain/review"
	"github.com/kailas-cloud/cospa/internal/domain/venue"
)

// SQLSTATE codes mapped to domain errors.
const (
	foreignKeyViolation = "23503"
	uniqueViolation     = "23505"
)

// SaveFavorite inserts the favorite; an existing one is returned as stored.
func (s *Store) SaveFavorite(ctx context.Context, userID string, v venue.Candidate) (domfav.Favorite, bool, error) {
	snapshot, err := json.Marshal(&v)
	if err != nil {
		return domfav.Favorite{}, false, fmt.Errorf("encode venue %s: %w: %w", v.ID, domain.ErrPersistence, err)
	}

	fav := domfav.Favorite{UserID: userID, Venue: v}
	err = s.pool.QueryRow(ctx, `
		INSERT INTO favorites (user_id, venue_id, snapshot)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, venue_id) DO NOTHING
		RETURNING created_at`, userID, v.ID, string(snapshot)).Scan(&fav.SavedAt)
	switch {
	case err == nil:
		return fav, true, nil
	case errors.Is(err, pgx.ErrNoRows):
		existing, err := scanFavorite(s.pool.QueryRow(ctx, `
			SELECT user_id, snapshot, created_at FROM favorites
			WHERE user_id = $1 AND venue_id = $2`, userID, v.ID))
		if err != nil {
			return domfav.Favorite{}, false, wrap("get favorite", err)
		}
		return existing, false, nil
	default:
		return domfav.Favorite{}, false, wrapConstraint("save favorite", err)
	}
}

// ListFavorites returns the user's favorites, newest first.
func (s *Store) ListFavorites(ctx context.Context, userID string) ([]domfav.Favorite, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT user_id, snapshot, created_at FROM favorites
		WHERE user_id = $1
		ORDER BY created_at DESC, venue_id`, userID)
	if err != nil {
		return nil, wrap("list favorites", err)
	}
	defer rows.Close()

	out := make([]domfav.Favorite, 0)
	for rows.Next() {
		f, err := scanFavorite(rows)
		if err != nil {
			return nil, wrap("scan favorite", err)
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("list favorites", err)
	}
	return out, nil
}

// RemoveFavorite deletes the favorite if present.
func (s *Store) RemoveFavorite(ctx context.Context, userID, venueID string) error {
	if _, err := s.pool.Exec(ctx,
		`DELETE FROM favorites WHERE user_id = $1 AND venue_id = $2`, userID, venueID); err != nil {
		return wrap("remove favorite", err)
	}
	return nil
}

const reviewColumns = `id, venue_id, user_id, rating, comment, images,
	author_name, author_email, is_anonymous, created_at, updated_at`

// CreateReview inserts an active review. The partial unique index enforces one per user and venue.
func (s *Store) CreateReview(ctx context.Context, req domreview.CreateRequest) (domreview.Review, error) {
	images := req.Images
	if images == nil {
		images = []string{}
	}
	row := s.pool.QueryRow(ctx, `
		INSERT INTO reviews (id, venue_id, user_id, rating, comment, images, author_name, author_email, is_anonymous)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+reviewColumns,
		newID(), req.VenueID, req.UserID, req.Rating, req.Comment, images,
		req.AuthorName, req.AuthorEmail, req.Anonymous)
	r, err := scanReview(row)
	if err != nil {
		return domreview.Review{}, wrapConstraint("create review", err)
	}
	return r, nil
}

// ListReviews returns the venue's active reviews, newest first.
func (s *Store) ListReviews(ctx context.Context, venueID string) ([]domreview.Review, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+reviewColumns+`
		FROM reviews
		WHERE venue_id = $1 AND is_active
		ORDER BY created_at DESC, id DESC`, venueID)
	if err != nil {
		return nil, wrap("list reviews", err)
	}
	defer rows.Close()

	out := make([]domreview.Review, 0)
	for rows.Next() {
		r, err := scanReview(rows)
		if err != nil {
			return nil, wrap("scan review", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("list reviews", err)
	}
	return out, nil
}

// DeactivateReview soft-deletes an active review owned by userID.
func (s *Store) DeactivateReview(ctx context.Context, id, userID string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE reviews SET is_active = FALSE, updated_at = now()
		WHERE id = $1 AND user_id = $2 AND is_active`, id, userID)
	if err != nil {
		return wrap("delete review", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete review %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func scanFavorite(row pgx.Row) (domfav.Favorite, error) {
	var f domfav.Favorite
	var snapshot []byte
	if err := row.Scan(&f.UserID, &snapshot, &f.SavedAt); err != nil {
		return domfav.Favorite{}, err
	}
	if err := json.Unmarshal(snapshot, &f.Venue); err != nil {
		return domfav.Favorite{}, fmt.Errorf("decode favorite snapshot: %w", err)
	}
	return f, nil
}

func scanReview(row pgx.Row) (domreview.Review, error) {
	var r domreview.Review
	err := row.Scan(&r.ID, &r.VenueID, &r.UserID, &r.Rating, &r.Comment, &r.Images,
		&r.AuthorName, &r.AuthorEmail, &r.Anonymous, &r.CreatedAt, &r.UpdatedAt)
	return r, err
}

// wrapConstraint maps a missing user to ErrNotFound and a duplicate to ErrConflict.
func wrapConstraint(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case foreignKeyViolation:
			return fmt.Errorf("%s: user: %w", op, domain.ErrNotFound)
		case uniqueViolation:
			return fmt.Errorf("%s: %w", op, domain.ErrConflict)
		}
	}
	return wrap(op, err)
}
