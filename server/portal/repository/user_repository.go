package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/techfranca/francaverso/server/portal/domain"
)

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

const userColumns = `id, firebase_uid, email, name, role, phone, bio, profile_photo_url, banner_url, created_at, updated_at`

func scanUser(row pgx.Row) (domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.FirebaseUID, &u.Email, &u.Name, &u.Role, &u.Phone, &u.Bio, &u.ProfilePhotoURL, &u.BannerURL, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return u, domain.ErrNotFound
	}
	return u, err
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (domain.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, id))
}

func (r *UserRepository) FindByFirebaseUIDOrEmail(ctx context.Context, firebaseUID, email string) (domain.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE firebase_uid=$1 OR lower(email)=lower($2)
		LIMIT 1
	`, firebaseUID, email))
}

func (r *UserRepository) Create(ctx context.Context, firebaseUID, email, name string, photoURL *string) (domain.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `
		INSERT INTO users (firebase_uid, email, name, role, profile_photo_url)
		VALUES ($1, lower($2), $3, $4, $5)
		RETURNING `+userColumns+`
	`, firebaseUID, email, name, domain.DefaultRole, photoURL))
}

// SyncFederated backfills the federated uid and photo on an existing row.
// Either argument may be nil, in which case the column is left untouched.
func (r *UserRepository) SyncFederated(ctx context.Context, id string, firebaseUID, photoURL *string) (domain.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `
		UPDATE users
		SET firebase_uid = COALESCE(firebase_uid, $2),
		    profile_photo_url = COALESCE($3, profile_photo_url),
		    updated_at = NOW()
		WHERE id=$1
		RETURNING `+userColumns,
		id, firebaseUID, photoURL))
}

func (r *UserRepository) List(ctx context.Context) ([]domain.User, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, u)
	}
	return items, rows.Err()
}

func (r *UserRepository) UpdateProfile(ctx context.Context, id string, bio, email, phone *string) (domain.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `
		UPDATE users
		SET bio=$2, email=COALESCE(lower($3), email), phone=$4, updated_at=NOW()
		WHERE id=$1
		RETURNING `+userColumns,
		id, bio, email, phone))
}

func (r *UserRepository) UpdatePhotoURL(ctx context.Context, id string, url *string) error {
	return r.updateMediaURL(ctx, id, "profile_photo_url", url)
}

func (r *UserRepository) UpdateBannerURL(ctx context.Context, id string, url *string) error {
	return r.updateMediaURL(ctx, id, "banner_url", url)
}

func (r *UserRepository) updateMediaURL(ctx context.Context, id, column string, url *string) error {
	if column != "profile_photo_url" && column != "banner_url" {
		return errors.New("unknown media column " + column)
	}
	cmd, err := r.pool.Exec(ctx, `UPDATE users SET `+column+`=$2, updated_at=NOW() WHERE id=$1`, id, url)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *UserRepository) GetName(ctx context.Context, id string) (string, error) {
	var name string
	err := r.pool.QueryRow(ctx, `SELECT name FROM users WHERE id=$1`, id).Scan(&name)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", domain.ErrNotFound
	}
	return strings.TrimSpace(name), err
}
