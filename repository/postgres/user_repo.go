package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"github.com/fastygo/taskhub/domain"
	"github.com/fastygo/taskhub/repository"
)

type userRow struct {
	ID           string    `db:"id"`
	Username     string    `db:"username"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	Active       bool      `db:"active"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
	Roles        []string  `db:"roles"`
}

func (r userRow) toDomain() *domain.User {
	roles := make([]domain.Role, 0, len(r.Roles))
	for _, name := range r.Roles {
		roles = append(roles, domain.Role(name))
	}
	return &domain.User{
		ID:           r.ID,
		Username:     r.Username,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		Roles:        domain.NormalizeRoles(roles),
		Active:       r.Active,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

type userRepository struct {
	db DBInterface
}

// NewUserRepository instantiates a Postgres-backed user repository.
func NewUserRepository(db DBInterface) repository.UserRepository {
	return &userRepository{db: db}
}

func selectUsers() squirrel.SelectBuilder {
	return psql.Select(
		"u.id", "u.username", "u.email", "u.password_hash", "u.active", "u.created_at", "u.updated_at",
		"COALESCE(array_agg(r.name ORDER BY r.name) FILTER (WHERE r.name IS NOT NULL), '{}') AS roles",
	).
		From("users u").
		LeftJoin("user_roles ur ON ur.user_id = u.id").
		LeftJoin("roles r ON r.id = ur.role_id").
		GroupBy("u.id")
}

func (r *userRepository) getOne(ctx context.Context, where squirrel.Sqlizer) (*domain.User, error) {
	query, args, err := selectUsers().Where(where).ToSql()
	if err != nil {
		return nil, fmt.Errorf("building select query: %w", err)
	}
	var row userRow
	if err := pgxscan.Get(ctx, r.db, &row, query, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("scanning user: %w", err)
	}
	return row.toDomain(), nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if !validID(id) {
		return nil, domain.ErrUserNotFound
	}
	return r.getOne(ctx, squirrel.Eq{"u.id": id})
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.getOne(ctx, squirrel.Eq{"u.username": username})
}

func (r *userRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return r.exists(ctx, squirrel.Eq{"username": username})
}

func (r *userRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, squirrel.Expr("lower(email) = lower(?)", email))
}

func (r *userRepository) exists(ctx context.Context, where squirrel.Sqlizer) (bool, error) {
	sub, args, err := psql.Select("1").From("users").Where(where).ToSql()
	if err != nil {
		return false, fmt.Errorf("building exists query: %w", err)
	}
	var found bool
	if err := r.db.QueryRow(ctx, "SELECT EXISTS ("+sub+")", args...).Scan(&found); err != nil {
		return false, fmt.Errorf("checking user existence: %w", err)
	}
	return found, nil
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	if user == nil {
		return domain.ErrInvalidPayload
	}
	return withTx(ctx, r.db, func(tx pgx.Tx) error {
		query, args, err := psql.Insert("users").
			Columns("id", "username", "email", "password_hash", "active", "created_at", "updated_at").
			Values(user.ID, user.Username, user.Email, user.PasswordHash, user.Active, user.CreatedAt, user.UpdatedAt).
			ToSql()
		if err != nil {
			return fmt.Errorf("building insert query: %w", err)
		}
		if _, err := tx.Exec(ctx, query, args...); err != nil {
			return mapUniqueViolation(fmt.Errorf("inserting user: %w", err))
		}
		return replaceRoles(ctx, tx, user.ID, user.Roles)
	})
}

func (r *userRepository) Update(ctx context.Context, user *domain.User) error {
	if user == nil {
		return domain.ErrInvalidPayload
	}
	if !validID(user.ID) {
		return domain.ErrUserNotFound
	}
	return withTx(ctx, r.db, func(tx pgx.Tx) error {
		query, args, err := psql.Update("users").
			Set("username", user.Username).
			Set("email", user.Email).
			Set("password_hash", user.PasswordHash).
			Set("active", user.Active).
			Set("updated_at", user.UpdatedAt).
			Where(squirrel.Eq{"id": user.ID}).
			ToSql()
		if err != nil {
			return fmt.Errorf("building update query: %w", err)
		}
		tag, err := tx.Exec(ctx, query, args...)
		if err != nil {
			return mapUniqueViolation(fmt.Errorf("updating user: %w", err))
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrUserNotFound
		}
		return replaceRoles(ctx, tx, user.ID, user.Roles)
	})
}

// replaceRoles swaps the role set of a user for roles. Unknown role names
// leave the user without that role, so an empty result is rejected.
func replaceRoles(ctx context.Context, tx pgx.Tx, userID string, roles []domain.Role) error {
	if len(roles) == 0 {
		return domain.ErrUserHasNoRoles
	}
	if _, err := tx.Exec(ctx, `DELETE FROM user_roles WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("clearing user roles: %w", err)
	}
	names := make([]string, 0, len(roles))
	for _, role := range roles {
		names = append(names, string(role))
	}
	const insert = `
	INSERT INTO user_roles (user_id, role_id)
	SELECT $1, id FROM roles WHERE name = ANY($2)
	`
	tag, err := tx.Exec(ctx, insert, userID, names)
	if err != nil {
		return fmt.Errorf("assigning user roles: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserHasNoRoles
	}
	return nil
}

func (r *userRepository) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return domain.ErrUserNotFound
	}
	return withTx(ctx, r.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM tasks WHERE user_id = $1`, id); err != nil {
			return fmt.Errorf("deleting user tasks: %w", err)
		}
		tag, err := tx.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("deleting user: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrUserNotFound
		}
		return nil
	})
}

func (r *userRepository) List(ctx context.Context, filter repository.UserFilter) ([]domain.User, int, error) {
	page := filter.Page.Normalize()

	var where squirrel.Sqlizer = squirrel.Expr("TRUE")
	if filter.Role != "" {
		where = squirrel.Expr(`EXISTS (
			SELECT 1 FROM user_roles fr JOIN roles fn ON fn.id = fr.role_id
			WHERE fr.user_id = u.id AND fn.name = ?)`, string(filter.Role))
	}

	countQuery, countArgs, err := psql.Select("COUNT(*)").From("users u").Where(where).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("building count query: %w", err)
	}
	var total int
	if err := r.db.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting users: %w", err)
	}

	direction := " ASC"
	if page.Desc {
		direction = " DESC"
	}
	query, args, err := selectUsers().
		Where(where).
		OrderBy("u." + page.SortBy + direction).
		Limit(uint64(page.Size)).
		Offset(uint64(page.Offset())).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("building select query: %w", err)
	}
	var rows []userRow
	if err := pgxscan.Select(ctx, r.db, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("scanning users: %w", err)
	}
	users := make([]domain.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, *row.toDomain())
	}
	return users, total, nil
}

func (r *userRepository) Stats(ctx context.Context) (domain.UserStats, error) {
	var stats domain.UserStats
	const query = `SELECT COUNT(*), COUNT(*) FILTER (WHERE active) FROM users`
	if err := r.db.QueryRow(ctx, query).Scan(&stats.TotalUsers, &stats.ActiveUsers); err != nil {
		return domain.UserStats{}, fmt.Errorf("counting users: %w", err)
	}
	stats.InactiveUsers = stats.TotalUsers - stats.ActiveUsers
	return stats, nil
}
