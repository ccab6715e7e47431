package db

import (
	"budgetsync-server/src/models"
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/pbkdf2"
)

const hashIterations = 100000

var (
	ErrUsernameTaken      = errors.New("username already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

func hashPassword(password, salt string) string {
	key := pbkdf2.Key([]byte(password), []byte(salt), hashIterations, 32, sha256.New)
	return hex.EncodeToString(key)
}

func generateSalt() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func CreateUser(ctx context.Context, pool *pgxpool.Pool, username, password string) (*models.User, error) {
	salt, err := generateSalt()
	if err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	query := `
		INSERT INTO users (username, password_hash, salt)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`

	var user models.User
	user.Username = username
	err = pool.QueryRow(ctx, query, username, hashPassword(password, salt), salt).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return &user, nil
}

// AuthenticateUser verifies credentials without revealing whether the
// username or the password was wrong.
func AuthenticateUser(ctx context.Context, pool *pgxpool.Pool, username, password string) (*models.User, error) {
	query := `
		SELECT id, username, password_hash, salt, created_at
		FROM users
		WHERE username = $1
	`

	var user models.User
	var storedHash, salt string
	err := pool.QueryRow(ctx, query, username).Scan(&user.ID, &user.Username, &storedHash, &salt, &user.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("query error: %w", err)
	}

	computed := hashPassword(password, salt)
	if subtle.ConstantTimeCompare([]byte(computed), []byte(storedHash)) != 1 {
		return nil, ErrInvalidCredentials
	}

	return &user, nil
}

func GetUserByID(ctx context.Context, pool *pgxpool.Pool, id int64) (*models.User, error) {
	query := `
		SELECT id, username, created_at
		FROM users
		WHERE id = $1
	`

	var user models.User
	err := pool.QueryRow(ctx, query, id).Scan(&user.ID, &user.Username, &user.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, errors.New("user not found")
		}
		return nil, fmt.Errorf("query error: %w", err)
	}
	return &user, nil
}
