package handlers

import (
	dbsql "budgetsync-server/src/db/sql"
	"budgetsync-server/src/models"
	"budgetsync-server/src/util"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

func issueToken(user *models.User, secret string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":  user.ID,
		"username": user.Username,
		"exp":      time.Now().Add(time.Hour * 168).Unix(),
	})
	return token.SignedString([]byte(secret))
}

func Register(pool *pgxpool.Pool, jwtSecret string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.RegisterRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			log.Printf("ERROR: Failed to decode register request body: %v", err)
			http.Error(w, "invalid request", http.StatusBadRequest)
			return
		}

		req.Username = strings.TrimSpace(req.Username)

		if !util.ValidateUsername(req.Username) {
			http.Error(w, "username must be between 3 and 30 characters", http.StatusBadRequest)
			return
		}
		if !util.ValidatePassword(req.Password) {
			http.Error(w, "password must be at least 6 characters", http.StatusBadRequest)
			return
		}

		user, err := dbsql.CreateUser(r.Context(), pool, req.Username, req.Password)
		if err != nil {
			if errors.Is(err, dbsql.ErrUsernameTaken) {
				http.Error(w, "username already exists", http.StatusConflict)
				return
			}
			log.Printf("ERROR: Failed to create user %s: %v", req.Username, err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		log.Printf("INFO: Successful registration - User: %s, ID: %d", user.Username, user.ID)

		tokenString, err := issueToken(user, jwtSecret)
		if err != nil {
			log.Printf("ERROR: Failed to generate JWT token for user %s: %v", user.Username, err)
			http.Error(w, "error generating token", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"token":    tokenString,
			"user_id":  user.ID,
			"username": user.Username,
		})
	}
}

func Login(pool *pgxpool.Pool, jwtSecret string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			log.Printf("ERROR: Failed to decode login request body: %v", err)
			http.Error(w, "invalid request", http.StatusBadRequest)
			return
		}

		user, err := dbsql.AuthenticateUser(r.Context(), pool, strings.TrimSpace(req.Username), req.Password)
		if err != nil {
			if errors.Is(err, dbsql.ErrInvalidCredentials) {
				// Bad credentials are a user outcome, not a system
				// fault; never reveal which part was wrong.
				log.Printf("INFO: Failed login attempt for username %s from IP %s", req.Username, r.RemoteAddr)
				http.Error(w, "invalid username or password", http.StatusUnauthorized)
				return
			}
			log.Printf("ERROR: Login query failed for username %s: %v", req.Username, err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		tokenString, err := issueToken(user, jwtSecret)
		if err != nil {
			log.Printf("ERROR: Failed to generate JWT token for user %s: %v", user.Username, err)
			http.Error(w, "error generating token", http.StatusInternalServerError)
			return
		}

		log.Printf("INFO: Successful login - User: %s, ID: %d", user.Username, user.ID)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"token":    tokenString,
			"user_id":  user.ID,
			"username": user.Username,
		})
	}
}
