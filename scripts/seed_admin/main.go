// Command seed_admin bootstraps the first SUPERADMIN account so a fresh
// deployment can log in. Running it against a database that already holds a
// user with the given email is a no-op unless -force is set.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/hostelhub/hostel-adm-api/pkg/config"
	"github.com/hostelhub/hostel-adm-api/pkg/database"
)

func main() {
	var (
		email    string
		password string
		fullName string
		force    bool
		timeout  time.Duration
	)

	flag.StringVar(&email, "email", "admin@hostel.local", "Admin email address")
	flag.StringVar(&password, "password", "", "Admin password (required)")
	flag.StringVar(&fullName, "name", "System Administrator", "Admin display name")
	flag.BoolVar(&force, "force", false, "Reset the password if the user already exists")
	flag.DurationVar(&timeout, "timeout", 10*time.Second, "Database operation timeout")
	flag.Parse()

	if password == "" {
		fmt.Fprintln(os.Stderr, "usage: seed_admin -email <email> -password <password>")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("failed to hash password: %v", err)
	}

	var existingID string
	err = db.GetContext(ctx, &existingID, `SELECT id FROM users WHERE LOWER(email) = LOWER($1)`, email)
	switch {
	case err == nil && !force:
		log.Printf("user %s already exists (id %s), nothing to do", email, existingID)
		return
	case err == nil && force:
		_, err = db.ExecContext(ctx,
			`UPDATE users SET password_hash = $1, active = true, updated_at = NOW() WHERE id = $2`,
			string(hash), existingID)
		if err != nil {
			log.Fatalf("failed to reset password: %v", err)
		}
		log.Printf("reset password for %s (id %s)", email, existingID)
		return
	}

	id := uuid.NewString()
	_, err = db.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, full_name, role, active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, 'SUPERADMIN', true, NOW(), NOW())`,
		id, email, string(hash), fullName)
	if err != nil {
		log.Fatalf("failed to create admin user: %v", err)
	}
	log.Printf("created SUPERADMIN %s (id %s)", email, id)
}
