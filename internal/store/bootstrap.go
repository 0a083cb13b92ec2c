package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// Bootstrap creates the users, notification_templates, notifications and
// app_settings tables when they are missing and seeds an admin account into
// an empty users table. Meant for local and SQLite setups; production
// schemas are owned by the application database.
func (s *Store) Bootstrap(ctx context.Context, seedEmail, seedPassword string) error {
	for _, stmt := range splitStatements(s.Dialect.BootstrapSQL()) {
		if _, err := s.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("bootstrap tables: %w", err)
		}
	}
	if seedEmail == "" || seedPassword == "" {
		return nil
	}
	if err := s.seedAdminUser(ctx, seedEmail, seedPassword); err != nil {
		return fmt.Errorf("seed admin user: %w", err)
	}
	return nil
}

func (s *Store) seedAdminUser(ctx context.Context, email, password string) error {
	var count int
	if err := s.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	pb := s.Dialect.NewParamBuilder()
	stmt := fmt.Sprintf(
		`INSERT INTO users (id, email, username, password_hash, role, is_active) VALUES (%s, %s, %s, %s, %s, %s)`,
		pb.Add(uuid.NewString()), pb.Add(strings.ToLower(email)), pb.Add("admin"), pb.Add(string(hash)),
		pb.Add("admin"), pb.Add(true),
	)
	if _, err := s.DB.ExecContext(ctx, stmt, pb.Params()...); err != nil {
		return err
	}

	log.WithField("email", email).Warn("Default admin user created, change the password immediately")
	return nil
}

// splitStatements splits a DDL script on semicolons. The bootstrap scripts
// carry no semicolons inside literals.
func splitStatements(script string) []string {
	var stmts []string
	for _, part := range strings.Split(script, ";") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			stmts = append(stmts, trimmed)
		}
	}
	return stmts
}
