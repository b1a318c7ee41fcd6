package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/jackc/pgx/v5"
	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	// Get database URL
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is not set")
	}

	// Get command
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run main.go [drop|up|seed]")
		os.Exit(1)
	}

	command := os.Args[1]

	// Connect to database
	ctx := context.Background()
	conn, err := pgx.Connect(ctx, dbURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer conn.Close(ctx)

	switch command {
	case "drop":
		if err := dropTables(ctx, conn); err != nil {
			log.Fatalf("Failed to drop tables: %v", err)
		}
		fmt.Println("✅ All tables dropped successfully")

	case "up":
		if err := createTables(ctx, conn); err != nil {
			log.Fatalf("Failed to create tables: %v", err)
		}
		fmt.Println("✅ All tables created successfully")

	case "seed":
		if err := seedData(ctx, conn); err != nil {
			log.Fatalf("Failed to seed data: %v", err)
		}
		fmt.Println("✅ Data seeded successfully")

	default:
		fmt.Printf("Unknown command: %s\n", command)
		fmt.Println("Usage: go run main.go [drop|up|seed]")
		os.Exit(1)
	}
}

func dropTables(ctx context.Context, conn *pgx.Conn) error {
	queries := []string{
		`DROP TABLE IF EXISTS user_profiles CASCADE`,
		`DROP TABLE IF EXISTS auth_users CASCADE`,
	}

	for _, query := range queries {
		if _, err := conn.Exec(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %w", err)
		}
		fmt.Printf("  Dropped: %s\n", query)
	}

	return nil
}

func createTables(ctx context.Context, conn *pgx.Conn) error {
	queries := []string{
		// Identity records. phone_number is nullable and unique so two
		// accounts can never claim the same verified number.
		`CREATE TABLE IF NOT EXISTS auth_users (
			uid VARCHAR(64) PRIMARY KEY,
			email VARCHAR(255) UNIQUE NOT NULL,
			password_hash VARCHAR(255) NOT NULL,
			display_name VARCHAR(255) NOT NULL,
			phone_number VARCHAR(20) UNIQUE,
			role VARCHAR(20) NOT NULL DEFAULT 'customer',
			disabled BOOLEAN NOT NULL DEFAULT false,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		// Profile document per identity; delivery addresses live in a
		// JSONB array on the row.
		`CREATE TABLE IF NOT EXISTS user_profiles (
			uid VARCHAR(64) PRIMARY KEY REFERENCES auth_users(uid) ON DELETE CASCADE,
			email VARCHAR(255) NOT NULL,
			display_name VARCHAR(255),
			phone_number VARCHAR(20),
			phone_verified BOOLEAN NOT NULL DEFAULT false,
			photo_url TEXT,
			role VARCHAR(20) NOT NULL DEFAULT 'customer',
			loyalty_points INTEGER NOT NULL DEFAULT 0,
			restaurant_id VARCHAR(64) NOT NULL,
			addresses JSONB NOT NULL DEFAULT '[]'::jsonb,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE INDEX IF NOT EXISTS idx_auth_users_email ON auth_users(email)`,
		`CREATE INDEX IF NOT EXISTS idx_user_profiles_restaurant ON user_profiles(restaurant_id)`,
	}

	for _, query := range queries {
		if _, err := conn.Exec(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %w", err)
		}
	}
	fmt.Println("  Created: auth_users, user_profiles")

	return nil
}

func seedData(ctx context.Context, conn *pgx.Conn) error {
	restaurantID := os.Getenv("RESTAURANT_ID")
	if restaurantID == "" {
		restaurantID = "resto-demo"
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("admin123"), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash seed password: %w", err)
	}

	_, err = conn.Exec(ctx, `
		INSERT INTO auth_users (uid, email, password_hash, display_name, role)
		VALUES ('seed-admin', 'admin@resto.local', $1, 'Admin', 'admin')
		ON CONFLICT (uid) DO NOTHING`, string(hash))
	if err != nil {
		return fmt.Errorf("failed to seed admin user: %w", err)
	}

	_, err = conn.Exec(ctx, `
		INSERT INTO user_profiles (uid, email, display_name, role, restaurant_id)
		VALUES ('seed-admin', 'admin@resto.local', 'Admin', 'admin', $1)
		ON CONFLICT (uid) DO NOTHING`, restaurantID)
	if err != nil {
		return fmt.Errorf("failed to seed admin profile: %w", err)
	}

	fmt.Println("  Seeded: admin@resto.local (password admin123)")
	return nil
}
