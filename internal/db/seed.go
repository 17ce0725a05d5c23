package db

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// SeedTestData resets the database and populates it with demo users,
// locations and activities clustered around Lisbon.
//
// Behavior:
//  1. Clears existing rows in all domain tables.
//  2. Creates 20 users; the last 5 are synthetic demo profiles.
//  3. Gives every user a recent location within ~30km of the city center.
//  4. Creates a handful of upcoming activities.
//
// Compatible with both MySQL and SQLite (AUTO_INCREMENT reset skipped for SQLite).
func SeedTestData(db *gorm.DB) error {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))

	// --- Fresh start ---
	tables := []string{"messages", "matches", "swipes", "chat_requests", "quota_profiles", "activities", "feedbacks", "user_locations", "users"}
	for _, table := range tables {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	// Reset auto-increment sequences (only for MySQL)
	switch db.Dialector.Name() {
	case "mysql":
		db.Exec("ALTER TABLE users AUTO_INCREMENT = 1")
	case "sqlite":
		db.Exec("DELETE FROM sqlite_sequence WHERE name = 'users'")
	}

	log.Println("Cleared existing data")

	const centerLat, centerLng = 38.7223, -9.1393 // Lisbon

	// --- Seed Users ---
	tiers := []string{"free", "premium", "elite"}
	for i := 1; i <= 20; i++ {
		hash, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}

		user := User{
			Username:     fmt.Sprintf("nomad%d", i),
			Email:        fmt.Sprintf("nomad%d@example.com", i),
			PasswordHash: string(hash),
			Tier:         tiers[i%len(tiers)],
			IsVisible:    true,
			IsDemo:       i > 15, // last 5 are synthetic onboarding profiles
		}
		if err := db.Create(&user).Error; err != nil {
			return fmt.Errorf("failed to create user %d: %w", i, err)
		}

		loc := UserLocation{
			UserID: user.ID,
			Lat:    centerLat + (r.Float64()-0.5)*0.5,
			Lng:    centerLng + (r.Float64()-0.5)*0.5,
		}
		if err := db.Create(&loc).Error; err != nil {
			return fmt.Errorf("failed to create location for user %d: %w", user.ID, err)
		}
	}

	// --- Seed Activities ---
	titles := []string{"Sunset surf session", "Coworking coffee", "Miradouro hike", "Beach volleyball", "Fado night"}
	for i, title := range titles {
		activity := Activity{
			ID:        uuid.NewString(),
			Title:     title,
			Lat:       centerLat + (r.Float64()-0.5)*0.3,
			Lng:       centerLng + (r.Float64()-0.5)*0.3,
			StartsAt:  time.Now().Add(time.Duration(i+1) * 24 * time.Hour),
			CreatedBy: 1,
		}
		if err := db.Create(&activity).Error; err != nil {
			return fmt.Errorf("failed to create activity: %w", err)
		}
	}

	log.Println("Seeding completed: 20 users, 5 activities")
	return nil
}
