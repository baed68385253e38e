package db

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var seedTables = []string{"push_subscriptions", "notifications", "matches", "crushes", "users"}

func clearTables(db *gorm.DB) error {
	for _, table := range seedTables {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	return nil
}

// SeedTestData resets the database and populates it with demo users and crushes.
//
// Behavior:
//  1. Clears every table (subscriptions, notifications, matches, crushes, users).
//  2. Creates 20 users (user1..user20@example.com) with names and profiles.
//  3. Adds ~5 pending crushes per user; every 3rd crush is made mutual with a Match row.
//
// Notifications are not seeded, the inbox starts empty.
func SeedTestData(db *gorm.DB) error {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))

	if err := clearTables(db); err != nil {
		return err
	}
	log.Println("Cleared existing data")

	cities := []string{"Paris", "Lyon", "Marseille", "Bordeaux", "Lille"}
	interests := []string{"music", "hiking", "cinema", "cooking", "travel", "books"}

	users := make([]User, 0, 20)
	for i := 1; i <= 20; i++ {
		gender := "male"
		if i > 10 {
			gender = "female"
		}
		age := 18 + r.Intn(20)
		users = append(users, User{
			Email:     fmt.Sprintf("user%d@example.com", i),
			Name:      fmt.Sprintf("User %d", i),
			Age:       &age,
			Location:  cities[r.Intn(len(cities))],
			Interests: []string{interests[r.Intn(len(interests))], interests[r.Intn(len(interests))]},
			Gender:    gender,
		})
	}
	if err := db.Create(&users).Error; err != nil {
		return fmt.Errorf("failed to seed users: %w", err)
	}
	log.Println("Seeded 20 users.")

	counter := 0
	for i := range users {
		for j := 0; j < 5; j++ {
			target := users[r.Intn(len(users))]
			actor := users[i]
			if actor.ID == target.ID {
				continue
			}

			mutual := counter%3 == 0
			status := CrushPending
			if mutual {
				status = CrushMatched
			}

			if err := upsertSeedCrush(db, actor, target, status); err != nil {
				return err
			}
			if mutual {
				if err := upsertSeedCrush(db, target, actor, status); err != nil {
					return err
				}
				u1, u2 := actor.ID, target.ID
				if u2 < u1 {
					u1, u2 = u2, u1
				}
				if err := db.Clauses(clause.OnConflict{DoNothing: true}).
					Create(&Match{User1ID: u1, User2ID: u2}).Error; err != nil {
					return fmt.Errorf("failed to seed match: %w", err)
				}
			}
			counter++
		}
	}
	log.Printf("Seeded %d crushes.", counter)

	return nil
}

func upsertSeedCrush(db *gorm.DB, actor, target User, status string) error {
	c := Crush{
		ActorUserID:  actor.ID,
		TargetUserID: target.ID,
		TargetEmail:  target.Email,
		Status:       status,
	}
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "actor_user_id"}, {Name: "target_user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "updated_at"}),
	}).Create(&c).Error
	if err != nil {
		return fmt.Errorf("failed to seed crush: %w", err)
	}
	return nil
}

// SeedMinimalTestData wipes the DB and inserts the alice/bob/carol dataset used by demos.
//
// Dataset:
//   - alice@x.com (Alice), bob@x.com (Bob), carol@x.com (Carol)
//   - carol → alice = pending crush
func SeedMinimalTestData(db *gorm.DB) error {
	if err := clearTables(db); err != nil {
		return err
	}

	users := []User{
		{ID: "00000000-0000-0000-0000-00000000000a", Email: "alice@x.com", Name: "Alice"},
		{ID: "00000000-0000-0000-0000-00000000000b", Email: "bob@x.com", Name: "Bob"},
		{ID: "00000000-0000-0000-0000-00000000000c", Email: "carol@x.com", Name: "Carol"},
	}
	if err := db.Create(&users).Error; err != nil {
		return err
	}

	return db.Create(&Crush{
		ActorUserID:  users[2].ID,
		TargetUserID: users[0].ID,
		TargetEmail:  users[0].Email,
		Status:       CrushPending,
	}).Error
}
