package main

import (
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/dukerupert/familypoints/internal/auth"
	"github.com/dukerupert/familypoints/internal/model"
	"github.com/dukerupert/familypoints/internal/store"
)

const (
	demoParentEmail = "parent@example.com"
	demoPassword    = "password"
)

// seed creates a demo family once. It does nothing if the demo parent
// already exists.
func seed(db *sql.DB, logger *slog.Logger) error {
	users := store.NewUserStore(db)

	taken, err := users.EmailTaken(demoParentEmail)
	if err != nil {
		return err
	}
	if taken {
		logger.Info("demo family already present")
		return nil
	}

	hash, err := auth.HashPassword(demoPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	parent, err := users.CreateParent("Demo Parent", demoParentEmail, hash)
	if err != nil {
		return err
	}
	if _, err := store.NewSettingsStore(db).Get(parent.ID); err != nil {
		return err
	}

	for _, c := range []struct{ name, username string }{
		{"Sam", "sam"},
		{"Ruth", "ruth"},
	} {
		if _, err := users.CreateChild(parent.ID, c.name, c.username, hash); err != nil {
			return err
		}
	}

	tasks := store.NewTaskStore(db)
	for _, t := range []struct {
		name, category string
		points         int
		description    string
	}{
		{"Read a Bible chapter", model.CategoryFaith, 20, "Write down the reference and one thing you learned."},
		{"Finish homework", model.CategorySchool, 15, "All assignments done before dinner."},
		{"Make your bed", model.CategoryHome, 5, ""},
		{"Help a sibling", model.CategoryKindness, 10, ""},
	} {
		if _, err := tasks.Create(parent.ID, t.name, t.category, t.points, t.description, true); err != nil {
			return err
		}
	}

	rewards := store.NewRewardStore(db)
	for _, r := range []struct {
		name, kind string
		cost       int
	}{
		{"One dollar", model.RewardMoney, 100},
		{"Thirty minutes of screen time", model.RewardPrivilege, 60},
		{"Choose Friday dinner", model.RewardPrivilege, 150},
		{"New book", model.RewardGift, 400},
	} {
		if _, err := rewards.Create(parent.ID, r.name, r.kind, r.cost, "", true); err != nil {
			return err
		}
	}

	logger.Info("demo family seeded", "parent", demoParentEmail, "children", "sam, ruth")
	return nil
}
