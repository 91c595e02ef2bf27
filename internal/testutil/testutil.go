// Package testutil provides an in-memory store and fixtures for package tests.
package testutil

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/platfrom_be_bidding/internal/db"
	"github.com/Windi-Fikriyansyah/platfrom_be_bidding/internal/models"
	"github.com/Windi-Fikriyansyah/platfrom_be_bidding/internal/notify"
	"github.com/Windi-Fikriyansyah/platfrom_be_bidding/internal/utils"
)

// NewDB returns a migrated, isolated in-memory SQLite database.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	gdb, err := db.Connect(db.DriverSQLite, dsn, nil)
	if err != nil {
		t.Fatalf("connect sqlite: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { db.Close(gdb) })
	return gdb
}

// CreateUser inserts an active user whose password is "password".
func CreateUser(t testing.TB, gdb *gorm.DB, role models.Role, name string) *models.User {
	t.Helper()
	hash, err := utils.HashPassword("password")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	u := &models.User{
		Name:     name,
		Email:    strings.ToLower(name) + "-" + uuid.NewString()[:8] + "@example.com",
		Password: hash,
		Role:     role,
		IsActive: true,
	}
	if err := gdb.Create(u).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func CreateProject(t testing.TB, gdb *gorm.DB, buyer *models.User) *models.Project {
	t.Helper()
	p := &models.Project{
		Title:       "Landing page",
		Description: "Build a landing page",
		BudgetMin:   100,
		BudgetMax:   200,
		Deadline:    time.Now().Add(7 * 24 * time.Hour).UTC().Truncate(time.Second),
		Status:      models.ProjectPending,
		BuyerID:     buyer.ID,
	}
	if err := gdb.Create(p).Error; err != nil {
		t.Fatalf("create project: %v", err)
	}
	return p
}

func CreateBid(t testing.TB, gdb *gorm.DB, project *models.Project, seller *models.User, amount int64) *models.Bid {
	t.Helper()
	b := &models.Bid{
		Amount:       amount,
		DeliveryTime: 3,
		Message:      "I can do it",
		Status:       models.BidPending,
		ProjectID:    project.ID,
		SellerID:     seller.ID,
	}
	if err := gdb.Create(b).Error; err != nil {
		t.Fatalf("create bid: %v", err)
	}
	return b
}

// Recorder is a notify.Emitter that keeps every emitted event.
type Recorder struct {
	mu     sync.Mutex
	events []notify.Event
}

func (r *Recorder) Emit(e notify.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *Recorder) Events() []notify.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]notify.Event, len(r.events))
	copy(out, r.events)
	return out
}

func (r *Recorder) Kinds() []notify.Kind {
	var kinds []notify.Kind
	for _, e := range r.Events() {
		kinds = append(kinds, e.Kind)
	}
	return kinds
}
