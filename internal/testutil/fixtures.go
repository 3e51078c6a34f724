package testutil

import (
	"database/sql"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"letterflow/internal/models"
)

// FixturePassword is the plaintext password of every fixture user.
const FixturePassword = "password123"

// Org is a full organization slice covering every routing position in the
// default hierarchy: the apex, two director offices, executive heads and
// regular users in two leaves, plus an admin and a deactivated user.
type Org struct {
	DirectorGeneral models.User
	Deputy          models.User
	Advisor         models.User
	OpsOffice       models.User // director_office, Operations
	ITOffice        models.User // director_office, Information Technology
	FieldHead       models.User // executive_head, Operations > Field Coordination
	LogisticsHead   models.User // executive_head, Operations > Logistics
	AppDevHead      models.User // executive_head, IT > Application Development
	Alice           models.User // user, IT > Application Development
	Bob             models.User // user, IT > Application Development
	FinanceClerk    models.User // user, Corporate Services > Finance
	Admin           models.User
	Inactive        models.User // deactivated user in IT > Application Development
}

// NewOrg builds the fixture organization with stable ids. The returned users
// are not persisted anywhere; pass Users() to an in-memory source or seed
// them with SeedOrg.
func NewOrg() *Org {
	now := time.Now()
	mk := func(id, name, email string, role models.Role, dept string) models.User {
		return models.User{
			ID:         id,
			Name:       name,
			Email:      email,
			Role:       role,
			Department: dept,
			Active:     true,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
	}

	org := &Org{
		DirectorGeneral: mk("u-dg", "Diana General", "dg@letterflow.test", models.RoleDirectorGeneral, "Director General"),
		Deputy:          mk("u-deputy", "Derek Deputy", "deputy@letterflow.test", models.RoleDeputyDirectorGeneral, "Director General"),
		Advisor:         mk("u-advisor", "Ada Advisor", "advisor@letterflow.test", models.RoleExecutiveAdvisor, "Director General"),
		OpsOffice:       mk("u-ops-office", "Olga Operations", "ops.office@letterflow.test", models.RoleDirectorOffice, "Director General > Operations"),
		ITOffice:        mk("u-it-office", "Ian Tech", "it.office@letterflow.test", models.RoleDirectorOffice, "Director General > Information Technology"),
		FieldHead:       mk("u-field-head", "Fiona Field", "field.head@letterflow.test", models.RoleExecutiveHead, "Director General > Operations > Field Coordination"),
		LogisticsHead:   mk("u-log-head", "Liam Logistics", "log.head@letterflow.test", models.RoleExecutiveHead, "Director General > Operations > Logistics"),
		AppDevHead:      mk("u-appdev-head", "Hana Head", "appdev.head@letterflow.test", models.RoleExecutiveHead, "Director General > Information Technology > Application Development"),
		Alice:           mk("u-alice", "Alice App", "alice@letterflow.test", models.RoleUser, "Director General > Information Technology > Application Development"),
		Bob:             mk("u-bob", "Bob Builder", "bob@letterflow.test", models.RoleUser, "Director General > Information Technology > Application Development"),
		FinanceClerk:    mk("u-finance", "Frank Finance", "frank@letterflow.test", models.RoleUser, "Director General > Corporate Services > Finance"),
		Admin:           mk("u-admin", "Sys Admin", "admin@letterflow.test", models.RoleAdmin, ""),
	}
	org.Inactive = mk("u-inactive", "Igor Inactive", "igor@letterflow.test", models.RoleUser, "Director General > Information Technology > Application Development")
	org.Inactive.Active = false
	return org
}

// Users returns all fixture users as a directory snapshot.
func (o *Org) Users() []models.User {
	return []models.User{
		o.DirectorGeneral, o.Deputy, o.Advisor,
		o.OpsOffice, o.ITOffice,
		o.FieldHead, o.LogisticsHead, o.AppDevHead,
		o.Alice, o.Bob, o.FinanceClerk,
		o.Admin, o.Inactive,
	}
}

// SeedOrg inserts the fixture organization into the database. Every user gets
// the same bcrypt-hashed FixturePassword.
func SeedOrg(t *testing.T, db *sql.DB) *Org {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(FixturePassword), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("Failed to hash fixture password: %v", err)
	}

	org := NewOrg()
	for _, u := range org.Users() {
		_, err := db.Exec(`
			INSERT INTO users (id, name, email, password_hash, phone, role, department, active)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, u.ID, u.Name, u.Email, string(hash), u.Phone, u.Role, u.Department, u.Active)
		if err != nil {
			t.Fatalf("Failed to seed user %s: %v", u.Email, err)
		}
	}
	return org
}

// SeedLetter inserts a minimal pending letter and returns its id.
func SeedLetter(t *testing.T, db *sql.DB, id string, from, to models.User, dept string) {
	t.Helper()

	_, err := db.Exec(`
		INSERT INTO letters (id, subject, content, from_email, from_name, to_email, to_name,
			department, priority, status, cc, cc_employees, attachments, unread)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 'normal', 'pending', '{}', '{}', '[]', true)
	`, id, "Quarterly report", "Please review the attached report.",
		from.Email, from.Name, to.Email, to.Name, dept)
	if err != nil {
		t.Fatalf("Failed to seed letter %s: %v", id, err)
	}
}
