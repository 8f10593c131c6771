package entities

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/roach88/beentity/internal/fixture"
	"github.com/roach88/beentity/internal/ir"
	"github.com/roach88/beentity/internal/store"
)

// UserKind is the stored kind of User.
var UserKind = store.Kind{Name: "user", New: func() store.Entity { return &User{} }}

// User is an account identified by email. Passwords are stored as bcrypt hashes.
type User struct {
	store.Model
	Email        string
	Name         string
	PasswordHash string
	Active       bool
	Logins       int64
}

func (u *User) Kind() string { return UserKind.Name }

// Attributes implements store.Entity.
func (u *User) Attributes() (ir.IRObject, error) {
	return ir.IRObject{
		"email":    ir.IRString(u.Email),
		"name":     ir.IRString(u.Name),
		"password": ir.IRString(u.PasswordHash),
		"active":   ir.IRBool(u.Active),
		"logins":   ir.IRInt(u.Logins),
	}, nil
}

// Restore implements store.Entity.
func (u *User) Restore(attrs ir.IRObject) error {
	return restore(attrs, map[string]any{
		"email":    &u.Email,
		"name":     &u.Name,
		"password": &u.PasswordHash,
		"active":   &u.Active,
		"logins":   &u.Logins,
	})
}

// SetPassword stores a bcrypt hash of plain.
func (u *User) SetPassword(plain string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), passwordCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	u.PasswordHash = string(hash)
	return nil
}

// CheckPassword reports whether plain matches the stored hash.
func (u *User) CheckPassword(plain string) bool {
	return u.PasswordHash != "" && bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(plain)) == nil
}

// passwordCost is the bcrypt cost for fixture passwords.
var passwordCost = bcrypt.MinCost

// UserFactory provisions users by email. New users are active with the name
// taken from the local part of the email.
type UserFactory struct {
	fixture.Base
}

// NewUserFactory is the fixture.Constructor for User.
func NewUserFactory(d fixture.Deps) fixture.Factory {
	return &UserFactory{Base: fixture.Base{Deps: d}}
}

func (f *UserFactory) Find(ctx context.Context, identifier string) (store.Entity, error) {
	return f.FindBy(ctx, UserKind, "email", identifier)
}

func (f *UserFactory) New(_ context.Context, identifier string) (store.Entity, error) {
	return &User{Email: identifier, Name: localPart(identifier), Active: true}, nil
}

func (f *UserFactory) Purge(ctx context.Context) error {
	return f.PurgeKind(ctx, UserKind.Name)
}

func (f *UserFactory) Fields() fixture.Accessors {
	return fixture.Accessors{
		"email":  fixture.StringField(func(u *User) string { return u.Email }, func(u *User, v string) { u.Email = v }),
		"name":   fixture.StringField(func(u *User) string { return u.Name }, func(u *User, v string) { u.Name = v }),
		"active": fixture.BoolField(func(u *User) bool { return u.Active }, func(u *User, v bool) { u.Active = v }),
		"logins": fixture.IntField(func(u *User) int64 { return u.Logins }, func(u *User, v int64) { u.Logins = v }),
		"password": {
			Type:   "string",
			Coerce: fixture.CoerceString,
			Get: func(e store.Entity) (ir.IRValue, error) {
				u, ok := e.(*User)
				if !ok {
					return nil, fmt.Errorf("password accessor used on %T", e)
				}
				return ir.IRString(u.PasswordHash), nil
			},
			Set: func(_ context.Context, e store.Entity, v ir.IRValue) error {
				u, ok := e.(*User)
				if !ok {
					return fmt.Errorf("password accessor used on %T", e)
				}
				return u.SetPassword(ir.Text(v))
			},
			Equal: func(expected, actual ir.IRValue) bool {
				hash, ok := actual.(ir.IRString)
				if !ok || hash == "" {
					return false
				}
				return bcrypt.CompareHashAndPassword([]byte(hash), []byte(ir.Text(expected))) == nil
			},
		},
	}
}

func localPart(email string) string {
	local, _, _ := strings.Cut(email, "@")
	return local
}
