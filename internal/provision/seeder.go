// Package provision bootstraps the role catalogue and the initial
// administrator accounts. Every step is create-if-absent so the seeder can be
// rerun safely.
package provision

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/shepherd-hq/shepherd/internal/roles"
	"github.com/shepherd-hq/shepherd/internal/shared"
	"github.com/shepherd-hq/shepherd/internal/users"
)

// ErrInvalidAccount reports a bootstrap account that failed validation.
var ErrInvalidAccount = errors.New("provision: invalid account")

// RoleStore creates roles when missing.
type RoleStore interface {
	EnsureRole(ctx context.Context, name, guard string) (roles.Record, bool, error)
}

// AccountStore creates accounts and role assignments when missing.
type AccountStore interface {
	FindByEmail(ctx context.Context, email string) (users.User, error)
	FirstOrCreate(ctx context.Context, acct users.NewAccount) (users.User, bool, error)
	HasRole(ctx context.Context, userID int64, roleName string) (bool, error)
	AssignRole(ctx context.Context, userID int64, roleName string) error
}

// Account is a bootstrap account and the role it must hold.
type Account struct {
	Name     string     `validate:"required,max=255"`
	Email    string     `validate:"required,email,max=255"`
	Password string     `validate:"required,min=8"`
	Role     roles.Role `validate:"required"`
}

// Report summarises what a run changed.
type Report struct {
	RolesCreated    []string
	AccountsCreated []string
	RolesAssigned   []string
}

// Changed reports whether the run wrote anything.
func (r Report) Changed() bool {
	return len(r.RolesCreated)+len(r.AccountsCreated)+len(r.RolesAssigned) > 0
}

// Seeder provisions roles and accounts.
type Seeder struct {
	roles    RoleStore
	accounts AccountStore
	logger   *slog.Logger
	validate *validator.Validate
	now      func() time.Time
	cost     int
	hash     func(password []byte, cost int) ([]byte, error)
}

// NewSeeder constructs a Seeder.
func NewSeeder(roleStore RoleStore, accountStore AccountStore, logger *slog.Logger) *Seeder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Seeder{
		roles:    roleStore,
		accounts: accountStore,
		logger:   logger,
		validate: validator.New(),
		now:      time.Now,
		cost:     bcrypt.DefaultCost,
		hash:     bcrypt.GenerateFromPassword,
	}
}

// Run ensures every enumerated role exists and that each account exists and
// holds its role. Existing rows are never modified. All accounts are
// validated before anything is written.
func (s *Seeder) Run(ctx context.Context, accounts []Account) (Report, error) {
	for _, acct := range accounts {
		if err := s.check(acct); err != nil {
			return Report{}, err
		}
	}

	var report Report
	for _, role := range roles.All() {
		rec, created, err := s.roles.EnsureRole(ctx, role.String(), roles.GuardWeb)
		if err != nil {
			return report, err
		}
		if created {
			report.RolesCreated = append(report.RolesCreated, rec.Name)
			s.logger.Info("role created", slog.String("role", rec.Name))
		}
	}

	for _, acct := range accounts {
		if err := s.provisionAccount(ctx, acct, &report); err != nil {
			return report, err
		}
	}
	return report, nil
}

func (s *Seeder) check(acct Account) error {
	if err := s.validate.Struct(acct); err != nil {
		return fmt.Errorf("%w %q: %v", ErrInvalidAccount, acct.Email, err)
	}
	if !acct.Role.Valid() {
		return fmt.Errorf("%w %q: unknown role %d", ErrInvalidAccount, acct.Email, acct.Role)
	}
	return nil
}

func (s *Seeder) provisionAccount(ctx context.Context, acct Account, report *Report) error {
	email := shared.NormalizeEmail(acct.Email)
	user, err := s.ensureAccount(ctx, acct, email, report)
	if err != nil {
		return err
	}

	roleName := acct.Role.String()
	held, err := s.accounts.HasRole(ctx, user.ID, roleName)
	if err != nil {
		return fmt.Errorf("provision: check role for %q: %w", email, err)
	}
	if held {
		return nil
	}
	if err := s.accounts.AssignRole(ctx, user.ID, roleName); err != nil {
		return fmt.Errorf("provision: assign %q to %q: %w", roleName, email, err)
	}
	report.RolesAssigned = append(report.RolesAssigned, email+" => "+roleName)
	s.logger.Info("role assigned", slog.String("email", email), slog.String("role", roleName))
	return nil
}

// ensureAccount returns the existing account for email, hashing the password
// only when the account has to be created.
func (s *Seeder) ensureAccount(ctx context.Context, acct Account, email string, report *Report) (users.User, error) {
	existing, err := s.accounts.FindByEmail(ctx, email)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return users.User{}, fmt.Errorf("provision: look up %q: %w", email, err)
	}

	hash, err := s.hash([]byte(acct.Password), s.cost)
	if err != nil {
		return users.User{}, fmt.Errorf("provision: hash password for %q: %w", email, err)
	}
	verifiedAt := s.now().UTC()
	user, created, err := s.accounts.FirstOrCreate(ctx, users.NewAccount{
		Name:            acct.Name,
		Email:           email,
		PasswordHash:    string(hash),
		EmailVerifiedAt: &verifiedAt,
	})
	if err != nil {
		return users.User{}, fmt.Errorf("provision: account %q: %w", email, err)
	}
	if created {
		report.AccountsCreated = append(report.AccountsCreated, email)
		s.logger.Info("account created", slog.String("email", email))
	}
	return user, nil
}
