package provision

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/edustack/edustack/internal/config"
	"github.com/edustack/edustack/internal/core"
	"github.com/edustack/edustack/internal/license"
	"github.com/edustack/edustack/pkg/authprovider"
)

var domainSlugPattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]*[a-z0-9])?$`)

// ValidationError is returned for payloads rejected before any side effect.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// ManualCleanupError means a compensation itself failed after retries: the
// system holds an orphaned resource and an operator has to remove it.
type ManualCleanupError struct {
	Resource string
	Cause    error
}

func (e *ManualCleanupError) Error() string {
	return fmt.Sprintf("manual cleanup required for %s: %v", e.Resource, e.Cause)
}

func (e *ManualCleanupError) Unwrap() error {
	return e.Cause
}

type AuthUsers interface {
	CreateUser(ctx context.Context, email, password, name string, labels []string) (*authprovider.User, error)
	DeleteUser(ctx context.Context, userID string) error
}

type ClientRepo interface {
	DomainExists(domain string) (bool, error)
	Create(c *core.Client) error
	SetStatus(id string, status core.ClientStatus) error
}

type Payload struct {
	Name           string
	Desc           string
	Domain         string // slug, e.g. "greenwood"
	AdminName      string
	LicenseDate    string // YYYY-MM-DD
	OwnerID        string
	OwnerName      string
	SupportContact string
	LogoFileID     string
}

type Result struct {
	Client          *core.Client
	AdminPassword   string
	LibraryPassword string
}

// Service provisions a new school tenant. The side effects run strictly in
// order (admin user, tenant record, library user); a failure at any step
// compensates the completed ones with bounded retry.
type Service struct {
	repo   ClientRepo
	auth   AuthUsers
	dns    *DomainChecker
	cfg    config.ProvisionConfig
	logger *zap.Logger
	now    func() time.Time
}

func NewService(repo ClientRepo, auth AuthUsers, cfg config.ProvisionConfig, logger *zap.Logger) *Service {
	var checker *DomainChecker
	if cfg.VerifyDomainDNS {
		checker = NewDomainChecker(cfg.DNSResolver)
	}
	return &Service{
		repo:   repo,
		auth:   auth,
		dns:    checker,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

func (s *Service) AddTenant(ctx context.Context, p Payload) (*Result, error) {
	licenseDate, err := s.validate(p)
	if err != nil {
		return nil, err
	}

	schoolDomain := p.Domain + "." + s.cfg.DomainSuffix
	adminEmail := p.AdminName + "@" + schoolDomain
	libraryEmail := "library@" + schoolDomain

	exists, err := s.repo.DomainExists(schoolDomain)
	if err != nil {
		return nil, fmt.Errorf("failed to check domain: %w", err)
	}
	if exists {
		return nil, &ValidationError{Message: fmt.Sprintf("a school with domain %s already exists", schoolDomain)}
	}

	if s.dns != nil {
		if err := s.dns.Verify(schoolDomain); err != nil {
			return nil, &ValidationError{Message: fmt.Sprintf("school domain is not reachable: %v", err)}
		}
	}

	adminPassword := generatePassword()
	libraryPassword := generatePassword()

	var compensations []compensation

	// Step 1: admin auth user.
	adminUser, err := s.auth.CreateUser(ctx, adminEmail, adminPassword, p.AdminName, []string{"admin"})
	if err != nil {
		return nil, fmt.Errorf("failed to create admin user: %w", err)
	}
	compensations = append(compensations, compensation{
		resource: "auth user " + adminUser.ID,
		run: func() error {
			return s.auth.DeleteUser(ctx, adminUser.ID)
		},
	})

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, s.compensate(compensations, fmt.Errorf("failed to hash admin password: %w", err))
	}

	// Step 2: tenant metadata record.
	now := s.now()
	client := &core.Client{
		ID:                 uuid.New().String(),
		Name:               p.Name,
		Desc:               p.Desc,
		AdminName:          p.AdminName,
		Domain:             schoolDomain,
		DatabaseID:         "db_" + uuid.New().String(),
		GalleryBucketID:    "bkt_gallery_" + uuid.New().String(),
		AssignmentBucketID: "bkt_assignment_" + uuid.New().String(),
		NotesBucketID:      "bkt_notes_" + uuid.New().String(),
		OwnerID:            p.OwnerID,
		OwnerName:          p.OwnerName,
		SupportContact:     p.SupportContact,
		LicenseDate:        licenseDate,
		LogoFileID:         p.LogoFileID,
		Status:             license.RecordStatusAt(core.ClientActive, licenseDate, now),
		AdminUserID:        adminUser.ID,
		AdminPasswordHash:  string(passwordHash),
		Notes:              core.StringSlice{},
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if err := s.repo.Create(client); err != nil {
		return nil, s.compensate(compensations, fmt.Errorf("failed to create tenant record: %w", err))
	}
	// Records are never hard-deleted; compensation marks the record failed so
	// it stops resolving and an operator can repair or retry it.
	compensations = append(compensations, compensation{
		resource: "tenant record " + client.ID,
		run: func() error {
			return s.repo.SetStatus(client.ID, core.ClientSetupFailed)
		},
	})

	// Step 3: library auth user.
	libraryUser, err := s.auth.CreateUser(ctx, libraryEmail, libraryPassword, p.Name+" Library", []string{"library"})
	if err != nil {
		return nil, s.compensate(compensations, fmt.Errorf("failed to create library user: %w", err))
	}
	client.LibraryUserID = libraryUser.ID

	s.logger.Info("tenant provisioned",
		zap.String("client_id", client.ID),
		zap.String("domain", schoolDomain),
		zap.String("admin_user_id", adminUser.ID),
	)

	return &Result{
		Client:          client,
		AdminPassword:   adminPassword,
		LibraryPassword: libraryPassword,
	}, nil
}

func (s *Service) validate(p Payload) (time.Time, error) {
	if strings.TrimSpace(p.Name) == "" {
		return time.Time{}, &ValidationError{Message: "school name is required"}
	}
	if p.AdminName == "" {
		return time.Time{}, &ValidationError{Message: "admin username is required"}
	}
	if strings.ContainsAny(p.AdminName, " \t") {
		return time.Time{}, &ValidationError{Message: "admin username must not contain spaces"}
	}
	if !domainSlugPattern.MatchString(p.Domain) {
		return time.Time{}, &ValidationError{Message: fmt.Sprintf("invalid domain slug: %q", p.Domain)}
	}

	licenseDate, err := time.Parse("2006-01-02", p.LicenseDate)
	if err != nil {
		return time.Time{}, &ValidationError{Message: fmt.Sprintf("invalid license date: %q", p.LicenseDate)}
	}
	return licenseDate, nil
}

type compensation struct {
	resource string
	run      func() error
}

// compensate rolls back completed steps in reverse order. The original
// failure is always returned; a compensation that fails after retries wraps
// it in a ManualCleanupError naming the orphaned resource.
func (s *Service) compensate(comps []compensation, cause error) error {
	retries := s.cfg.RollbackRetries
	if retries < 1 {
		retries = 1
	}

	for i := len(comps) - 1; i >= 0; i-- {
		comp := comps[i]

		var err error
		for attempt := 1; attempt <= retries; attempt++ {
			if err = comp.run(); err == nil {
				break
			}
			s.logger.Warn("compensation attempt failed",
				zap.String("resource", comp.resource),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
		}
		if err != nil {
			s.logger.Error("compensation exhausted retries, manual cleanup required",
				zap.String("resource", comp.resource),
				zap.Error(err),
			)
			return &ManualCleanupError{Resource: comp.resource, Cause: cause}
		}

		s.logger.Info("rolled back provisioning step", zap.String("resource", comp.resource))
	}
	return cause
}

func generatePassword() string {
	return "tmp_" + uuid.New().String()
}
