package registration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-marketplace-identity/internal/domain"
	"github.com/go-marketplace-identity/internal/pkg/id"
	"github.com/go-marketplace-identity/internal/pkg/saga"
	"github.com/jonboulle/clockwork"
	"golang.org/x/crypto/bcrypt"
)

const (
	stepCreateRecord  = "create-record"
	stepCreateAccount = "create-account"

	defaultIDAttempts = 5
)

// Outcome tells the caller whether a registration created a record or found
// an existing one.
type Outcome string

const (
	OutcomeCreated           Outcome = "created"
	OutcomeAlreadyRegistered Outcome = "already_registered"
	OutcomeAlreadySignedIn   Outcome = "already_signed_in"
)

// Registration is the result of a successful registration call. For the
// idempotent outcomes User is the record that already existed.
type Registration struct {
	User    *domain.User
	Outcome Outcome
}

type userStore interface {
	Get(ctx context.Context, externalID string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Create(ctx context.Context, u *domain.User) error
	Delete(ctx context.Context, externalID string) error
}

type challengeStore interface {
	Get(ctx context.Context, email string) (*domain.OTPChallenge, error)
	MarkVerified(ctx context.Context, email, code string) error
}

type identityProvider interface {
	VerifyToken(ctx context.Context, token string) (*domain.IdentityClaims, error)
	CreateAccount(ctx context.Context, a domain.ProviderAccount) error
	DeleteAccount(ctx context.Context, externalID string) error
}

// Alerter is notified when a rollback fails and the stores need reconciling.
type Alerter interface {
	ReportCompensationFailure(ctx context.Context, e *domain.CompensationFailedError) error
}

type Service interface {
	RegisterWithEmail(ctx context.Context, email, code, name, password string) (*Registration, error)
	RegisterWithPhone(ctx context.Context, token, name, password string) (*Registration, error)
	RegisterWithGoogle(ctx context.Context, token string) (*Registration, error)
}

type ServiceDeps struct {
	Users          userStore
	Challenges     challengeStore
	Provider       identityProvider
	Alerter        Alerter // optional
	Clock          clockwork.Clock
	NewExternalID  func() (string, error) // defaults to id.NewExternal
	IDAttempts     int
	DefaultPicture string
}

type service struct {
	users          userStore
	challenges     challengeStore
	provider       identityProvider
	alerter        Alerter
	clock          clockwork.Clock
	newExternalID  func() (string, error)
	idAttempts     int
	defaultPicture string
}

func NewService(deps ServiceDeps) Service {
	s := &service{
		users:          deps.Users,
		challenges:     deps.Challenges,
		provider:       deps.Provider,
		alerter:        deps.Alerter,
		clock:          deps.Clock,
		newExternalID:  deps.NewExternalID,
		idAttempts:     deps.IDAttempts,
		defaultPicture: deps.DefaultPicture,
	}
	if s.clock == nil {
		s.clock = clockwork.NewRealClock()
	}
	if s.newExternalID == nil {
		s.newExternalID = id.NewExternal
	}
	if s.idAttempts <= 0 {
		s.idAttempts = defaultIDAttempts
	}
	return s
}

func (s *service) RegisterWithEmail(ctx context.Context, email, code, name, password string) (*Registration, error) {
	// Checked before the challenge is consumed so a rejected password keeps the code usable.
	if err := checkPassword(password); err != nil {
		return nil, err
	}
	if err := s.consumeChallenge(ctx, email, code); err != nil {
		return nil, err
	}

	var created *domain.User
	err := s.withExternalID(ctx, func(externalID string) error {
		u := domain.NewUser(externalID, name, domain.MethodEmail, s.clock.Now().UTC())
		u.Email = email
		u.ProfilePicture = s.defaultPicture

		sg := (&saga.Saga{}).
			Add(saga.Step{
				Name: stepCreateRecord,
				Do:   func(ctx context.Context) error { return s.users.Create(ctx, u) },
				Undo: func(ctx context.Context) error { return s.users.Delete(ctx, externalID) },
			}).
			Add(saga.Step{
				Name: stepCreateAccount,
				Do: func(ctx context.Context) error {
					return s.provider.CreateAccount(ctx, domain.ProviderAccount{
						ExternalID:  externalID,
						Email:       email,
						Password:    password,
						DisplayName: name,
						PhotoURL:    u.ProfilePicture,
					})
				},
			})
		if err := sg.Run(ctx); err != nil {
			return s.sagaError(ctx, u, err)
		}
		created = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	slog.Info("user registered", "external_id", created.ExternalID, "method", domain.MethodEmail)
	return &Registration{User: created, Outcome: OutcomeCreated}, nil
}

func (s *service) RegisterWithPhone(ctx context.Context, token, name, password string) (*Registration, error) {
	if err := checkPassword(password); err != nil {
		return nil, err
	}
	claims, err := s.provider.VerifyToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if claims.Phone == "" {
		return nil, fmt.Errorf("token has no phone_number claim: %w", domain.ErrInvalidToken)
	}

	if existing, err := s.lookup(ctx, claims.ExternalID); err != nil || existing != nil {
		if err != nil {
			return nil, err
		}
		return &Registration{User: existing, Outcome: OutcomeAlreadyRegistered}, nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := domain.NewUser(claims.ExternalID, name, domain.MethodPhone, s.clock.Now().UTC())
	u.Phone = claims.Phone
	u.PasswordHash = string(hash)
	u.ProfilePicture = s.defaultPicture

	if err := s.users.Create(ctx, u); err != nil {
		if isDuplicate(err) {
			return s.existing(ctx, claims.ExternalID, OutcomeAlreadyRegistered, err)
		}
		return nil, err
	}
	slog.Info("user registered", "external_id", u.ExternalID, "method", domain.MethodPhone)
	return &Registration{User: u, Outcome: OutcomeCreated}, nil
}

func (s *service) RegisterWithGoogle(ctx context.Context, token string) (*Registration, error) {
	claims, err := s.provider.VerifyToken(ctx, token)
	if err != nil {
		return nil, err
	}

	if claims.Email != "" {
		byEmail, err := s.users.GetByEmail(ctx, claims.Email)
		switch {
		case err == nil && byEmail.RegistrationMethod != domain.MethodGoogle:
			return nil, &domain.MethodConflictError{Existing: byEmail.RegistrationMethod}
		case err != nil && !errors.Is(err, domain.ErrNotFound):
			return nil, err
		}
	}

	if existing, err := s.lookup(ctx, claims.ExternalID); err != nil || existing != nil {
		if err != nil {
			return nil, err
		}
		return &Registration{User: existing, Outcome: OutcomeAlreadySignedIn}, nil
	}

	u := domain.NewUser(claims.ExternalID, claims.Name, domain.MethodGoogle, s.clock.Now().UTC())
	u.Email = claims.Email
	u.ProfilePicture = claims.Picture
	if u.ProfilePicture == "" {
		u.ProfilePicture = s.defaultPicture
	}

	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, domain.ErrDuplicateID) {
			return s.existing(ctx, claims.ExternalID, OutcomeAlreadySignedIn, err)
		}
		return nil, err
	}
	slog.Info("user registered", "external_id", u.ExternalID, "method", domain.MethodGoogle)
	return &Registration{User: u, Outcome: OutcomeCreated}, nil
}

// consumeChallenge checks code against the stored challenge and marks it
// verified. The mark is conditional on the code so a challenge reissued in
// between is not consumed with the old code.
func (s *service) consumeChallenge(ctx context.Context, email, code string) error {
	c, err := s.challenges.Get(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("no challenge for %s: %w", email, domain.ErrInvalidOrExpiredCode)
		}
		return err
	}
	if c.Code != code || c.Expired(s.clock.Now()) {
		return fmt.Errorf("challenge rejected: %w", domain.ErrInvalidOrExpiredCode)
	}
	if err := s.challenges.MarkVerified(ctx, email, code); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("challenge superseded: %w", domain.ErrInvalidOrExpiredCode)
		}
		return err
	}
	return nil
}

// withExternalID allocates a fresh external id and runs fn with it. An id
// that is taken, either on the pre-check or when fn loses a race for it, is
// replaced until the attempt budget runs out.
func (s *service) withExternalID(ctx context.Context, fn func(externalID string) error) error {
	for attempt := 1; attempt <= s.idAttempts; attempt++ {
		externalID, err := s.newExternalID()
		if err != nil {
			return fmt.Errorf("generate external id: %w", err)
		}
		taken, err := s.lookup(ctx, externalID)
		if err != nil {
			return err
		}
		if taken != nil {
			slog.Debug("external id collision", "external_id", externalID, "attempt", attempt)
			continue
		}
		err = fn(externalID)
		if errors.Is(err, domain.ErrDuplicateID) {
			slog.Debug("external id collision on create", "external_id", externalID, "attempt", attempt)
			continue
		}
		return err
	}
	return fmt.Errorf("%d attempts: %w", s.idAttempts, domain.ErrIdentifierExhausted)
}

// sagaError translates a failed email-registration saga into the error
// returned to callers.
func (s *service) sagaError(ctx context.Context, u *domain.User, err error) error {
	var compErr *saga.CompensationError
	if errors.As(err, &compErr) {
		cf := &domain.CompensationFailedError{
			AttemptID:       id.New(),
			ExternalID:      u.ExternalID,
			Email:           u.Email,
			FailedStep:      compErr.Step,
			Cause:           compErr.Err,
			CompensationErr: compErr.UndoErr,
		}
		s.reportCompensationFailure(ctx, cf)
		return cf
	}

	var stepErr *saga.StepError
	if errors.As(err, &stepErr) && stepErr.Step == stepCreateAccount {
		slog.Warn("provider account creation failed; record rolled back",
			"external_id", u.ExternalID, "err", stepErr.Err)
		return fmt.Errorf("%w: %w", domain.ErrProviderAccountCreation, stepErr.Err)
	}
	if stepErr != nil {
		return stepErr.Err
	}
	return err
}

func (s *service) reportCompensationFailure(ctx context.Context, cf *domain.CompensationFailedError) {
	slog.Error("registration compensation failed",
		"reconciliation_required", true,
		"attempt_id", cf.AttemptID,
		"external_id", cf.ExternalID,
		"email", cf.Email,
		"failed_step", cf.FailedStep,
		"cause", cf.Cause,
		"compensation_err", cf.CompensationErr,
	)
	if s.alerter == nil {
		return
	}
	if err := s.alerter.ReportCompensationFailure(context.WithoutCancel(ctx), cf); err != nil {
		slog.Error("reconciliation alert failed", "attempt_id", cf.AttemptID, "err", err)
	}
}

// lookup returns the record for externalID, or nil when there is none.
func (s *service) lookup(ctx context.Context, externalID string) (*domain.User, error) {
	u, err := s.users.Get(ctx, externalID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return u, nil
}

// existing resolves a lost create race to the record that won it.
func (s *service) existing(ctx context.Context, externalID string, outcome Outcome, createErr error) (*Registration, error) {
	u, err := s.lookup(ctx, externalID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, createErr
	}
	return &Registration{User: u, Outcome: outcome}, nil
}

func isDuplicate(err error) bool {
	return errors.Is(err, domain.ErrDuplicateID) || errors.Is(err, domain.ErrAlreadyRegistered)
}

func checkPassword(password string) error {
	if len(password) > domain.MaxPasswordBytes {
		return fmt.Errorf("password exceeds %d bytes: %w", domain.MaxPasswordBytes, domain.ErrBadRequest)
	}
	return nil
}
