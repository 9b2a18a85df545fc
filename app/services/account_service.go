package services

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"inkpost/app/models"
	"inkpost/app/repositories"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// SessionConfig controls the signed session tokens.
type SessionConfig struct {
	Secret string
	TTL    time.Duration
}

// sessionClaims is the payload of a session token.
type sessionClaims struct {
	Username string `json:"username"`
	Staff    bool   `json:"staff"`
	jwt.RegisteredClaims
}

// Profile is what a signed-in user sees about themselves.
type Profile struct {
	User  *models.User   `json:"user"`
	Posts []*models.Post `json:"posts"`
}

// AccountService handles registration, login and sessions.
type AccountService struct {
	userRepo repositories.UserRepository
	postRepo repositories.PostRepository
	session  SessionConfig
	cost     int
	now      func() time.Time
}

// NewAccountService creates a new AccountService
func NewAccountService(userRepo repositories.UserRepository, postRepo repositories.PostRepository, session SessionConfig) *AccountService {
	if session.TTL <= 0 {
		session.TTL = 14 * 24 * time.Hour
	}
	return &AccountService{
		userRepo: userRepo,
		postRepo: postRepo,
		session:  session,
		cost:     bcrypt.DefaultCost,
		now:      time.Now,
	}
}

// WithHashCost overrides the bcrypt cost. Tests use bcrypt.MinCost.
func (s *AccountService) WithHashCost(cost int) *AccountService {
	s.cost = cost
	return s
}

// WithClock replaces the time source. Used by tests.
func (s *AccountService) WithClock(now func() time.Time) *AccountService {
	s.now = now
	return s
}

// Register creates a regular account.
func (s *AccountService) Register(input RegisterInput) (*models.User, error) {
	return s.createUser(input, false)
}

// CreateAdmin creates a staff account with the given credentials.
func (s *AccountService) CreateAdmin(username, password string) (*models.User, error) {
	return s.createUser(RegisterInput{Username: username, Password1: password, Password2: password}, true)
}

func (s *AccountService) createUser(input RegisterInput, staff bool) (*models.User, error) {
	input.Username = strings.TrimSpace(input.Username)
	if err := models.Validator().Struct(&input); err != nil {
		return nil, validationErrorFrom(err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password1), s.cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Username:     input.Username,
		PasswordHash: string(hash),
		IsStaff:      staff,
		CreatedAt:    s.now(),
	}
	if err := user.Validate(); err != nil {
		return nil, validationErrorFrom(err)
	}
	if err := s.userRepo.Create(user); err != nil {
		return nil, storeError(err)
	}
	return user, nil
}

// Authenticate checks a username and password pair. Unknown users and
// wrong passwords are indistinguishable to the caller.
func (s *AccountService) Authenticate(username, password string) (*models.User, error) {
	user, err := s.userRepo.GetByUsername(strings.TrimSpace(username))
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// IssueSession signs a session token for user.
func (s *AccountService) IssueSession(user *models.User) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.session.TTL)
	claims := sessionClaims{
		Username: user.Username,
		Staff:    user.IsStaff,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.Itoa(user.ID),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.session.Secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign session: %w", err)
	}
	return signed, expiresAt, nil
}

// ParseSession verifies a session token and resolves the current caller.
// Staff status is re-read from the store so revocations apply at once.
func (s *AccountService) ParseSession(token string) (Caller, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)
	var claims sessionClaims
	_, err := parser.ParseWithClaims(token, &claims, func(*jwt.Token) (interface{}, error) {
		return []byte(s.session.Secret), nil
	})
	if err != nil {
		return Anonymous, ErrAuthenticationRequired
	}

	id, err := strconv.Atoi(claims.Subject)
	if err != nil || id <= 0 {
		return Anonymous, ErrAuthenticationRequired
	}
	user, err := s.userRepo.GetByID(id)
	if errors.Is(err, repositories.ErrNotFound) {
		return Anonymous, ErrAuthenticationRequired
	}
	if err != nil {
		return Anonymous, err
	}
	return Caller{UserID: user.ID, Username: user.Username, IsStaff: user.IsStaff}, nil
}

// Profile returns the caller's account and their posts of any status.
func (s *AccountService) Profile(caller Caller) (*Profile, error) {
	if !caller.IsAuthenticated() {
		return nil, ErrAuthenticationRequired
	}
	user, err := s.userRepo.GetByID(caller.UserID)
	if err != nil {
		return nil, storeError(err)
	}
	posts, err := s.postRepo.List(repositories.PostFilter{AuthorID: caller.UserID})
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	return &Profile{User: user, Posts: posts}, nil
}
