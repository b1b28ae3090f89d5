package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	fbauth "firebase.google.com/go/v4/auth"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/anonto42/photowall/backend/internal/auth"
	"github.com/anonto42/photowall/backend/internal/models"
	"github.com/anonto42/photowall/backend/internal/repositories"
)

// TokenVerifier checks Firebase ID tokens. *auth.Client from the Firebase
// Admin SDK satisfies it.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*fbauth.Token, error)
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	userRepository repositories.UserRepository
	firebaseAuth   TokenVerifier
	issuer         *auth.TokenIssuer
	isModerator    func(email string) bool
	log            zerolog.Logger
}

// NewAuthHandler creates a new AuthHandler. firebaseAuth may be nil, in which
// case Firebase login answers 503. isModerator decides which emails are
// promoted to moderator when they sign in.
func NewAuthHandler(
	userRepo repositories.UserRepository,
	firebaseAuth TokenVerifier,
	issuer *auth.TokenIssuer,
	isModerator func(email string) bool,
	log zerolog.Logger,
) *AuthHandler {
	if isModerator == nil {
		isModerator = func(string) bool { return false }
	}
	return &AuthHandler{
		userRepository: userRepo,
		firebaseAuth:   firebaseAuth,
		issuer:         issuer,
		isModerator:    isModerator,
		log:            log.With().Str("component", "auth").Logger(),
	}
}

// RegisterAuthRoutes registers authentication-related routes
func (h *AuthHandler) RegisterAuthRoutes(g *echo.Group) {
	g.POST("/signup", h.Signup)
	g.POST("/signin", h.SignIn)
	g.POST("/firebase-login", h.FirebaseLogin)
}

// Signup handles local user registration with email and password
func (h *AuthHandler) Signup(c echo.Context) error {
	var req models.CreateLocalUserRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	// Check if user with this email already exists
	if _, err := h.userRepository.GetUserByEmail(req.Email); err == nil {
		return echo.NewHTTPError(http.StatusConflict, "User with this email already registered")
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return httpError(h.log, err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to hash password")
	}

	user := &models.User{
		Name:     req.Name,
		Email:    strings.ToLower(strings.TrimSpace(req.Email)),
		Password: string(hashedPassword),
	}
	if h.isModerator(user.Email) {
		user.Role = models.RoleModerator
	}
	if err := h.userRepository.CreateUser(user); err != nil {
		return httpError(h.log, err)
	}

	return h.respondWithToken(c, http.StatusCreated, user)
}

// SignIn handles local user authentication with email and password
func (h *AuthHandler) SignIn(c echo.Context) error {
	var req models.SignInRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	user, err := h.userRepository.GetUserByEmail(req.Email)
	if errors.Is(err, repositories.ErrNotFound) {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid email or password")
	}
	if err != nil {
		return httpError(h.log, err)
	}

	// Firebase accounts have no local password
	if user.Password == "" || bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)) != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid email or password")
	}

	if err := h.promoteIfListed(user); err != nil {
		return httpError(h.log, err)
	}
	return h.respondWithToken(c, http.StatusOK, user)
}

// FirebaseLoginRequest defines the request body for Firebase login
type FirebaseLoginRequest struct {
	IDToken string `json:"idToken" validate:"required"`
}

// FirebaseLogin verifies a Firebase ID token and issues a local JWT
func (h *AuthHandler) FirebaseLogin(c echo.Context) error {
	if h.firebaseAuth == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "Firebase login is not configured")
	}

	var req FirebaseLoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	token, err := h.firebaseAuth.VerifyIDToken(c.Request().Context(), req.IDToken)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid Firebase ID token")
	}

	email, _ := token.Claims["email"].(string)
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Firebase account has no email")
	}
	name, _ := token.Claims["name"].(string)

	user, err := h.linkFirebaseUser(token.UID, email, name)
	if err != nil {
		return httpError(h.log, err)
	}
	if err := h.promoteIfListed(user); err != nil {
		return httpError(h.log, err)
	}
	return h.respondWithToken(c, http.StatusOK, user)
}

// linkFirebaseUser finds the user by Firebase UID, then by email, and
// creates one when neither exists.
func (h *AuthHandler) linkFirebaseUser(uid, email, name string) (*models.User, error) {
	user, err := h.userRepository.GetUserByFirebaseUID(uid)
	if err == nil {
		user.Email = email
		if name != "" {
			user.Name = name
		}
		return user, h.userRepository.UpdateUser(user)
	}
	if !errors.Is(err, repositories.ErrNotFound) {
		return nil, err
	}

	user, err = h.userRepository.GetUserByEmail(email)
	if err == nil {
		user.FirebaseUID = &uid
		return user, h.userRepository.UpdateUser(user)
	}
	if !errors.Is(err, repositories.ErrNotFound) {
		return nil, err
	}

	user = &models.User{Name: name, Email: email, FirebaseUID: &uid}
	if err := h.userRepository.CreateUser(user); err != nil {
		return nil, err
	}
	h.log.Info().Uint("user_id", user.ID).Msg("user created from firebase login")
	return user, nil
}

func (h *AuthHandler) promoteIfListed(user *models.User) error {
	if user.Role == models.RoleModerator || !h.isModerator(user.Email) {
		return nil
	}
	if _, err := h.userRepository.SetRole(user.Email, models.RoleModerator); err != nil {
		return err
	}
	user.Role = models.RoleModerator
	h.log.Info().Uint("user_id", user.ID).Msg("user promoted to moderator from bootstrap list")
	return nil
}

func (h *AuthHandler) respondWithToken(c echo.Context, code int, user *models.User) error {
	token, err := h.issuer.Issue(user)
	if err != nil {
		return httpError(h.log, err)
	}
	return c.JSON(code, echo.Map{"token": token, "user": user})
}
