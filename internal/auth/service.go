package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/AbrahamRP97/neighnet-go/internal/api"
	"github.com/AbrahamRP97/neighnet-go/internal/logging"
	"github.com/AbrahamRP97/neighnet-go/internal/models"
	"github.com/AbrahamRP97/neighnet-go/internal/session"
)

var (
	// ErrInvalidEmail indicates the supplied address failed format validation.
	ErrInvalidEmail = errors.New("invalid email address")
	// ErrPasswordRequired indicates an empty password was supplied.
	ErrPasswordRequired = errors.New("password is required")
)

// Service implements the account flows: login, registration, phone
// verification, password recovery, and session teardown. Validation happens
// client-side before any request is sent.
type Service struct {
	client *api.Client
	eps    api.Endpoints
	store  *session.Store
}

// NewService wires the auth flows to the API client and local session store.
func NewService(client *api.Client, eps api.Endpoints, store *session.Store) *Service {
	return &Service{client: client, eps: eps, store: store}
}

// LoginResult reports either a stored session or a pending phone
// verification. When NeedPhoneVerify is set no token has been persisted.
type LoginResult struct {
	NeedPhoneVerify bool
	UserID          string
	Telefono        string
	Session         models.Session
}

type loginResponse struct {
	Usuario struct {
		ID     string `json:"id"`
		Nombre string `json:"nombre"`
		Rol    string `json:"rol"`
	} `json:"usuario"`
	Token string `json:"token"`
}

type phoneVerifyChallenge struct {
	NeedPhoneVerify bool   `json:"needPhoneVerify"`
	UserID          string `json:"userId"`
	Telefono        string `json:"telefono"`
}

// Login authenticates against the auth service. A 403 carrying
// needPhoneVerify routes the caller to phone verification with the returned
// userId and telefono, storing nothing locally.
func (s *Service) Login(ctx context.Context, email, password string) (LoginResult, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if _, err := mail.ParseAddress(email); err != nil {
		return LoginResult{}, ErrInvalidEmail
	}
	if password == "" {
		return LoginResult{}, ErrPasswordRequired
	}

	var resp loginResponse
	err := s.client.Post(ctx, s.eps.Auth+"/login", map[string]string{
		"correo":     email,
		"contrasena": password,
	}, &resp)
	if err != nil {
		var apiErr *api.Error
		if errors.As(err, &apiErr) && apiErr.Status == 403 {
			var challenge phoneVerifyChallenge
			if jsonErr := json.Unmarshal(apiErr.Body, &challenge); jsonErr == nil && challenge.NeedPhoneVerify {
				logging.FromContext(ctx).Info("login requires phone verification", "userId", challenge.UserID)
				return LoginResult{
					NeedPhoneVerify: true,
					UserID:          challenge.UserID,
					Telefono:        challenge.Telefono,
				}, nil
			}
		}
		return LoginResult{}, err
	}

	sess := models.Session{
		UserID:   resp.Usuario.ID,
		UserName: resp.Usuario.Nombre,
		UserRole: resp.Usuario.Rol,
		Token:    resp.Token,
	}
	if err := s.store.SaveLogin(sess); err != nil {
		return LoginResult{}, fmt.Errorf("persist session: %w", err)
	}
	sess.Token = session.NormalizeToken(sess.Token)

	return LoginResult{Session: sess}, nil
}

// RegisterInput carries the signup form fields.
type RegisterInput struct {
	Nombre     string `json:"nombre"`
	Correo     string `json:"correo"`
	Telefono   string `json:"telefono"`
	NumeroCasa string `json:"numero_casa"`
	Contrasena string `json:"contrasena"`
}

// Register creates an account. The backend responds with a phone
// verification challenge handled by VerifyPhone.
func (s *Service) Register(ctx context.Context, in RegisterInput) error {
	in.Correo = strings.TrimSpace(strings.ToLower(in.Correo))
	if _, err := mail.ParseAddress(in.Correo); err != nil {
		return ErrInvalidEmail
	}
	if in.Contrasena == "" {
		return ErrPasswordRequired
	}
	return s.client.Post(ctx, s.eps.Auth+"/register", in, nil)
}

// SendPhoneCode asks the backend to SMS a verification code.
func (s *Service) SendPhoneCode(ctx context.Context, userID string) error {
	return s.client.Post(ctx, s.eps.Auth+"/phone/send-code", map[string]string{
		"userId": userID,
	}, nil)
}

// VerifyPhone submits the SMS code. A successful verification behaves like a
// login: the returned credentials are persisted.
func (s *Service) VerifyPhone(ctx context.Context, userID, code string) (models.Session, error) {
	var resp loginResponse
	err := s.client.Post(ctx, s.eps.Auth+"/phone/verify", map[string]string{
		"userId": userID,
		"code":   code,
	}, &resp)
	if err != nil {
		return models.Session{}, err
	}

	sess := models.Session{
		UserID:   resp.Usuario.ID,
		UserName: resp.Usuario.Nombre,
		UserRole: resp.Usuario.Rol,
		Token:    resp.Token,
	}
	if err := s.store.SaveLogin(sess); err != nil {
		return models.Session{}, fmt.Errorf("persist session: %w", err)
	}
	sess.Token = session.NormalizeToken(sess.Token)
	return sess, nil
}

// ForgotPassword starts the email-based recovery flow.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	email = strings.TrimSpace(strings.ToLower(email))
	if _, err := mail.ParseAddress(email); err != nil {
		return ErrInvalidEmail
	}
	return s.client.Post(ctx, s.eps.Auth+"/forgot-password", map[string]string{
		"correo": email,
	}, nil)
}

// ResetPassword completes recovery with the emailed reset token.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	if newPassword == "" {
		return ErrPasswordRequired
	}
	return s.client.Post(ctx, s.eps.Auth+"/reset-password", map[string]string{
		"token":      token,
		"contrasena": newPassword,
	}, nil)
}

// ChangePassword updates the logged-in account's password.
func (s *Service) ChangePassword(ctx context.Context, userID, current, next string) error {
	if current == "" || next == "" {
		return ErrPasswordRequired
	}
	return s.client.Put(ctx, s.eps.Auth+"/cambiar-contrasena/"+userID, map[string]string{
		"actual": current,
		"nueva":  next,
	}, nil)
}

// RegisterPushToken registers the device push token. Best-effort: callers
// log failures and move on.
func (s *Service) RegisterPushToken(ctx context.Context, token string) error {
	return s.client.Post(ctx, s.eps.Auth+"/push-token", map[string]string{
		"token": token,
	}, nil)
}

// Logout wipes the persisted session wholesale.
func (s *Service) Logout(ctx context.Context) error {
	if err := s.store.Clear(); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	logging.FromContext(ctx).Info("session cleared")
	return nil
}

// DeleteAccount removes the account remotely and wipes local storage
// regardless of what was stored.
func (s *Service) DeleteAccount(ctx context.Context, userID string) error {
	if err := s.client.Delete(ctx, s.eps.Auth+"/"+userID); err != nil {
		return err
	}
	return s.Logout(ctx)
}
