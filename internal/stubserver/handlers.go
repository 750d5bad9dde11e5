package stubserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"golang.org/x/crypto/bcrypt"

	"github.com/AbrahamRP97/neighnet-go/internal/logging"
	"github.com/AbrahamRP97/neighnet-go/internal/models"
)

// stubPhoneCode is the fixed SMS code the stub accepts. Real SMS delivery is
// a backend concern the stub does not emulate.
const stubPhoneCode = "123456"

func respondJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.FromContext(ctx).Error("encode response body", "status", status, "error", err)
		return
	}

	logger := logging.FromContext(ctx)
	switch {
	case status >= http.StatusInternalServerError:
		logger.Error("request failed", "status", status, "response", payload)
	case status >= http.StatusBadRequest:
		logger.Warn("request returned client error", "status", status, "response", payload)
	}
}

// authenticate extracts and verifies the bearer token.
func (s *Server) authenticate(r *http.Request) (*sessionClaims, error) {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return nil, ErrInvalidToken
	}
	return s.tokens.Verify(strings.TrimPrefix(header, "Bearer "))
}

func (s *Server) requireAuth(w http.ResponseWriter, r *http.Request) (*sessionClaims, bool) {
	claims, err := s.authenticate(r)
	if err != nil {
		respondJSON(r.Context(), w, http.StatusUnauthorized, map[string]string{"error": "sesión inválida"})
		return nil, false
	}
	return claims, true
}

func (s *Server) requireRole(w http.ResponseWriter, r *http.Request, roles ...string) (*sessionClaims, bool) {
	claims, ok := s.requireAuth(w, r)
	if !ok {
		return nil, false
	}
	for _, role := range roles {
		if claims.Rol == role {
			return claims, true
		}
	}
	respondJSON(r.Context(), w, http.StatusForbidden, map[string]string{"error": "permiso denegado"})
	return nil, false
}

// --- auth domain ---

type credentialsRequest struct {
	Correo     string `json:"correo"`
	Contrasena string `json:"contrasena"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "cuerpo inválido"})
		return
	}

	acct, err := s.store.accountByEmail(strings.ToLower(strings.TrimSpace(req.Correo)))
	if err != nil {
		respondJSON(ctx, w, http.StatusUnauthorized, map[string]string{"error": "credenciales inválidas"})
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(req.Contrasena)) != nil {
		respondJSON(ctx, w, http.StatusUnauthorized, map[string]string{"error": "credenciales inválidas"})
		return
	}

	if !acct.PhoneVerified {
		respondJSON(ctx, w, http.StatusForbidden, map[string]any{
			"needPhoneVerify": true,
			"userId":          acct.ID,
			"telefono":        acct.Telefono,
		})
		return
	}

	s.respondSession(ctx, w, acct)
}

func (s *Server) respondSession(ctx context.Context, w http.ResponseWriter, acct *account) {
	token, err := s.tokens.Issue(acct.ID, acct.Nombre, acct.Rol)
	if err != nil {
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "no se pudo emitir el token"})
		return
	}
	respondJSON(ctx, w, http.StatusOK, map[string]any{
		"usuario": map[string]string{"id": acct.ID, "nombre": acct.Nombre, "rol": acct.Rol},
		"token":   "Bearer " + token,
	})
}

type registerRequest struct {
	Nombre     string `json:"nombre"`
	Correo     string `json:"correo"`
	Telefono   string `json:"telefono"`
	NumeroCasa string `json:"numero_casa"`
	Contrasena string `json:"contrasena"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "cuerpo inválido"})
		return
	}
	req.Correo = strings.ToLower(strings.TrimSpace(req.Correo))
	if req.Correo == "" || req.Contrasena == "" {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "correo y contraseña son obligatorios"})
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Contrasena), bcrypt.DefaultCost)
	if err != nil {
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "no se pudo asegurar la contraseña"})
		return
	}

	acct := &account{
		Profile: models.Profile{
			Nombre:     req.Nombre,
			Correo:     req.Correo,
			Telefono:   req.Telefono,
			NumeroCasa: req.NumeroCasa,
		},
		PasswordHash: string(hashed),
		Rol:          "residente",
		PhoneCode:    stubPhoneCode,
	}
	if err := s.store.createAccount(acct); err != nil {
		respondJSON(ctx, w, http.StatusConflict, map[string]string{"error": "la cuenta ya existe"})
		return
	}

	respondJSON(ctx, w, http.StatusCreated, map[string]string{"userId": acct.ID})
}

func (s *Server) handleSendPhoneCode(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req struct {
		UserID string `json:"userId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "cuerpo inválido"})
		return
	}
	acct, err := s.store.accountByID(req.UserID)
	if err != nil {
		respondJSON(ctx, w, http.StatusNotFound, map[string]string{"error": "usuario no encontrado"})
		return
	}
	acct.PhoneCode = stubPhoneCode
	respondJSON(ctx, w, http.StatusOK, map[string]string{"status": "código enviado"})
}

func (s *Server) handleVerifyPhone(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req struct {
		UserID string `json:"userId"`
		Code   string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "cuerpo inválido"})
		return
	}
	acct, err := s.store.accountByID(req.UserID)
	if err != nil || acct.PhoneCode == "" || acct.PhoneCode != req.Code {
		respondJSON(ctx, w, http.StatusUnauthorized, map[string]string{"error": "código incorrecto"})
		return
	}
	acct.PhoneVerified = true
	s.respondSession(ctx, w, acct)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	claims, ok := s.requireAuth(w, r)
	if !ok {
		return
	}
	acct, err := s.store.accountByID(claims.Subject)
	if err != nil {
		respondJSON(r.Context(), w, http.StatusUnauthorized, map[string]string{"error": "sesión inválida"})
		return
	}
	respondJSON(r.Context(), w, http.StatusOK, acct.Profile)
}

func (s *Server) handlePublicProfile(w http.ResponseWriter, r *http.Request) {
	acct, err := s.store.accountByID(mux.Vars(r)["userId"])
	if err != nil {
		respondJSON(r.Context(), w, http.StatusNotFound, map[string]string{"error": "usuario no encontrado"})
		return
	}
	respondJSON(r.Context(), w, http.StatusOK, models.Profile{
		ID:            acct.ID,
		Nombre:        acct.Nombre,
		FotoURL:       acct.FotoURL,
		AvatarVersion: acct.AvatarVersion,
	})
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireAuth(w, r); !ok {
		return
	}
	acct, err := s.store.accountByID(mux.Vars(r)["userId"])
	if err != nil {
		respondJSON(r.Context(), w, http.StatusNotFound, map[string]string{"error": "usuario no encontrado"})
		return
	}
	respondJSON(r.Context(), w, http.StatusOK, acct.Profile)
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims, ok := s.requireAuth(w, r)
	if !ok {
		return
	}
	userID := mux.Vars(r)["userId"]
	if claims.Subject != userID && claims.Rol != "admin" {
		respondJSON(ctx, w, http.StatusForbidden, map[string]string{"error": "permiso denegado"})
		return
	}

	var req struct {
		Nombre       string `json:"nombre"`
		Telefono     string `json:"telefono"`
		NumeroCasa   string `json:"numero_casa"`
		FotoURL      string `json:"foto_url"`
		RemoveAvatar bool   `json:"remove_avatar"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "cuerpo inválido"})
		return
	}

	acct, err := s.store.accountByID(userID)
	if err != nil {
		respondJSON(ctx, w, http.StatusNotFound, map[string]string{"error": "usuario no encontrado"})
		return
	}
	if req.Nombre != "" {
		acct.Nombre = req.Nombre
	}
	if req.Telefono != "" {
		acct.Telefono = req.Telefono
	}
	if req.NumeroCasa != "" {
		acct.NumeroCasa = req.NumeroCasa
	}
	if req.RemoveAvatar {
		acct.FotoURL = ""
		acct.AvatarVersion++
	} else if req.FotoURL != "" {
		acct.FotoURL = req.FotoURL
		acct.AvatarVersion++
	}
	acct.UpdatedAt = time.Now().UTC().Format(time.RFC3339)

	respondJSON(ctx, w, http.StatusOK, acct.Profile)
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims, ok := s.requireAuth(w, r)
	if !ok {
		return
	}
	userID := mux.Vars(r)["userId"]
	if claims.Subject != userID {
		respondJSON(ctx, w, http.StatusForbidden, map[string]string{"error": "permiso denegado"})
		return
	}

	var req struct {
		Actual string `json:"actual"`
		Nueva  string `json:"nueva"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "cuerpo inválido"})
		return
	}

	acct, err := s.store.accountByID(userID)
	if err != nil {
		respondJSON(ctx, w, http.StatusNotFound, map[string]string{"error": "usuario no encontrado"})
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(req.Actual)) != nil {
		respondJSON(ctx, w, http.StatusUnauthorized, map[string]string{"error": "contraseña actual incorrecta"})
		return
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Nueva), bcrypt.DefaultCost)
	if err != nil {
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "no se pudo asegurar la contraseña"})
		return
	}
	acct.PasswordHash = string(hashed)

	respondJSON(ctx, w, http.StatusOK, map[string]string{"status": "contraseña actualizada"})
}

func (s *Server) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req struct {
		Correo string `json:"correo"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "cuerpo inválido"})
		return
	}

	// Same response whether or not the account exists. The reset token is
	// echoed back because the stub has no mail channel.
	payload := map[string]string{"status": "si la cuenta existe, se enviaron instrucciones"}
	if acct, err := s.store.accountByEmail(strings.ToLower(strings.TrimSpace(req.Correo))); err == nil {
		acct.ResetToken = uuid.NewString()
		payload["reset_token"] = acct.ResetToken
	}
	respondJSON(ctx, w, http.StatusOK, payload)
}

func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req struct {
		Token      string `json:"token"`
		Contrasena string `json:"contrasena"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "cuerpo inválido"})
		return
	}

	acct, err := s.store.accountByResetToken(req.Token)
	if err != nil {
		respondJSON(ctx, w, http.StatusUnauthorized, map[string]string{"error": "token inválido"})
		return
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Contrasena), bcrypt.DefaultCost)
	if err != nil {
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "no se pudo asegurar la contraseña"})
		return
	}
	acct.PasswordHash = string(hashed)
	acct.ResetToken = ""

	respondJSON(ctx, w, http.StatusOK, map[string]string{"status": "contraseña restablecida"})
}

func (s *Server) handlePushToken(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireAuth(w, r); !ok {
		return
	}
	respondJSON(r.Context(), w, http.StatusOK, map[string]string{"status": "token registrado"})
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	claims, ok := s.requireAuth(w, r)
	if !ok {
		return
	}
	userID := mux.Vars(r)["userId"]
	if claims.Subject != userID && claims.Rol != "admin" {
		respondJSON(r.Context(), w, http.StatusForbidden, map[string]string{"error": "permiso denegado"})
		return
	}
	if err := s.store.deleteAccount(userID); err != nil {
		respondJSON(r.Context(), w, http.StatusNotFound, map[string]string{"error": "usuario no encontrado"})
		return
	}
	respondJSON(r.Context(), w, http.StatusOK, map[string]string{"status": "cuenta eliminada"})
}

// --- posts domain ---

func (s *Server) handleListPosts(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireAuth(w, r); !ok {
		return
	}

	limit := 10
	if v := r.URL.Query().Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	items, next := s.store.pagePosts(r.URL.Query().Get("cursor"), limit)

	// legacy=1 reproduces the historical bare-array response shape.
	if r.URL.Query().Get("legacy") == "1" {
		respondJSON(r.Context(), w, http.StatusOK, items)
		return
	}

	payload := map[string]any{"items": items}
	if next != "" {
		payload["nextCursor"] = next
	} else {
		payload["nextCursor"] = nil
	}
	respondJSON(r.Context(), w, http.StatusOK, payload)
}

type postBody struct {
	Mensaje     string   `json:"mensaje"`
	ImagenURL   string   `json:"imagen_url"`
	ImagenesURL []string `json:"imagenes_url"`
}

func (s *Server) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims, ok := s.requireAuth(w, r)
	if !ok {
		return
	}

	var req postBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Mensaje) == "" {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "mensaje es obligatorio"})
		return
	}

	acct, _ := s.store.accountByID(claims.Subject)
	author := models.PostUser{ID: claims.Subject, Nombre: claims.Nombre}
	if acct != nil {
		author.FotoURL = acct.FotoURL
	}

	created := s.store.addPost(models.Post{
		Mensaje:     req.Mensaje,
		ImagenURL:   req.ImagenURL,
		ImagenesURL: req.ImagenesURL,
		Usuario:     author,
	})
	respondJSON(ctx, w, http.StatusCreated, created)
}

func (s *Server) handleUpdatePost(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims, ok := s.requireAuth(w, r)
	if !ok {
		return
	}

	var req postBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "cuerpo inválido"})
		return
	}

	id := mux.Vars(r)["id"]
	var forbidden bool
	err := s.store.updatePost(id, func(p *models.Post) {
		if p.Usuario.ID != claims.Subject && claims.Rol != "admin" {
			forbidden = true
			return
		}
		p.Mensaje = req.Mensaje
		p.ImagenURL = req.ImagenURL
		p.ImagenesURL = req.ImagenesURL
	})
	if errors.Is(err, ErrNotFound) {
		respondJSON(ctx, w, http.StatusNotFound, map[string]string{"error": "publicación no encontrada"})
		return
	}
	if forbidden {
		respondJSON(ctx, w, http.StatusForbidden, map[string]string{"error": "permiso denegado"})
		return
	}
	respondJSON(ctx, w, http.StatusOK, map[string]string{"status": "publicación actualizada"})
}

func (s *Server) handleDeletePost(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims, ok := s.requireAuth(w, r)
	if !ok {
		return
	}

	id := mux.Vars(r)["id"]
	owner, err := s.store.postOwner(id)
	if errors.Is(err, ErrNotFound) {
		respondJSON(ctx, w, http.StatusNotFound, map[string]string{"error": "publicación no encontrada"})
		return
	}
	if owner != claims.Subject && claims.Rol != "admin" {
		respondJSON(ctx, w, http.StatusForbidden, map[string]string{"error": "permiso denegado"})
		return
	}
	if err := s.store.deletePost(id); errors.Is(err, ErrNotFound) {
		respondJSON(ctx, w, http.StatusNotFound, map[string]string{"error": "publicación no encontrada"})
		return
	}
	respondJSON(ctx, w, http.StatusOK, map[string]string{"status": "publicación eliminada"})
}

// --- uploads domain ---

func (s *Server) handleSignedURL(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := s.requireAuth(w, r); !ok {
		return
	}

	var req struct {
		FileName    string `json:"fileName"`
		ContentType string `json:"contentType"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.FileName == "" {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "fileName es obligatorio"})
		return
	}

	signedURL, publicURL, err := s.uploads.SignedURL(ctx, req.FileName, req.ContentType)
	if err != nil {
		logging.FromContext(ctx).Error("issue signed url", "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "no se pudo firmar la subida"})
		return
	}
	respondJSON(ctx, w, http.StatusOK, map[string]string{"signedUrl": signedURL, "publicUrl": publicURL})
}

func (s *Server) handlePutObject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	data, err := io.ReadAll(io.LimitReader(r.Body, 32<<20))
	if err != nil {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "no se pudo leer el archivo"})
		return
	}

	key := mux.Vars(r)["key"]
	if s.local != nil {
		s.local.put(key, data)
		w.WriteHeader(http.StatusOK)
		return
	}

	// S3 mode: relay the object for clients that cannot reach the bucket
	// directly.
	s3store, ok := s.uploads.(*S3UploadStore)
	if !ok {
		respondJSON(ctx, w, http.StatusNotFound, map[string]string{"error": "almacenamiento local deshabilitado"})
		return
	}
	if _, err := s3store.Save(ctx, "uploads/"+key, data); err != nil {
		logging.FromContext(ctx).Error("relay upload", "key", key, "error", err)
		respondJSON(ctx, w, http.StatusBadGateway, map[string]string{"error": "no se pudo guardar el archivo"})
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleGetObject(w http.ResponseWriter, r *http.Request) {
	if s.local == nil {
		respondJSON(r.Context(), w, http.StatusNotFound, map[string]string{"error": "almacenamiento local deshabilitado"})
		return
	}
	data, ok := s.local.get(mux.Vars(r)["key"])
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// --- visitantes domain ---

func (s *Server) handleListVisitantes(w http.ResponseWriter, r *http.Request) {
	claims, ok := s.requireAuth(w, r)
	if !ok {
		return
	}
	out := s.store.visitantesFor(claims.Subject)
	for i := range out {
		out[i].ResidenteID = "" // resident projection omits the owner
	}
	respondJSON(r.Context(), w, http.StatusOK, out)
}

func (s *Server) handleCreateVisitante(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims, ok := s.requireAuth(w, r)
	if !ok {
		return
	}

	var v models.Visitante
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil || strings.TrimSpace(v.Nombre) == "" {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "nombre es obligatorio"})
		return
	}
	v.ID = ""
	v.ResidenteID = claims.Subject
	s.store.saveVisitante(&v)

	projected := v
	projected.ResidenteID = ""
	respondJSON(ctx, w, http.StatusCreated, projected)
}

func (s *Server) handleUpdateVisitante(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims, ok := s.requireAuth(w, r)
	if !ok {
		return
	}

	var v models.Visitante
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "cuerpo inválido"})
		return
	}
	v.ID = mux.Vars(r)["id"]
	v.ResidenteID = claims.Subject
	s.store.saveVisitante(&v)
	respondJSON(ctx, w, http.StatusOK, map[string]string{"status": "visitante actualizado"})
}

func (s *Server) handleDeleteVisitante(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireAuth(w, r); !ok {
		return
	}
	if err := s.store.deleteVisitante(mux.Vars(r)["id"]); err != nil {
		respondJSON(r.Context(), w, http.StatusNotFound, map[string]string{"error": "visitante no encontrado"})
		return
	}
	respondJSON(r.Context(), w, http.StatusOK, map[string]string{"status": "visitante eliminado"})
}

// --- passes / vigilancia domain ---

func (s *Server) handleIssuePass(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := s.requireAuth(w, r); !ok {
		return
	}

	var req struct {
		VisitanteID string         `json:"visitante_id"`
		TTLHours    int            `json:"ttl_hours"`
		Meta        map[string]any `json:"meta"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.VisitanteID == "" {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "visitante_id es obligatorio"})
		return
	}

	ttl := s.passTTL
	if req.TTLHours > 0 {
		ttl = time.Duration(req.TTLHours) * time.Hour
	}
	now := time.Now().UTC()

	envelope, err := s.tokens.SignEnvelope(map[string]any{
		"id_qr":        uuid.NewString(),
		"visitante_id": req.VisitanteID,
		"issued_at":    now.Unix(),
		"expires_at":   now.Add(ttl).Unix(),
		"meta":         req.Meta,
	})
	if err != nil {
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "no se pudo firmar el pase"})
		return
	}
	respondJSON(ctx, w, http.StatusOK, map[string]string{"envelope": envelope})
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims, ok := s.requireRole(w, r, "guardia", "admin")
	if !ok {
		return
	}

	var req struct {
		IDQR        string `json:"id_qr"`
		VisitanteID string `json:"visitante_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.IDQR == "" || req.VisitanteID == "" {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "id_qr y visitante_id son obligatorios"})
		return
	}

	visit := s.store.registerScan(req.IDQR, req.VisitanteID, claims.Subject)
	respondJSON(ctx, w, http.StatusOK, map[string]string{
		"message": visit.Tipo + " registrada",
	})
}

func (s *Server) handleAttachEvidence(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := s.requireRole(w, r, "guardia", "admin"); !ok {
		return
	}

	var req struct {
		CedulaURL string `json:"cedula_url"`
		PlacaURL  string `json:"placa_url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "cuerpo inválido"})
		return
	}
	if err := s.store.attachEvidence(mux.Vars(r)["id"], req.CedulaURL, req.PlacaURL); err != nil {
		respondJSON(ctx, w, http.StatusNotFound, map[string]string{"error": "visita no encontrada"})
		return
	}
	respondJSON(ctx, w, http.StatusOK, map[string]string{"status": "evidencia adjuntada"})
}

// --- admin domain ---

func (s *Server) handleAdminVisitantes(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireRole(w, r, "admin"); !ok {
		return
	}
	respondJSON(r.Context(), w, http.StatusOK, s.store.visitantesFor(""))
}

func (s *Server) handleAdminResidentes(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireRole(w, r, "admin"); !ok {
		return
	}
	respondJSON(r.Context(), w, http.StatusOK, s.store.residentes())
}

func (s *Server) handleAdminVisitas(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireRole(w, r, "admin"); !ok {
		return
	}

	query := r.URL.Query()
	var from, to time.Time
	if v := query.Get("from"); v != "" {
		from, _ = time.Parse(time.RFC3339, v)
	}
	if v := query.Get("to"); v != "" {
		to, _ = time.Parse(time.RFC3339, v)
	}
	limit := 0
	if v := query.Get("limit"); v != "" {
		limit, _ = strconv.Atoi(v)
	}

	items := s.store.listVisits(from, to, query.Get("estado"), limit)
	respondJSON(r.Context(), w, http.StatusOK, map[string]any{"items": items})
}
