package web

import (
	"net/http"
	"strings"

	"github.com/shophub-dev/storefront/internal/auth"
	"github.com/shophub-dev/storefront/internal/checkout"
)

type signupReq struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// signup registers the account and mails a verification code; the
// session stays logged out until the code is confirmed.
func (s *Server) signup(w http.ResponseWriter, r *http.Request) {
	var req signupReq
	if err := decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	_, code, err := stateFrom(r.Context()).Auth.Signup(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		s.writeError(w, err)
		return
	}
	// A failed mail is not a failed signup; the code can be resent.
	if err := s.mailer.SendVerificationCode(r.Context(), req.Email, req.Name, code); err != nil {
		s.log.Warn("verification mail failed", "email", req.Email, "err", err)
	}
	s.writeJSON(w, http.StatusCreated, map[string]string{
		"email":   req.Email,
		"message": "verification code sent, check your email",
	})
}

type verifyEmailReq struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

func (s *Server) verifyEmail(w http.ResponseWriter, r *http.Request) {
	var req verifyEmailReq
	if err := decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if strings.TrimSpace(req.Code) == "" {
		s.writeError(w, &checkout.ValidationError{Message: "please enter the verification code"})
		return
	}
	if err := stateFrom(r.Context()).Auth.VerifyEmail(r.Context(), req.Email, req.Code); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"message": "email verified, you can now log in"})
}

type resendReq struct {
	Email string `json:"email"`
}

func (s *Server) resendVerification(w http.ResponseWriter, r *http.Request) {
	var req resendReq
	if err := decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	st := stateFrom(r.Context())
	code, ok := st.Auth.PendingCode(r.Context(), req.Email)
	if !ok {
		s.writeError(w, auth.ErrVerificationNotFound)
		return
	}
	if err := s.mailer.SendVerificationCode(r.Context(), req.Email, "", code); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"message": "verification code sent"})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req loginReq
	if err := decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	resp, err := stateFrom(r.Context()).Auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	stateFrom(r.Context()).Auth.Logout(r.Context())
	w.WriteHeader(http.StatusNoContent)
}
