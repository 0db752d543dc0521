package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/marcelojr/e-voting/internal/domain"
)

const (
	headerRequestID = "X-Request-Id"
	headerUserID    = "X-User-Id"
)

var errNaoAutenticado = errors.New("eleitor nao autenticado")

type contextKeyRequestID struct{}

// requestID reaproveita o X-Request-Id do gateway ou gera um uuid, e devolve no cabeçalho.
func (a *API) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(headerRequestID))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(headerRequestID, id)
		ctx := context.WithValue(r.Context(), contextKeyRequestID{}, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (a *API) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				a.log(r).Error("panic no handler", "panic", rec, "rota", r.URL.Path)
				responderJSON(w, http.StatusInternalServerError, erroResposta{Erro: "erro interno", Codigo: codigoInterno})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(contextKeyRequestID{}).(string)
	return id
}

func (a *API) log(r *http.Request) *slog.Logger {
	return a.logger.With("request_id", requestIDFrom(r.Context()))
}

// eleitor extrai a identidade autenticada. Com segredo JWT configurado, um Bearer válido
// tem precedência; o X-User-Id injetado pelo gateway continua aceito.
func (a *API) eleitor(r *http.Request) (domain.VoterID, error) {
	if len(a.jwtSecret) > 0 {
		if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
			return a.eleitorDoToken(token)
		}
	}

	raw := strings.TrimSpace(r.Header.Get(headerUserID))
	if raw == "" {
		return 0, errNaoAutenticado
	}
	return parseVoterID(raw)
}

func (a *API) eleitorDoToken(token string) (domain.VoterID, error) {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return a.jwtSecret, nil
	}, jwt.WithTimeFunc(a.now))
	if err != nil || !parsed.Valid {
		return 0, fmt.Errorf("%w: token invalido", errNaoAutenticado)
	}
	return parseVoterID(claims.Subject)
}

func parseVoterID(raw string) (domain.VoterID, error) {
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: identificador %q", errNaoAutenticado, raw)
	}
	return domain.VoterID(n), nil
}
