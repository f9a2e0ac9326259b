package identity

import (
	"context"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Participant ids derived from a study token carry this prefix so the study
// team can tell tokened participants from anonymous ones in exports.
const studyIDPrefix = "stu_"

// Resolver produces one stable participant id per client context. With a
// study token present the id is derived from the token and wins over any
// previously stored id; without one the stored id is reused or a fresh
// random id is generated. Resolve never fails: persistence is best effort.
type Resolver struct {
	store  Store
	secret []byte
	issuer string
	logger zerolog.Logger
}

func NewResolver(store Store, secret []byte, issuer string, logger zerolog.Logger) *Resolver {
	return &Resolver{
		store:  store,
		secret: secret,
		issuer: issuer,
		logger: logger.With().Str("component", "identity_resolver").Logger(),
	}
}

type studyClaims struct {
	jwt.RegisteredClaims
}

// Resolve returns the participant id for this client context.
func (r *Resolver) Resolve(ctx context.Context, clientKey, studyToken string) string {
	studyToken = strings.TrimSpace(studyToken)
	if studyToken != "" {
		id := r.idFromToken(studyToken)
		stored, _ := r.store.Get(ctx, clientKey)
		if stored != id {
			if err := r.store.Put(ctx, clientKey, id); err != nil {
				r.logger.Warn().Err(err).Msg("failed to persist token-derived id")
			}
		}
		return id
	}

	stored, err := r.store.Get(ctx, clientKey)
	if err != nil {
		r.logger.Warn().Err(err).Msg("stored id lookup failed")
	}
	if !isPlaceholder(stored) {
		return stored
	}

	id := uuid.NewString()
	if err := r.store.Put(ctx, clientKey, id); err != nil {
		r.logger.Warn().Err(err).Msg("failed to persist generated id")
	}
	return id
}

// idFromToken prefers the verified subject of a signed study token and falls
// back to deriving from the raw token text, so an unsigned or expired token
// still yields the same id on every load.
func (r *Resolver) idFromToken(token string) string {
	claims := &studyClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return r.secret, nil
	})
	if err == nil && parsed.Valid && claims.Subject != "" {
		return studyIDPrefix + claims.Subject
	}
	if err != nil {
		r.logger.Warn().Err(err).Msg("study token did not verify; deriving id from raw token")
	}
	return studyIDPrefix + token
}

func isPlaceholder(id string) bool {
	id = strings.TrimSpace(id)
	// historical placeholder ids were short hand-typed names
	return id == "" || len(id) < 8
}
