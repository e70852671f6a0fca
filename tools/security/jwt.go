package security

import (
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

// Options controls signing parameters for every token the system mints.
type Options struct {
	Secret []byte
	Alg    string        // HS256/HS384/HS512, default HS256
	TTL    time.Duration // default 720h
}

func DefaultOptions(secret []byte) Options {
	return Options{Secret: secret, Alg: "HS256", TTL: 720 * time.Hour}
}

// Generate mints a login token for userID.
func Generate(opts Options, userID string) (string, time.Time, error) {
	method, err := signingMethod(opts.Alg)
	if err != nil {
		return "", time.Time{}, err
	}
	if opts.TTL <= 0 {
		opts.TTL = 720 * time.Hour
	}
	now := time.Now()
	exp := now.Add(opts.TTL)

	claims := jwtlib.MapClaims{
		"id":  userID,
		"iat": now.Unix(),
		"exp": exp.Unix(),
	}
	signed, err := jwtlib.NewWithClaims(method, claims).SignedString(opts.Secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// GeneratePairing mints the QR-login token. It embeds the account id plus a
// single-use nonce; the nonce is burned server-side when the token is
// consumed, so a captured token cannot be replayed.
func GeneratePairing(opts Options, userID, nonce string, ttl time.Duration) (string, error) {
	method, err := signingMethod(opts.Alg)
	if err != nil {
		return "", err
	}
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	now := time.Now()
	claims := jwtlib.MapClaims{
		"id":    userID,
		"nonce": nonce,
		"iat":   now.Unix(),
		"exp":   now.Add(ttl).Unix(),
	}
	return jwtlib.NewWithClaims(method, claims).SignedString(opts.Secret)
}

// Verify parses and validates a token, returning its claims. Only HMAC
// signatures are accepted.
func Verify(opts Options, token string) (jwtlib.MapClaims, error) {
	parsed, err := jwtlib.Parse(token, func(t *jwtlib.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected alg: %v", t.Header["alg"])
		}
		return opts.Secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !parsed.Valid {
		return nil, errors.New("invalid token")
	}
	claims, ok := parsed.Claims.(jwtlib.MapClaims)
	if !ok {
		return nil, errors.New("claims type mismatch")
	}
	return claims, nil
}

// UserID extracts the "id" claim from a verified token.
func UserID(claims jwtlib.MapClaims) string {
	if v, ok := claims["id"].(string); ok {
		return v
	}
	return ""
}

// Nonce extracts the "nonce" claim from a verified pairing token.
func Nonce(claims jwtlib.MapClaims) string {
	if v, ok := claims["nonce"].(string); ok {
		return v
	}
	return ""
}

func signingMethod(alg string) (jwtlib.SigningMethod, error) {
	switch strings.ToUpper(strings.TrimSpace(alg)) {
	case "", "HS256":
		return jwtlib.SigningMethodHS256, nil
	case "HS384":
		return jwtlib.SigningMethodHS384, nil
	case "HS512":
		return jwtlib.SigningMethodHS512, nil
	default:
		return nil, errors.Errorf("unsupported alg: %s (use HS256/HS384/HS512)", alg)
	}
}
