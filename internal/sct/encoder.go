package sct

import (
	"crypto/hmac"
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/stacksregistry/registry-server/internal/domain"
	"github.com/stacksregistry/registry-server/internal/errors"
	"github.com/stacksregistry/registry-server/internal/logger"
)

// Epoch anchors token expirations: an expiration field counts minutes since
// this instant.
var Epoch = time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC)

// unixEpochCutoff distinguishes legacy tokens: an expiration at least this
// large was minted against the Unix epoch in seconds rather than minutes
// since Epoch.
const unixEpochCutoff = 1_500_000_000

// DefaultLifetime is how long freshly encoded tokens remain valid.
const DefaultLifetime = time.Hour

// Wire-format ceilings some downstream clients enforce. Exceeding them does
// not fail encoding, but it is worth a warning in the logs.
const (
	maxUsernameLen  = 80
	maxSignatureLen = 76
)

// Encoder mints Short Client Tokens on behalf of registered libraries.
type Encoder struct {
	logger *logger.Logger
	now    func() time.Time
}

// NewEncoder creates an Encoder.
func NewEncoder(log *logger.Logger) *Encoder {
	return &Encoder{logger: log, now: time.Now}
}

// Encode mints a token for the patron that expires DefaultLifetime from now.
func (e *Encoder) Encode(library *domain.Library, patronIdentifier string) (string, error) {
	return e.EncodeExpiring(library, patronIdentifier, e.now().Add(DefaultLifetime))
}

// EncodeExpiring mints a token for the patron with an explicit expiry time.
func (e *Encoder) EncodeExpiring(library *domain.Library, patronIdentifier string, expires time.Time) (string, error) {
	if library.ShortName == "" {
		return "", errors.Validation("cannot generate a short client token without a short name")
	}
	if library.SharedSecret == "" {
		return "", errors.Validation("cannot generate a short client token without a shared secret")
	}
	if patronIdentifier == "" {
		return "", errors.Validation("cannot generate a short client token without a patron identifier")
	}

	expiration := int64(expires.Sub(Epoch).Minutes())
	username := fmt.Sprintf("%s|%d|%s", library.ShortName, expiration, patronIdentifier)
	signature := AdobeBase64Encode(sign(library.SharedSecret, username))

	if e.logger != nil {
		if len(username) > maxUsernameLen {
			e.logger.Warn("username part exceeds downstream client limit",
				"short_name", library.ShortName, "length", len(username), "limit", maxUsernameLen)
		}
		if len(signature) > maxSignatureLen {
			e.logger.Warn("signature part exceeds downstream client limit",
				"short_name", library.ShortName, "length", len(signature), "limit", maxSignatureLen)
		}
	}

	return username + "|" + signature, nil
}

// sign computes the HMAC-SHA256 signature of message under the library's
// shared secret.
func sign(secret, message string) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(message))
	return mac.Sum(nil)
}
