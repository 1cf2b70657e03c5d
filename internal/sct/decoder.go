package sct

import (
	"context"
	"crypto/hmac"
	"strconv"
	"strings"
	"time"

	"github.com/stacksregistry/registry-server/internal/domain"
	"github.com/stacksregistry/registry-server/internal/errors"
	"github.com/stacksregistry/registry-server/internal/store"
)

// Decoder validates Short Client Tokens and resolves them to delegated
// patron identifiers. Every failure mode is a typed error: a token is
// accepted or rejected, never partially decoded.
type Decoder struct {
	libraries   store.LibraryLookup
	identifiers store.DelegatedIdentifiers
	urns        *URNMinter
	now         func() time.Time
}

// NewDecoder creates a Decoder backed by the given library lookup and
// delegated-identifier store.
func NewDecoder(libraries store.LibraryLookup, identifiers store.DelegatedIdentifiers, urns *URNMinter) *Decoder {
	return &Decoder{
		libraries:   libraries,
		identifiers: identifiers,
		urns:        urns,
		now:         time.Now,
	}
}

// Decode validates a complete token and returns the patron's delegated
// identifier, minting one on first sight of the patron.
func (d *Decoder) Decode(ctx context.Context, token string) (*domain.DelegatedPatronIdentifier, error) {
	if !strings.Contains(token, "|") {
		return nil, errors.MalformedTokenf("supposed client token %q does not contain a pipe", token)
	}
	// The patron identifier may itself contain pipes; the signature never
	// does, so the split happens at the last one.
	i := strings.LastIndex(token, "|")
	return d.DecodeTwoPart(ctx, token[:i], token[i+1:])
}

// DecodeTwoPart validates a token already split into its username half
// (shortname|expiration|patron) and its encoded signature half.
func (d *Decoder) DecodeTwoPart(ctx context.Context, username, password string) (*domain.DelegatedPatronIdentifier, error) {
	signature, err := AdobeBase64Decode(password)
	if err != nil {
		return nil, errors.MalformedTokenf("invalid password: %s", password)
	}
	library, patronIdentifier, err := d.verify(ctx, username, signature)
	if err != nil {
		return nil, err
	}

	dpi, _, err := d.identifiers.GetOrCreateDelegatedIdentifier(
		ctx, domain.DelegatedIdentifierAdobeAccountID, library.ID, patronIdentifier,
		d.urns.Mint,
	)
	return dpi, err
}

// DecodeTwoPartTrusted records accountID as the delegated identifier for the
// patron named by username. Structural checks still apply, but signature and
// expiry do not; an upstream server has already vouched for the credentials.
func (d *Decoder) DecodeTwoPartTrusted(ctx context.Context, username, accountID string) (*domain.DelegatedPatronIdentifier, error) {
	library, patronIdentifier, _, err := d.splitUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	dpi, _, err := d.identifiers.GetOrCreateDelegatedIdentifier(
		ctx, domain.DelegatedIdentifierAdobeAccountID, library.ID, patronIdentifier,
		func() (string, error) { return accountID, nil },
	)
	return dpi, err
}

// splitUsername checks the structure of the username half and returns the
// issuing library, the patron identifier and the raw expiration value.
func (d *Decoder) splitUsername(ctx context.Context, username string) (*domain.Library, string, float64, error) {
	parts := strings.SplitN(username, "|", 3)
	if len(parts) != 3 {
		return nil, "", 0, errors.MalformedTokenf("invalid client token: %s", username)
	}
	shortName := strings.ToUpper(parts[0])
	expirationField := parts[1]
	patronIdentifier := parts[2]

	library, err := d.libraries.LibraryByShortName(ctx, shortName)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, "", 0, errors.UnknownLibraryf("I don't know how to handle tokens from library %q", shortName)
		}
		return nil, "", 0, err
	}

	expiration, err := strconv.ParseFloat(expirationField, 64)
	if err != nil {
		return nil, "", 0, errors.MalformedTokenf("expiration time %q is not numeric", expirationField)
	}

	if patronIdentifier == "" {
		return nil, "", 0, errors.MalformedTokenf("token %s has empty patron identifier", username)
	}

	return library, patronIdentifier, expiration, nil
}

// verify checks the expiry and signature of the username half on top of the
// structural checks.
func (d *Decoder) verify(ctx context.Context, username string, signature []byte) (*domain.Library, string, error) {
	library, patronIdentifier, expiration, err := d.splitUsername(ctx, username)
	if err != nil {
		return nil, "", err
	}

	// Tokens with huge expiration values predate the minutes-since-epoch
	// scheme and count seconds since the Unix epoch instead.
	var expiry time.Time
	if expiration >= unixEpochCutoff {
		expiry = time.Unix(int64(expiration), 0).UTC()
	} else {
		expiry = Epoch.Add(time.Duration(expiration * float64(time.Minute)))
	}

	now := d.now().UTC()
	if !expiry.After(now) {
		return nil, "", errors.TokenExpiredf("token %s expired at %s (now is %s)",
			username, expiry.Format(time.RFC3339), now.Format(time.RFC3339))
	}

	if !hmac.Equal(signature, sign(library.SharedSecret, username)) {
		return nil, "", errors.SignatureMismatchf("invalid signature for %s", username)
	}

	return library, patronIdentifier, nil
}
