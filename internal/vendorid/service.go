package vendorid

import (
	"context"
	"fmt"
	"strings"

	"github.com/stacksregistry/registry-server/internal/domain"
	"github.com/stacksregistry/registry-server/internal/logger"
	"github.com/stacksregistry/registry-server/internal/sct"
)

// Service answers vendor ID sign-in requests. Delegates are consulted in
// priority order before the local token check, so that a registry taking over
// from another vendor ID implementation keeps honoring the old credentials;
// a delegate's answer is persisted as the patron's delegated identifier.
type Service struct {
	name      string
	decoder   *sct.Decoder
	delegates []Delegate
	logger    *logger.Logger
}

// NewService creates a Service. delegates may be empty, in which case every
// lookup is resolved locally.
func NewService(name string, decoder *sct.Decoder, delegates []Delegate, log *logger.Logger) *Service {
	return &Service{
		name:      name,
		decoder:   decoder,
		delegates: delegates,
		logger:    log,
	}
}

// Name returns the vendor name reported to clients.
func (s *Service) Name() string {
	return s.name
}

// StandardLookup treats a username and password as the two halves of a short
// client token and resolves them to an account identifier and label.
func (s *Service) StandardLookup(ctx context.Context, username, password string) (string, string, error) {
	dpi, err := s.resolve(ctx, username, func(d Delegate) (string, error) {
		accountID, _, err := d.SignInStandard(ctx, username, password)
		return accountID, err
	})
	if err != nil {
		return "", "", err
	}
	if dpi == nil {
		return s.decodeLocal(ctx, func() (*domain.DelegatedPatronIdentifier, error) {
			return s.decoder.DecodeTwoPart(ctx, username, password)
		})
	}
	return dpi.DelegatedIdentifier, s.URNToLabel(dpi.DelegatedIdentifier), nil
}

// AuthdataLookup treats an authdata string as a complete short client token
// and resolves it to an account identifier and label.
func (s *Service) AuthdataLookup(ctx context.Context, authdata string) (string, string, error) {
	var dpi *domain.DelegatedPatronIdentifier
	var err error

	// A delegate answer can only be persisted when the username half is
	// recoverable, so tokens with no pipe go straight to the local decoder
	// for its malformed-token error.
	if i := strings.LastIndex(authdata, "|"); i >= 0 {
		dpi, err = s.resolve(ctx, authdata[:i], func(d Delegate) (string, error) {
			accountID, _, err := d.SignInAuthdata(ctx, authdata)
			return accountID, err
		})
		if err != nil {
			return "", "", err
		}
	}
	if dpi == nil {
		return s.decodeLocal(ctx, func() (*domain.DelegatedPatronIdentifier, error) {
			return s.decoder.Decode(ctx, authdata)
		})
	}
	return dpi.DelegatedIdentifier, s.URNToLabel(dpi.DelegatedIdentifier), nil
}

// URNToLabel builds the label for an account identifier. The registry holds
// no information about patrons, so labels are sparse.
func (s *Service) URNToLabel(urn string) string {
	return fmt.Sprintf("Delegated account ID %s", urn)
}

// resolve asks each delegate for an account identifier and persists the
// first answer. A nil identifier with nil error means no delegate could help.
func (s *Service) resolve(ctx context.Context, username string, ask func(Delegate) (string, error)) (*domain.DelegatedPatronIdentifier, error) {
	for _, delegate := range s.delegates {
		accountID, err := ask(delegate)
		if err != nil {
			if s.logger != nil {
				s.logger.Debug("vendor id delegate could not help", "error", err)
			}
			continue
		}
		if accountID != "" {
			return s.decoder.DecodeTwoPartTrusted(ctx, username, accountID)
		}
	}
	return nil, nil
}

func (s *Service) decodeLocal(ctx context.Context, decode func() (*domain.DelegatedPatronIdentifier, error)) (string, string, error) {
	dpi, err := decode()
	if err != nil {
		return "", "", err
	}
	return dpi.DelegatedIdentifier, s.URNToLabel(dpi.DelegatedIdentifier), nil
}
