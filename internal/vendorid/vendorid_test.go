package vendorid

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacksregistry/registry-server/internal/domain"
	regerrors "github.com/stacksregistry/registry-server/internal/errors"
	"github.com/stacksregistry/registry-server/internal/sct"
	"github.com/stacksregistry/registry-server/internal/store"
)

// fakeLibraries satisfies store.LibraryLookup from a map keyed by short name.
type fakeLibraries map[string]*domain.Library

func (f fakeLibraries) LibraryByShortName(_ context.Context, shortName string) (*domain.Library, error) {
	lib, ok := f[shortName]
	if !ok {
		return nil, store.ErrNotFound
	}
	return lib, nil
}

// fakeIdentifiers satisfies store.DelegatedIdentifiers in memory.
type fakeIdentifiers struct {
	rows map[string]*domain.DelegatedPatronIdentifier
}

func newFakeIdentifiers() *fakeIdentifiers {
	return &fakeIdentifiers{rows: make(map[string]*domain.DelegatedPatronIdentifier)}
}

func (f *fakeIdentifiers) GetOrCreateDelegatedIdentifier(_ context.Context, idType, libraryID, patronIdentifier string, factory func() (string, error)) (*domain.DelegatedPatronIdentifier, bool, error) {
	key := idType + "|" + libraryID + "|" + patronIdentifier
	if dpi, ok := f.rows[key]; ok {
		return dpi, false, nil
	}
	identifier, err := factory()
	if err != nil {
		return nil, false, err
	}
	dpi := &domain.DelegatedPatronIdentifier{
		ID:                  fmt.Sprintf("dpi_%d", len(f.rows)+1),
		Type:                idType,
		LibraryID:           libraryID,
		PatronIdentifier:    patronIdentifier,
		DelegatedIdentifier: identifier,
		CreatedAt:           time.Now(),
	}
	f.rows[key] = dpi
	return dpi, true, nil
}

// fakeDelegate answers every sign-in with a fixed account or error.
type fakeDelegate struct {
	accountID string
	label     string
	err       error
	calls     int
}

func (f *fakeDelegate) SignInStandard(_ context.Context, _, _ string) (string, string, error) {
	f.calls++
	return f.accountID, f.label, f.err
}

func (f *fakeDelegate) SignInAuthdata(_ context.Context, _ string) (string, string, error) {
	f.calls++
	return f.accountID, f.label, f.err
}

func testLibrary() *domain.Library {
	return &domain.Library{
		ID:           "lib_nypl",
		Name:         "New York Public Library",
		ShortName:    "NYPL",
		SharedSecret: "top secret",
	}
}

func newTestService(t *testing.T, delegates ...Delegate) (*Service, *domain.Library) {
	t.Helper()

	lib := testLibrary()
	libs := fakeLibraries{lib.ShortName: lib}
	minter, err := sct.NewURNMinter("0x685b35c00f05")
	require.NoError(t, err)
	decoder := sct.NewDecoder(libs, newFakeIdentifiers(), minter)
	return NewService("Palace", decoder, delegates, nil), lib
}

func validToken(t *testing.T, lib *domain.Library, patron string) (username, password string) {
	t.Helper()

	token, err := sct.NewEncoder(nil).Encode(lib, patron)
	require.NoError(t, err)
	i := strings.LastIndex(token, "|")
	return token[:i], token[i+1:]
}

func TestStandardLookupLocal(t *testing.T) {
	svc, lib := newTestService(t)
	username, password := validToken(t, lib, "patron-1")

	accountID, label, err := svc.StandardLookup(context.Background(), username, password)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(accountID, "urn:uuid:0"))
	assert.Equal(t, "Delegated account ID "+accountID, label)
}

func TestAuthdataLookupLocal(t *testing.T) {
	svc, lib := newTestService(t)
	username, password := validToken(t, lib, "patron-1")

	accountID, label, err := svc.AuthdataLookup(context.Background(), username+"|"+password)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(accountID, "urn:uuid:0"))
	assert.Equal(t, svc.URNToLabel(accountID), label)
}

func TestDelegateAnswerIsPersisted(t *testing.T) {
	delegate := &fakeDelegate{accountID: "urn:uuid:delegated", label: "Delegated"}
	svc, lib := newTestService(t, delegate)

	// The signature is garbage, but the delegate vouches for the
	// credentials, so its account identifier is adopted.
	username, _ := validToken(t, lib, "patron-1")
	accountID, _, err := svc.StandardLookup(context.Background(), username, "nonsense")
	require.NoError(t, err)
	assert.Equal(t, "urn:uuid:delegated", accountID)
	assert.Equal(t, 1, delegate.calls)

	// The identifier stuck: the same patron resolves to it again even
	// though the delegate is asked first and answers again.
	again, _, err := svc.StandardLookup(context.Background(), username, "nonsense")
	require.NoError(t, err)
	assert.Equal(t, accountID, again)
}

func TestBrokenDelegateFallsBackToLocal(t *testing.T) {
	broken := &fakeDelegate{err: errors.New("connection refused")}
	svc, lib := newTestService(t, broken)
	username, password := validToken(t, lib, "patron-1")

	accountID, _, err := svc.StandardLookup(context.Background(), username, password)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(accountID, "urn:uuid:0"))
	assert.Equal(t, 1, broken.calls)
}

func TestDelegatesTriedInOrder(t *testing.T) {
	broken := &fakeDelegate{err: errors.New("unreachable")}
	working := &fakeDelegate{accountID: "urn:uuid:second", label: "Second"}
	svc, lib := newTestService(t, broken, working)
	username, _ := validToken(t, lib, "patron-1")

	accountID, _, err := svc.StandardLookup(context.Background(), username, "nonsense")
	require.NoError(t, err)
	assert.Equal(t, "urn:uuid:second", accountID)
	assert.Equal(t, 1, broken.calls)
	assert.Equal(t, 1, working.calls)
}

func TestDelegateCannotRescueUnknownLibrary(t *testing.T) {
	delegate := &fakeDelegate{accountID: "urn:uuid:delegated", label: "Delegated"}
	svc, _ := newTestService(t, delegate)

	_, _, err := svc.StandardLookup(context.Background(), "OTHER|1234|patron", "nonsense")
	require.Error(t, err)
	assert.True(t, regerrors.Is(err, regerrors.ErrUnknownLibrary))
}

func TestAuthdataLookupWithoutPipe(t *testing.T) {
	delegate := &fakeDelegate{accountID: "urn:uuid:delegated", label: "Delegated"}
	svc, _ := newTestService(t, delegate)

	_, _, err := svc.AuthdataLookup(context.Background(), "no pipes here")
	require.Error(t, err)
	assert.True(t, regerrors.Is(err, regerrors.ErrMalformedToken))
	assert.Zero(t, delegate.calls)
}

func TestServiceName(t *testing.T) {
	svc, _ := newTestService(t)
	assert.Equal(t, "Palace", svc.Name())
}

func TestClientSignInStandard(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/AdobeAuth/SignIn", r.URL.Path)
		fmt.Fprint(w, `<signInResponse xmlns="http://ns.adobe.com/adept">
<user>urn:uuid:upstream</user>
<label>Patron Label</label>
</signInResponse>`)
	}))
	defer server.Close()

	client := NewClient(server.URL + "/AdobeAuth/")
	accountID, label, err := client.SignInStandard(context.Background(), "user", "pass")
	require.NoError(t, err)
	assert.Equal(t, "urn:uuid:upstream", accountID)
	assert.Equal(t, "Patron Label", label)
}

func TestClientUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `<error xmlns="http://ns.adobe.com/adept" data="E_AUTH_FAILED Incorrect token signature"/>`)
	}))
	defer server.Close()

	client := NewClient(server.URL + "/")
	_, _, err := client.SignInStandard(context.Background(), "user", "pass")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAuthentication)
	assert.Contains(t, err.Error(), "E_AUTH_FAILED")
}

func TestClientBadStatusCode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(server.URL + "/")
	_, _, err := client.SignInAuthdata(context.Background(), "authdata")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrServer)
}

func TestClientStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/AdobeAuth/Status", r.URL.Path)
		fmt.Fprint(w, "UP")
	}))
	defer server.Close()

	client := NewClient(server.URL + "/AdobeAuth/")
	assert.NoError(t, client.Status(context.Background()))
}

func TestClientUserInfo(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/AdobeAuth/AccountInfo", r.URL.Path)
		fmt.Fprint(w, `<accountInfoResponse xmlns="http://ns.adobe.com/adept">
<label>Delegated account ID urn:uuid:x</label>
</accountInfoResponse>`)
	}))
	defer server.Close()

	client := NewClient(server.URL + "/AdobeAuth/")
	label, err := client.UserInfo(context.Background(), "urn:uuid:x")
	require.NoError(t, err)
	assert.Equal(t, "Delegated account ID urn:uuid:x", label)
}

func TestNewDelegates(t *testing.T) {
	delegates := NewDelegates([]string{"https://one.example/", "https://two.example/"})
	assert.Len(t, delegates, 2)
}
