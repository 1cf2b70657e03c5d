// Package vendorid implements the DRM vendor ID sign-in flow: short client
// token credentials are resolved to delegated account identifiers, with
// optional delegation to upstream vendor ID servers during a migration.
package vendorid

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"
)

var (
	// ErrAuthentication means the upstream server is working properly but
	// rejected the credentials.
	ErrAuthentication = errors.New("vendor id authentication failed")

	// ErrServer means the upstream server is not working properly.
	ErrServer = errors.New("unexpected vendor id server response")
)

const (
	signInStandardBody = `<signInRequest method="standard" xmlns="http://ns.adobe.com/adept">
<username>%s</username>
<password>%s</password>
</signInRequest>`

	signInAuthdataBody = `<signInRequest method="authData" xmlns="http://ns.adobe.com/adept">
<authData>%s</authData>
</signInRequest>`

	userInfoBody = `<accountInfoRequest method="standard" xmlns="http://ns.adobe.com/adept">
<user>%s</user>
</accountInfoRequest>`
)

var (
	userRE        = regexp.MustCompile(`<user>([^<]+)</user>`)
	labelRE       = regexp.MustCompile(`<label>([^<]+)</label>`)
	upstreamErrRE = regexp.MustCompile(`<error [^<]+ data="([^<]+)"`)
)

// Delegate is an upstream vendor ID server that may be able to resolve
// credentials this registry cannot.
type Delegate interface {
	SignInStandard(ctx context.Context, username, password string) (accountID, label string, err error)
	SignInAuthdata(ctx context.Context, authdata string) (accountID, label string, err error)
}

// Client speaks the vendor ID protocol to an upstream server.
type Client struct {
	signInURL      string
	accountInfoURL string
	statusURL      string
	httpClient     *http.Client
}

// NewClient creates a Client for the server at baseURL. The protocol
// endpoints (SignIn, AccountInfo, Status) hang directly off the base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		signInURL:      baseURL + "SignIn",
		accountInfoURL: baseURL + "AccountInfo",
		statusURL:      baseURL + "Status",
		httpClient:     &http.Client{Timeout: 10 * time.Second},
	}
}

// NewDelegates creates an HTTP delegate for each base URL, preserving order.
func NewDelegates(baseURLs []string) []Delegate {
	delegates := make([]Delegate, 0, len(baseURLs))
	for _, u := range baseURLs {
		delegates = append(delegates, NewClient(u))
	}
	return delegates
}

// Status reports whether the upstream server is up.
func (c *Client) Status(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.statusURL, nil)
	if err != nil {
		return err
	}
	content, err := c.do(req)
	if err != nil {
		return err
	}
	if string(content) != "UP" {
		return fmt.Errorf("%w: %s", ErrServer, content)
	}
	return nil
}

// SignInStandard attempts to sign in with a username and password.
func (c *Client) SignInStandard(ctx context.Context, username, password string) (string, string, error) {
	body := fmt.Sprintf(signInStandardBody, username, password)
	return c.signIn(ctx, body)
}

// SignInAuthdata attempts to sign in with an authdata string.
func (c *Client) SignInAuthdata(ctx context.Context, authdata string) (string, string, error) {
	encoded := base64.StdEncoding.EncodeToString([]byte(authdata))
	body := fmt.Sprintf(signInAuthdataBody, encoded)
	return c.signIn(ctx, body)
}

// UserInfo turns an account identifier into its label.
func (c *Client) UserInfo(ctx context.Context, urn string) (string, error) {
	content, err := c.post(ctx, c.accountInfoURL, fmt.Sprintf(userInfoBody, urn))
	if err != nil {
		return "", err
	}
	label := extract(labelRE, content)
	if label == "" {
		return "", fmt.Errorf("%w: %s", ErrServer, content)
	}
	return label, nil
}

func (c *Client) signIn(ctx context.Context, body string) (string, string, error) {
	content, err := c.post(ctx, c.signInURL, body)
	if err != nil {
		return "", "", err
	}

	accountID := extract(userRE, content)
	label := extract(labelRE, content)
	if accountID == "" || label == "" {
		return "", "", fmt.Errorf("%w: %s", ErrServer, content)
	}
	return accountID, label, nil
}

func (c *Client) post(ctx context.Context, url, body string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/xml")
	return c.do(req)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status code %d", ErrServer, resp.StatusCode)
	}
	if upstream := extract(upstreamErrRE, content); upstream != "" {
		return nil, fmt.Errorf("%w: %s", ErrAuthentication, upstream)
	}
	return content, nil
}

func extract(re *regexp.Regexp, content []byte) string {
	match := re.FindSubmatch(content)
	if match == nil {
		return ""
	}
	return string(match[1])
}
