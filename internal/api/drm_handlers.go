package api

import (
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/stacksregistry/registry-server/internal/metrics"
)

// Vendor ID protocol error classes and failure messages.
const (
	authErrorType        = "AUTH"
	accountInfoErrorType = "ACCOUNT_INFO"

	tokenFailure          = "Incorrect token."
	authenticationFailure = "Incorrect barcode or PIN."
)

const (
	signInResponseTemplate = `<signInResponse xmlns="http://ns.adobe.com/adept">
    <user>%s</user>
    <label>%s</label>
</signInResponse>`

	accountInfoResponseTemplate = `<accountInfoResponse xmlns="http://ns.adobe.com/adept">
    <label>%s</label>
</accountInfoResponse>`

	errorResponseTemplate = `<error xmlns="http://ns.adobe.com/adept" data="E_%s_%s %s"/>`
)

type signInRequest struct {
	XMLName  xml.Name `xml:"http://ns.adobe.com/adept signInRequest"`
	Method   string   `xml:"method,attr"`
	Username string   `xml:"username"`
	Password string   `xml:"password"`
	AuthData string   `xml:"authData"`
}

type accountInfoRequest struct {
	XMLName xml.Name `xml:"http://ns.adobe.com/adept accountInfoRequest"`
	Method  string   `xml:"method,attr"`
	User    string   `xml:"user"`
}

// handleSignIn processes an incoming signInRequest document. The protocol
// reports failures inside a 200 response, as an error document.
func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.writeErrorDocument(w, authErrorType, "Could not read request document.")
		return
	}

	var req signInRequest
	if err := xml.Unmarshal(body, &req); err != nil {
		s.writeErrorDocument(w, authErrorType, "Request document in wrong format.")
		return
	}

	start := time.Now()
	var accountID, label, failure string
	switch req.Method {
	case "standard":
		failure = authenticationFailure
		accountID, label, err = s.vendor.StandardLookup(r.Context(), strings.TrimSpace(req.Username), strings.TrimSpace(req.Password))
	case "authData":
		failure = tokenFailure
		var authdata []byte
		authdata, err = base64.StdEncoding.DecodeString(strings.TrimSpace(req.AuthData))
		if err == nil {
			accountID, label, err = s.vendor.AuthdataLookup(r.Context(), string(authdata))
		}
	case "":
		s.writeErrorDocument(w, authErrorType, "No method specified")
		return
	default:
		s.writeErrorDocument(w, authErrorType, fmt.Sprintf("Unknown signin method: %s", req.Method))
		return
	}
	metrics.TokenDecodeDurationMs.Observe(float64(time.Since(start).Milliseconds()))

	if err != nil {
		metrics.TokenDecodesTotal.WithLabelValues("rejected").Inc()
		if s.logger != nil {
			s.logger.Debug("vendor id sign-in rejected", "method", req.Method, "error", err)
		}
		s.writeErrorDocument(w, authErrorType, failure)
		return
	}

	metrics.TokenDecodesTotal.WithLabelValues("ok").Inc()
	s.writeXML(w, fmt.Sprintf(signInResponseTemplate, accountID, label))
}

// handleAccountInfo turns an account identifier back into its label.
func (s *Server) handleAccountInfo(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.writeErrorDocument(w, accountInfoErrorType, "Could not read request document.")
		return
	}

	var req accountInfoRequest
	if err := xml.Unmarshal(body, &req); err != nil {
		s.writeErrorDocument(w, accountInfoErrorType, "Request document in wrong format.")
		return
	}
	user := strings.TrimSpace(req.User)
	if user == "" {
		s.writeErrorDocument(w, accountInfoErrorType, "Could not find user identifer in request document.")
		return
	}

	s.writeXML(w, fmt.Sprintf(accountInfoResponseTemplate, s.vendor.URNToLabel(user)))
}

// handleStatus reports that the vendor ID service is up.
func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprint(w, "UP")
}

func (s *Server) writeXML(w http.ResponseWriter, document string) {
	w.Header().Set("Content-Type", "application/xml")
	fmt.Fprint(w, document)
}

func (s *Server) writeErrorDocument(w http.ResponseWriter, errorType, message string) {
	s.writeXML(w, fmt.Sprintf(errorResponseTemplate, s.vendor.Name(), errorType, message))
}
