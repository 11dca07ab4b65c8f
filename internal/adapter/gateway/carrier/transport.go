package carrier

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"net/http"
)

// transportStrategy selects the HTTP transport used for carrier calls.
// The relaxed variant exists only for non-production endpoints whose UAT
// certificates fail verification.
type transportStrategy interface {
	Name() string
	Client() *http.Client
}

type standardTransport struct {
	client *http.Client
}

func newStandardTransport() *standardTransport {
	return &standardTransport{client: &http.Client{}}
}

func (t *standardTransport) Name() string         { return "standard" }
func (t *standardTransport) Client() *http.Client { return t.client }

type relaxedTLSTransport struct {
	client *http.Client
}

func newRelaxedTLSTransport() *relaxedTLSTransport {
	return &relaxedTLSTransport{client: &http.Client{
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, //nolint:gosec // UAT fallback only, never production
		},
	}}
}

func (t *relaxedTLSTransport) Name() string         { return "relaxed-tls" }
func (t *relaxedTLSTransport) Client() *http.Client { return t.client }

// shouldRelaxTLS is the pure predicate deciding whether a failed call may be
// retried once on the relaxed transport: the error must be a certificate
// verification failure and the endpoint must not be production.
func shouldRelaxTLS(isProduction bool, err error) bool {
	if isProduction || err == nil {
		return false
	}
	return isCertificateError(err)
}

func isCertificateError(err error) bool {
	var certErr *tls.CertificateVerificationError
	if errors.As(err, &certErr) {
		return true
	}
	var unknownAuthority x509.UnknownAuthorityError
	if errors.As(err, &unknownAuthority) {
		return true
	}
	var hostnameErr x509.HostnameError
	if errors.As(err, &hostnameErr) {
		return true
	}
	var invalidCert x509.CertificateInvalidError
	return errors.As(err, &invalidCert)
}
