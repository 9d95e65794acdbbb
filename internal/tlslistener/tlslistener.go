// Package tlslistener bootstraps the HTTPS fulfillment listener using
// Let's Encrypt via autocert, mirroring the teacher library's
// examples/service/main.go certificate setup.
package tlslistener

import (
	"context"
	"crypto/tls"
	"net/http"

	"golang.org/x/crypto/acme/autocert"
)

// Server wraps an *http.Server configured for autocert-issued TLS, plus
// the plain-HTTP server autocert needs for the ACME HTTP-01 challenge.
type Server struct {
	https *http.Server
	http  *http.Server
}

// New builds a Server serving handler over HTTPS on addr for domain,
// caching certificates under certCacheDir, following the teacher's
// autocert.Manager{Prompt, HostPolicy, Cache} shape.
func New(addr, domain, certCacheDir string, handler http.Handler) *Server {
	certManager := autocert.Manager{
		Prompt:     autocert.AcceptTOS,
		HostPolicy: autocert.HostWhitelist(domain),
		Cache:      autocert.DirCache(certCacheDir),
	}

	return &Server{
		https: &http.Server{
			Addr:    addr,
			Handler: handler,
			TLSConfig: &tls.Config{
				GetCertificate: certManager.GetCertificate,
			},
		},
		http: &http.Server{
			Addr:    ":http",
			Handler: certManager.HTTPHandler(nil),
		},
	}
}

// ListenAndServe starts the ACME challenge listener in the background and
// blocks serving HTTPS until the server errors or is shut down.
func (s *Server) ListenAndServe() error {
	go s.http.ListenAndServe()
	return s.https.ListenAndServeTLS("", "")
}

// Shutdown gracefully stops both listeners.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.http.Shutdown(ctx); err != nil {
		return err
	}
	return s.https.Shutdown(ctx)
}
