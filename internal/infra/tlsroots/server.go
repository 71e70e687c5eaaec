package tlsroots

import (
	"crypto/tls"
	"fmt"

	"github.com/yndnr/statehttpd/internal/core/domain"
)

// LoadKeyPair reads a PEM certificate chain and private key.
func LoadKeyPair(certFile, keyFile string) (*tls.Certificate, error) {
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, domain.ErrTLSLoad.WithDetails(fmt.Sprintf("cert %s, key %s", certFile, keyFile)).WithCause(err)
	}
	return &cert, nil
}

// ServerConfig loads the pair once and returns a server TLS config.
func ServerConfig(certFile, keyFile string) (*tls.Config, error) {
	cert, err := LoadKeyPair(certFile, keyFile)
	if err != nil {
		return nil, err
	}
	return &tls.Config{
		Certificates: []tls.Certificate{*cert},
		MinVersion:   tls.VersionTLS12,
	}, nil
}
