package socks5

import "fmt"

// InvalidVersion reports that a client's opening byte was not 5.
type InvalidVersion struct{ Version byte }

func (e *InvalidVersion) Error() string {
	return fmt.Sprintf("socks5: invalid version %d", e.Version)
}

// InvalidRequest reports a structurally malformed request frame.
type InvalidRequest struct{ Reason string }

func (e *InvalidRequest) Error() string { return "socks5: invalid request: " + e.Reason }

// InvalidHostName reports a DomainName address whose bytes are not valid UTF-8.
type InvalidHostName struct{}

func (e *InvalidHostName) Error() string { return "socks5: invalid host name (not UTF-8)" }

// AuthenticationFailed reports that the selected AuthProvider rejected the client.
type AuthenticationFailed struct{}

func (e *AuthenticationFailed) Error() string { return "socks5: authentication failed" }

// NoAcceptableMethod reports that the AuthProvider accepted none of the
// client's offered methods.
type NoAcceptableMethod struct{}

func (e *NoAcceptableMethod) Error() string { return "socks5: no acceptable authentication method" }
