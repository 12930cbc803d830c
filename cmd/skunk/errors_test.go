package main

import (
	"errors"
	"strings"
	"testing"
)

func TestActionableError_Format(t *testing.T) {
	err := &ActionableError{
		What:  "Port binding failed",
		Cause: errors.New("address already in use"),
		Fix:   "Kill the existing process",
	}

	formatted := err.Format()
	if !strings.Contains(formatted, "Error: Port binding failed") {
		t.Error("Format should contain what failed")
	}
	if !strings.Contains(formatted, "Cause: address already in use") {
		t.Error("Format should contain the cause")
	}
	if !strings.Contains(formatted, "Fix:   Kill the existing process") {
		t.Error("Format should contain the fix")
	}
}

func TestActionableError_Error(t *testing.T) {
	err := &ActionableError{
		What:  "Port binding failed",
		Cause: errors.New("address already in use"),
		Fix:   "Kill the existing process",
	}

	if err.Error() != "Port binding failed: address already in use" {
		t.Errorf("Error() = %q, want %q", err.Error(), "Port binding failed: address already in use")
	}
}

func TestPortInUseFix(t *testing.T) {
	fix := portInUseFix("localhost:9090", 10)

	if !strings.Contains(fix, "9090") {
		t.Error("Fix should contain the port number")
	}

	if !strings.Contains(fix, "kill") && !strings.Contains(fix, "taskkill") {
		t.Error("Fix should contain kill instructions")
	}

	if !strings.Contains(fix, "9099") {
		t.Error("Fix should contain the top of the attempted port range")
	}

	if !strings.Contains(fix, "skunk proxy") {
		t.Error("Fix should suggest an alternative skunk proxy invocation")
	}
}

func TestPortNum(t *testing.T) {
	tests := []struct {
		port string
		want int
	}{
		{"9090", 9090},
		{"8080", 8080},
		{"abc", 0},
		{"", 0},
	}

	for _, tt := range tests {
		if got := portNum(tt.port); got != tt.want {
			t.Errorf("portNum(%q) = %d, want %d", tt.port, got, tt.want)
		}
	}
}

func TestCaCorruptFix(t *testing.T) {
	fix := caCorruptFix("/path/to/certs")

	if !strings.Contains(fix, "/path/to/certs") {
		t.Error("Fix should contain the config directory")
	}

	if !strings.Contains(fix, "ca.cert.pem") || !strings.Contains(fix, "ca.key.pem") {
		t.Error("Fix should mention ca.cert.pem and ca.key.pem files")
	}

	if !strings.Contains(fix, "skunk ca --force") {
		t.Error("Fix should suggest running skunk ca --force")
	}
}

func TestCaPermissionFix(t *testing.T) {
	fix := caPermissionFix("/path/to/certs")

	if !strings.Contains(fix, "/path/to/certs") {
		t.Error("Fix should contain the config directory")
	}
}

func TestConfigLoadFix(t *testing.T) {
	fix := configLoadFix("")
	if !strings.Contains(fix, "skunk proxy") {
		t.Error("Fix for missing path should suggest running without a config file")
	}

	fix = configLoadFix("/custom/config.yaml")
	if !strings.Contains(fix, "/custom/config.yaml") {
		t.Error("Fix should contain the config path")
	}
}

func TestIsPermissionError(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{errors.New("permission denied"), true},
		{errors.New("access is denied"), true},
		{errors.New("Access is denied"), true},
		{errors.New("some other error"), false},
		{nil, false},
	}

	for _, tt := range tests {
		if got := isPermissionError(tt.err); got != tt.want {
			errStr := "<nil>"
			if tt.err != nil {
				errStr = tt.err.Error()
			}
			t.Errorf("isPermissionError(%q) = %v, want %v", errStr, got, tt.want)
		}
	}
}

func TestIsCorruptCert(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{errors.New("failed to decode certificate"), true},
		{errors.New("parsing CA certificate: invalid data"), true},
		{errors.New("parsing CA private key: bad format"), true},
		{errors.New("malformed PEM data"), true},
		{errors.New("invalid certificate"), true},
		{errors.New("network timeout"), false},
		{nil, false},
	}

	for _, tt := range tests {
		if got := isCorruptCert(tt.err); got != tt.want {
			errStr := "<nil>"
			if tt.err != nil {
				errStr = tt.err.Error()
			}
			t.Errorf("isCorruptCert(%q) = %v, want %v", errStr, got, tt.want)
		}
	}
}
