package main

import (
	"fmt"
	"strings"
)

// formatEnvVars returns copy-paste ready environment variables pointing a
// child process's HTTP clients at the running SOCKS5 listener, for the
// given OS. goos should be runtime.GOOS (e.g., "linux", "darwin", "windows").
func formatEnvVars(socksAddr, caPath, goos string) string {
	var sb strings.Builder

	sb.WriteString("  Environment variables (copy-paste):\n\n")

	if goos == "windows" {
		// PowerShell syntax
		sb.WriteString("  # Node.js, curl, most HTTP clients\n")
		fmt.Fprintf(&sb, "  $env:ALL_PROXY = \"socks5h://%s\"\n", socksAddr)
		fmt.Fprintf(&sb, "  $env:HTTPS_PROXY = \"socks5h://%s\"\n", socksAddr)
		fmt.Fprintf(&sb, "  $env:NODE_EXTRA_CA_CERTS = \"%s\"\n", caPath)
		sb.WriteString("\n")
		sb.WriteString("  # Python (httpx, OpenAI SDK, requests via socks)\n")
		fmt.Fprintf(&sb, "  $env:ALL_PROXY = \"socks5h://%s\"\n", socksAddr)
		fmt.Fprintf(&sb, "  $env:SSL_CERT_FILE = \"%s\"\n", caPath)
		sb.WriteString("\n")
		sb.WriteString("  # Python (requests)\n")
		fmt.Fprintf(&sb, "  $env:REQUESTS_CA_BUNDLE = \"%s\"\n", caPath)
	} else {
		// Unix syntax (Linux, macOS, etc.)
		sb.WriteString("  # Node.js, curl, most HTTP clients\n")
		fmt.Fprintf(&sb, "  export ALL_PROXY=socks5h://%s\n", socksAddr)
		fmt.Fprintf(&sb, "  export HTTPS_PROXY=socks5h://%s\n", socksAddr)
		fmt.Fprintf(&sb, "  export NODE_EXTRA_CA_CERTS=%s\n", caPath)
		sb.WriteString("\n")
		sb.WriteString("  # Python (httpx, OpenAI SDK, requests via socks)\n")
		fmt.Fprintf(&sb, "  export ALL_PROXY=socks5h://%s\n", socksAddr)
		fmt.Fprintf(&sb, "  export SSL_CERT_FILE=%s\n", caPath)
		sb.WriteString("\n")
		sb.WriteString("  # Python (requests)\n")
		fmt.Fprintf(&sb, "  export REQUESTS_CA_BUNDLE=%s\n", caPath)
	}

	sb.WriteString("\n")
	return sb.String()
}
