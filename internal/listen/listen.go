package listen

import (
	"fmt"
	"net"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
)

const defaultPort = "3000"

// Config is a normalized listen target for the workspace web server.
type Config struct {
	Host    string
	Port    string
	Disable bool
}

// Default returns the listen configuration used when SUPPORTDESK_LISTEN is unset.
func Default() Config {
	return Config{Host: "", Port: defaultPort, Disable: false}
}

// Parse interprets a raw listen value. Empty strings disable listening, host-only
// values inherit the default port, and bare ports or :port forms override it.
func Parse(raw string) (Config, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return Config{Disable: true}, nil
	}

	var host, port string

	switch {
	case strings.HasPrefix(value, "[") && strings.Contains(value, "]:"):
		closing := strings.LastIndex(value, "]:")
		host = strings.TrimSpace(value[1:closing])
		port = strings.TrimSpace(value[closing+2:])
	case strings.HasPrefix(value, "[") && strings.HasSuffix(value, "]"):
		host = strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(value, "["), "]"))
	case strings.HasPrefix(value, ":"):
		port = strings.TrimSpace(value[1:])
	case isDigits(value):
		port = value
	case strings.Contains(value, ":"):
		h, p, err := net.SplitHostPort(value)
		if err != nil {
			return Config{}, fmt.Errorf("invalid listen address %q: %w", value, err)
		}
		host = strings.TrimSpace(h)
		port = strings.TrimSpace(p)
	default:
		host = value
	}

	if port == "" {
		port = defaultPort
	}
	if err := validatePort(port); err != nil {
		return Config{}, err
	}

	return Config{Host: normalizeHost(host), Port: port}, nil
}

// Address returns the bind string for http.Server.
func (c Config) Address() string {
	if c.Disable {
		return ""
	}
	if c.Host == "" {
		return ":" + c.Port
	}
	return net.JoinHostPort(c.Host, c.Port)
}

// String renders the config the way it would be written in SUPPORTDESK_LISTEN.
func (c Config) String() string {
	if c.Disable {
		return "disabled"
	}
	return c.Address()
}

// DisplayURL renders a browser-friendly URL for CLI output.
func (c Config) DisplayURL() string {
	if c.Disable {
		return ""
	}
	host := c.Host
	switch host {
	case "", "0.0.0.0", "::":
		host = "localhost"
	}
	if strings.Contains(host, ":") && !strings.HasPrefix(host, "[") {
		host = "[" + host + "]"
	}
	return fmt.Sprintf("http://%s:%s/", host, c.Port)
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

func validatePort(value string) error {
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 || n > 65535 {
		return fmt.Errorf("invalid listen port %q", value)
	}
	return nil
}

func normalizeHost(host string) string {
	host = strings.TrimSpace(host)
	if strings.HasPrefix(host, "[") && strings.HasSuffix(host, "]") {
		return strings.TrimSuffix(strings.TrimPrefix(host, "["), "]")
	}
	return host
}

// OpenURL launches the default browser with the provided URL.
func OpenURL(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return fmt.Errorf("open browser: unsupported runtime %s", runtime.GOOS)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("open browser on %s: %w", runtime.GOOS, err)
	}
	return nil
}
