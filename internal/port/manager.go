// Package port resolves the HTTP transport's bind address across
// deployment environments, generalized from the teacher framework's
// environment-aware port manager: a Kubernetes or Docker Compose pod
// gets a fixed, predictable port, while local development auto-discovers
// a free one so running two instances side by side doesn't collide.
package port

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/mbilalbenli/pub-dev-mcp/internal/logging"
)

// Environment is the detected deployment environment.
type Environment string

const (
	EnvLocal      Environment = "local"
	EnvDocker     Environment = "docker"
	EnvKubernetes Environment = "kubernetes"
	EnvProduction Environment = "production"
)

// DetectEnvironment inspects well-known environment markers to classify
// the deployment context.
func DetectEnvironment() Environment {
	if os.Getenv("KUBERNETES_SERVICE_HOST") != "" || fileExists("/var/run/secrets/kubernetes.io/serviceaccount/token") {
		return EnvKubernetes
	}
	if os.Getenv("COMPOSE_PROJECT_NAME") != "" {
		return EnvDocker
	}
	if os.Getenv("GO_ENV") == "production" || os.Getenv("ENVIRONMENT") == "production" {
		return EnvProduction
	}
	return EnvLocal
}

// Manager resolves a concrete host:port address for the HTTP transport.
type Manager struct {
	host      string
	portRange string
	env       Environment
	logger    logging.Logger
}

// NewManager builds a Manager for host ("" defaults to 0.0.0.0), scanning
// portRange ("8080-8090") for a free port when auto-discovery applies.
func NewManager(host, portRange string, logger logging.Logger) *Manager {
	if host == "" {
		host = "0.0.0.0"
	}
	if portRange == "" {
		portRange = "8080-8090"
	}
	if logger == nil {
		logger = logging.NoOp{}
	}
	return &Manager{host: host, portRange: portRange, env: DetectEnvironment(), logger: logger.WithComponent("port")}
}

// Resolve turns a configured address into the address the server should
// actually bind. An explicit non-auto address (e.g. ":8080") is always
// honored unchanged. "auto" (or an empty configured address) is resolved
// per environment: Kubernetes/Docker/production deployments get the
// fixed default port 8080 since the platform owns port mapping, while
// local development scans portRange for a free port so several instances
// can run side by side.
func (m *Manager) Resolve(configured string) string {
	if configured != "" && !strings.EqualFold(configured, "auto") {
		return configured
	}

	switch m.env {
	case EnvKubernetes, EnvDocker, EnvProduction:
		addr := fmt.Sprintf("%s:%d", m.host, 8080)
		m.logger.Info("resolved fixed bind address", map[string]interface{}{"address": addr, "environment": string(m.env)})
		return addr
	default:
		p := m.findAvailablePortInRange()
		addr := fmt.Sprintf("%s:%d", m.host, p)
		m.logger.Info("resolved auto-discovered bind address", map[string]interface{}{"address": addr, "environment": string(m.env)})
		return addr
	}
}

func (m *Manager) findAvailablePortInRange() int {
	start, end := m.parsePortRange()
	for p := start; p <= end; p++ {
		if m.isPortAvailable(p) {
			return p
		}
	}
	m.logger.Warn("no ports available in range, asking the OS for one", map[string]interface{}{"range": m.portRange})
	return m.anyAvailablePort()
}

func (m *Manager) parsePortRange() (int, int) {
	parts := strings.Split(m.portRange, "-")
	if len(parts) != 2 {
		return 8080, 8090
	}
	start, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
	end, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err1 != nil || err2 != nil || start > end {
		return 8080, 8090
	}
	return start, end
}

func (m *Manager) isPortAvailable(p int) bool {
	l, err := net.Listen("tcp", fmt.Sprintf("%s:%d", m.host, p))
	if err != nil {
		return false
	}
	_ = l.Close()
	return true
}

func (m *Manager) anyAvailablePort() int {
	l, err := net.Listen("tcp", fmt.Sprintf("%s:0", m.host))
	if err != nil {
		m.logger.Error("failed to find any available port", map[string]interface{}{"error": err.Error()})
		return 8080
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
