package gate

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/spec-kit/ebingo-service/internal/domain"
)

// Routes is the terminal routes table.
type Routes struct {
	Login   string                   `yaml:"login"`
	Closed  string                   `yaml:"closed"`
	Home    map[domain.Role]string   `yaml:"home"`
	Guarded map[string][]domain.Role `yaml:"routes"`
}

// NewRoutes normalizes and validates a table. Every role needs a home route
// that its own role may enter, otherwise wrong-role redirects could loop.
func NewRoutes(r Routes) (*Routes, error) {
	out := &Routes{
		Login:   cleanPath(r.Login),
		Closed:  cleanPath(r.Closed),
		Home:    make(map[domain.Role]string, len(r.Home)),
		Guarded: make(map[string][]domain.Role, len(r.Guarded)),
	}
	if r.Login == "" || r.Closed == "" {
		return nil, fmt.Errorf("routes: login and closed routes are required")
	}

	for path, roles := range r.Guarded {
		normalized := make([]domain.Role, 0, len(roles))
		for _, role := range roles {
			parsed, ok := domain.ParseRole(string(role))
			if !ok {
				return nil, fmt.Errorf("routes: %s: unknown role %q", path, role)
			}
			normalized = append(normalized, parsed)
		}
		out.Guarded[cleanPath(path)] = normalized
	}

	for _, role := range []domain.Role{domain.RoleCashier, domain.RoleGuard, domain.RoleSuperAdmin, domain.RoleKaizen} {
		home := ""
		for key, path := range r.Home {
			if parsed, ok := domain.ParseRole(string(key)); ok && parsed == role {
				home = cleanPath(path)
			}
		}
		if home == "" {
			return nil, fmt.Errorf("routes: no home route for role %s", role)
		}
		if !out.Allows(home, role) {
			return nil, fmt.Errorf("routes: home route %s does not allow role %s", home, role)
		}
		out.Home[role] = home
	}
	return out, nil
}

// DefaultRoutes is the stock terminal layout.
func DefaultRoutes() *Routes {
	routes, err := NewRoutes(Routes{
		Login:  "/",
		Closed: "/closed",
		Home: map[domain.Role]string{
			domain.RoleKaizen:     "/kaizen/members",
			domain.RoleSuperAdmin: "/superadmin/members",
			domain.RoleCashier:    "/cashier/members",
			domain.RoleGuard:      "/guard",
		},
		Guarded: map[string][]domain.Role{
			"/kaizen/members":      {domain.RoleKaizen},
			"/superadmin/members":  {domain.RoleSuperAdmin},
			"/cashier/members":     {domain.RoleCashier},
			"/guard":               {domain.RoleGuard},
			"/kaizen/branches":     {domain.RoleKaizen},
			"/superadmin/branches": {domain.RoleSuperAdmin},
			"/kaizen/users":        {domain.RoleKaizen},
			"/superadmin/users":    {domain.RoleSuperAdmin},
		},
	})
	if err != nil {
		panic(err)
	}
	return routes
}

// LoadRoutes reads a YAML routes table.
func LoadRoutes(path string) (*Routes, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("routes: read %s: %w", path, err)
	}
	return ParseRoutes(raw)
}

// ParseRoutes decodes and validates a YAML routes table.
func ParseRoutes(raw []byte) (*Routes, error) {
	var r Routes
	if err := yaml.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("routes: decode: %w", err)
	}
	return NewRoutes(r)
}

// Allows reports whether role may enter path. Unknown paths allow nobody.
func (r *Routes) Allows(path string, role domain.Role) bool {
	for _, allowed := range r.Guarded[cleanPath(path)] {
		if allowed == role {
			return true
		}
	}
	return false
}

// HomeFor returns the landing route of a role.
func (r *Routes) HomeFor(role domain.Role) string {
	if home, ok := r.Home[role]; ok {
		return home
	}
	return r.Login
}

func cleanPath(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return ""
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
	}
	return path
}
