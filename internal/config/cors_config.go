package config

import (
	"sort"
	"strings"
)

type Cors struct {
	file *FileValues
}

var _ CorsConfig = Cors{}

type AllowedOrigins map[string]struct{}
type nullValue = struct{}

func (a AllowedOrigins) IsAllowedOrigin(origin string) bool {
	_, ok := a[origin]
	return ok
}

func (a AllowedOrigins) String() string {
	var origins []string
	for k := range a {
		origins = append(origins, k)
	}
	sort.Strings(origins)
	return strings.Join(origins, ", ")
}

var defaultAllowedOrigins = []string{"http://localhost:5173", "https://pasesfalsos.com"}

func (c Cors) GetAllowedOrigins() AllowedOrigins {
	origins := defaultAllowedOrigins
	if raw := GetEnv("ALLOWED_ORIGINS", ""); raw != "" {
		origins = strings.Split(raw, ",")
	} else if c.file != nil && len(c.file.AllowedOrigins) > 0 {
		origins = c.file.AllowedOrigins
	}

	allowed := make(AllowedOrigins, len(origins))
	for _, o := range origins {
		if o = strings.TrimSpace(o); o != "" {
			allowed[o] = nullValue{}
		}
	}
	return allowed
}

func (Cors) GetAllowedMethods() string {
	return "GET, POST, PATCH, DELETE"
}

func (Cors) GetAllowedHeaders() string {
	return "Content-Type, Authorization"
}
