package config

import "time"

type SessionConfig interface {
	GetSessionCheckCooldown() time.Duration
	GetTokenRefreshCooldown() time.Duration
	GetSessionCookieNames() []string
}

type Session struct {
	file *FileValues
}

var _ SessionConfig = Session{}

func (s Session) GetSessionCheckCooldown() time.Duration {
	if s.file == nil {
		return 3 * time.Second
	}
	return fileDuration(s.file.Session.CheckCooldown, 3*time.Second)
}

func (s Session) GetTokenRefreshCooldown() time.Duration {
	if s.file == nil {
		return 5 * time.Second
	}
	return fileDuration(s.file.Session.RefreshCooldown, 5*time.Second)
}

// GetSessionCookieNames lists the cookie names whose presence hints that a
// backend session may exist. It is a heuristic only.
func (s Session) GetSessionCookieNames() []string {
	if s.file != nil && len(s.file.Session.CookieNames) > 0 {
		return s.file.Session.CookieNames
	}
	return []string{"connect.sid", "session", "sid"}
}
