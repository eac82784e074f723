package service

import "sync"

// SiteSettings are the admin-editable display settings.
type SiteSettings struct {
	SiteName string `json:"siteName"`
	LogoURL  string `json:"logoUrl"`
}

// SettingsStore holds the mutable site settings behind a lock. It is
// constructed once and handed to the handlers that need it; nothing reads
// settings from a package-level variable.
type SettingsStore struct {
	mu       sync.RWMutex
	settings SiteSettings
}

func NewSettingsStore(initial SiteSettings) *SettingsStore {
	if initial.SiteName == "" {
		initial.SiteName = "Vitalis Health Check"
	}
	return &SettingsStore{settings: initial}
}

func (s *SettingsStore) Get() SiteSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

func (s *SettingsStore) Update(settings SiteSettings) SiteSettings {
	s.mu.Lock()
	defer s.mu.Unlock()
	if settings.SiteName != "" {
		s.settings.SiteName = settings.SiteName
	}
	s.settings.LogoURL = settings.LogoURL
	return s.settings
}
