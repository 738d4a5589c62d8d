package commerce

// Session holds at most one logged-in identity
type Session struct {
	identity *Identity
}

// Login replaces the active identity
func (s *Session) Login(identity Identity) {
	id := identity.Clone()
	s.identity = &id
}

// Logout clears the active identity
func (s *Session) Logout() {
	s.identity = nil
}

// CurrentIdentity returns a copy of the active identity, or nil
func (s *Session) CurrentIdentity() *Identity {
	if s.identity == nil {
		return nil
	}
	id := s.identity.Clone()
	return &id
}

// IsAuthenticated reports whether anyone is logged in
func (s *Session) IsAuthenticated() bool {
	return s.identity != nil
}

// IsAdmin reports whether the active identity has the admin role
func (s *Session) IsAdmin() bool {
	return s.identity.IsAdmin()
}
