package models

// Viewer is the optional identity a read is performed on behalf of.
// The zero value is an anonymous viewer.
type Viewer struct {
	id            uint
	authenticated bool
}

// AnonymousViewer returns a viewer with no identity.
func AnonymousViewer() Viewer {
	return Viewer{}
}

// ViewerOf returns an authenticated viewer for userID.
func ViewerOf(userID uint) Viewer {
	return Viewer{id: userID, authenticated: true}
}

// ID returns the viewer's user ID and whether the viewer is authenticated.
func (v Viewer) ID() (uint, bool) {
	return v.id, v.authenticated
}

// IsAnonymous reports whether the viewer carries no identity.
func (v Viewer) IsAnonymous() bool {
	return !v.authenticated
}
