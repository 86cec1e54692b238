package fitsync

// Identity reports the signed-in viewer. Accessors receive it at
// construction and consult it on every operation, so a sign-out is observed
// without rebuilding them.
type Identity interface {
	// CurrentUserID returns the viewer's user ID, or false when nobody is
	// signed in.
	CurrentUserID() (string, bool)
}

// StaticIdentity is a fixed viewer. The empty string means signed out.
type StaticIdentity string

func (s StaticIdentity) CurrentUserID() (string, bool) {
	return string(s), s != ""
}
