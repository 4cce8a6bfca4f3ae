package auth

import "context"

type identityKey struct{}

// identity is what RequirePage and RequireAPI attach to a request.
type identity struct {
	user    User
	session Session
}

func withIdentity(ctx context.Context, u User, s Session) context.Context {
	return context.WithValue(ctx, identityKey{}, identity{user: u, session: s})
}

func UserFromContext(ctx context.Context) (User, bool) {
	id, ok := ctx.Value(identityKey{}).(identity)
	return id.user, ok
}

func SessionFromContext(ctx context.Context) (Session, bool) {
	id, ok := ctx.Value(identityKey{}).(identity)
	return id.session, ok
}
