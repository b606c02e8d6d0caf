// Package mocks provides shared test doubles for interfaces used across
// packages: the JWT service, the password verifier and the plan generator.
//
// Each mock has function fields for its methods and falls back to plain
// default values when a field is nil:
//
//	jwt := &mocks.MockJWTService{
//	    ValidateRefreshTokenFn: func(ctx context.Context, token string) (*auth.Claims, error) {
//	        return nil, auth.ErrInvalidRefreshToken
//	    },
//	}
//
// Mocks used by a single package stay in that package's _test.go files.
package mocks
