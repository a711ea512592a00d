// Package authflow implements the four authentication entry points.
//
//   - SignIn: actor from the basic strategy plus an api key token. 200, "token issued".
//   - SignUp: new identity, never admin. 201, "user created". Duplicate email is Unauthorized.
//   - SignProvider: get-or-create by email, token without isAdmin. 200, "token updated".
//   - VerifyToken: actor from the bearer strategy, scopes carried over. 201, "token verified".
//
// Sign-up and sign-provider write the identity before the api key is checked.
// A rejected key leaves the identity in place and returns Unauthorized.
package authflow
