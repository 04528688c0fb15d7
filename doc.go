// Package auth implements stateless account authentication: login tokens and
// one-time codes are self-contained, and the only server-side state is the
// account itself.
//
// Tokens:
//   - TokenService mints and validates tokens for four audiences. Login tokens
//     (AudienceAuth) are signed; verify, forgot-password and change-email
//     codes are signed then encrypted so the facts they carry stay private.
//   - Every account carries a credentials freshness watermark. A token issued
//     before the watermark is obsolete, which is how password changes, email
//     verification and email changes revoke outstanding tokens and codes
//     without a revocation list. FreshnessPolicy owns every watermark move.
//
// Codes:
//   - VerificationCodeIssuer mints codes carrying the value they verify and
//     resolves them back to the account, failing with ErrInvalidCode when the
//     account no longer matches. Redeeming a code bumps the watermark, so each
//     code works once.
//
// Accounts:
//   - AccountService runs signup, login, verification, password reset, email
//     change and role updates on top of an AccountStore, returning an Outcome
//     with the replacement token and the mails to send.
//   - AuthenticationGate turns a bearer header into an Authentication for the
//     HTTP layer; see middleware/bearer.
//
// Activity sinks:
//   - ActivitySink is a light-weight audit emitter. Sinks run best-effort
//     (errors are logged) so you can forward to a database or queue without
//     blocking authentication. activitymap normalizes events for transport.
package auth
