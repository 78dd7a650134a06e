// Package membership implements the account and notification core of the
// HALO publishing platform: credential hashing, signed single-purpose
// tokens, session tracking, and the asynchronous email dispatch pipeline.
//
// Token flows:
//   - Session tokens are long-lived JWTs registered in a SessionStore so
//     they can be revoked on logout. Resolution checks both the signature
//     and the registry.
//   - Email verification and password reset tokens are stateless. Validity
//     is fully determined by signature, expiry, and claim checks at
//     confirmation time. Every verification failure collapses to
//     ErrInvalidOrExpiredToken at the public boundary; the concrete cause
//     is only logged.
//
// Notifications:
//   - Domain actions publish typed events on a Bus. The Dispatcher
//     subscribes once per event kind, renders the payload through a
//     TemplateRenderer, and sends through a Mailer. Delivery is
//     fire-and-forget: transport failures never propagate back to the
//     operation that published the event.
//   - The new-post broadcast resolves its recipients dynamically and sends
//     strictly sequentially with a randomized inter-send delay to respect
//     the mail provider's throughput limits.
//
// Persistence is supplied by collaborators. The bun-backed repositories in
// this package implement those collaborator interfaces, but the flows only
// ever see AccountStore and RecipientSource.
package membership
