// Package accounts is an account security core: credential management,
// email verification, brute force lockout, password reset, and signed
// access/refresh token issuance.
//
// Token model:
//   - Access and refresh tokens are self-contained HS256 JWTs carrying a
//     type tag, so API calls verify offline without a storage round trip.
//   - Verification and reset tokens are opaque random values whose
//     validity lives in the credential store. Revoking one is a column
//     update.
//
// Lifecycle:
//   - Manager drives register -> verify -> login plus the orthogonal
//     password reset flow. It reads an account snapshot, computes the new
//     state, and issues a single save or atomic counter update; no live
//     account object is shared between requests.
//   - Failed login counters are written with single-statement conditional
//     updates so concurrent attempts against one email cannot under-count
//     the lockout threshold.
//
// Notifications:
//   - Dispatcher queues verification, reset, and welcome emails to an
//     external Notifier from a bounded queue. Dispatch never blocks and
//     never fails the account operation that triggered it.
package accounts
