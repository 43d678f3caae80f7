// Package subscription implements the client-side subscription engine.
//
// A Manager maintains many logical subscriptions to a remote publisher over
// one shared transport. Callers register subscriptions, activate them, and
// drive the engine by calling Exercise on a regular tick. The engine turns
// activations into wire requests, throttles and orders them through two
// priority lanes, tracks in-flight requests by deadline, and reconciles
// subscription state when the transport goes online or offline.
//
// # Subscription States
//
//	INACTIVE -> HIGH_PRIORITY_SEND_QUEUED | NORMAL_SEND_QUEUED   (Activate)
//	*_SEND_QUEUED -> RESPONSE_WAITING                            (drained by Exercise)
//	RESPONSE_WAITING -> SUBSCRIBED                               (final response delivered)
//	any -> INACTIVE                                              (timeout, error, offline, unsubscribe)
//
// A subscription is in at most one send queue or the wait list at a time.
// Its correlation key is set exactly while it is RESPONSE_WAITING or
// SUBSCRIBED.
//
// # Lanes
//
// The high lane is never throttled. The normal lane releases at most
// Config.NormalBurst requests per evaluation and then holds for
// Config.NormalThrottleInterval. Either lane can be held with SetBatching.
// All requests of one subscription use the lane of its definition, so the
// publisher always sees a subscribe before the matching unsubscribe.
//
// # Deactivation
//
// Deactivating a subscription whose request may already have reached the
// publisher queues a safety unsubscribe in the same lane when the transport
// is online.
//
// # Concurrency
//
// A Manager is not safe for concurrent use. All calls must be serialized by
// the owner, for example by the interaction.Engine actor.
//
// # Failures
//
// Per-subscription problems become notifications. Invariant violations,
// codec failures other than InvalidRequestError, and transport failures are
// fatal: the manager purges every subscription and returns an
// *InternalError carrying one INTERNAL_ERROR notification per purged
// subscription.
package subscription
