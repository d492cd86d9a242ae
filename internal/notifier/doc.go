// Package notifier delivers news notifications to a chat.
//
// A notification carries a target chat (optionally with a forum thread), the
// rendered text and send options such as "disable link preview". Delivery is
// delegated to a kit.Adapter so formatting and throttling stay out of the
// transport.
//
// # Throttling
//
// Sends share one token bucket so a burst of fresh items cannot trip the
// platform's flood limits.
//
// # History
//
// The service keeps a small in-memory history of delivered notifications for
// operator visibility.
package notifier
