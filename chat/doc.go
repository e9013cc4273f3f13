// Package chat is an HTTP client for the chat gateway that fronts the
// storefront. It sends buyer messages and operator alerts, issues refunds and
// reads a buyer's past deliveries.
package chat
