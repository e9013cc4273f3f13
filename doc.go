// Package fulfill provides an order-fulfillment pipeline for digital goods bought on an external marketplace.
//
// Typical flow:
//  1. An event source reports a paid order and calls Scheduler.Enqueue, which never blocks.
//  2. The Scheduler admits queued jobs in FIFO order while fewer than MaxActive workers are running.
//  3. A Worker resolves the order's target, drives the Acquirer (search, purchase in listing order), and
//     either records the delivery through the Recorder or hands the failure to the Compensator.
//  4. Independently, a CodeHandler answers "cd <phone>" chat messages by relaying login codes for
//     delivered items.
//
// Storage backends live in the mysql and memstore packages; transports live in market, chat and httpapi.
package fulfill
