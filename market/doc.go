// Package market is an HTTP client for the account marketplace.
//
// Client implements fulfill.Marketplace over the marketplace JSON API:
// listing search, fast-buy and login-code retrieval. Every request carries the
// bearer token and passes through a shared token-bucket limiter. Rejections
// are returned as *fulfill.MarketError so the pipeline can classify them.
package market
