// Package service contains the business logic.
//
// It sits between the handler and repository layers. It receives
// validated requests from the handler, decides between the snapshot
// cache and a live scrape, and shapes the result for the response.
package service
