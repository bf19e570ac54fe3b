// Package feed broadcasts stored rolls to websocket subscribers.
//
// Clients connect to /ws and receive a feed.ready frame, the most recent
// rolls, then one roll.created frame per new roll. A feed.ping frame is
// answered with feed.pong.
package feed
