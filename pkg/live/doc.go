// Package live pushes graduation updates to browsers over WebSocket.
//
// One Hub serves all graduations. Clients connect to /live/{gradId}; the
// hub subscribes to the store once per graduation while at least one
// client is connected and fans every update out as a JSON event. Slow
// clients are dropped rather than allowed to stall the room.
package live
