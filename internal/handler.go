package internal

import (
	"context"
	"errors"
	"net/http"
)

// ServeWS upgrades the request and starts the connection's pumps.
func (hub *Hub) ServeWS(writer http.ResponseWriter, request *http.Request) {
	if hub.atCapacity() {
		hub.log.Warn("connection refused, hub at capacity", "max", hub.opts.MaxConnections)
		writeError(writer, http.StatusServiceUnavailable, errors.New("too many connections"))
		return
	}
	websocketConn, err := hub.upgrader.Upgrade(writer, request, nil)
	if err != nil {
		hub.log.Warn("upgrade error", "error", err)
		return
	}

	client := newClient(hub, websocketConn)
	hub.accept(context.Background(), client)

	go client.writePump()
	go client.readPump()
}
